package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLStore keeps rows as JSON documents in the records table. Filtering is
// done in Go so sqlite and postgres behave the same.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) QueryByFilter(ctx context.Context, collection string, f Eq, maxRecords int) ([]Record, error) {
	all, err := s.QueryAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range all {
		if !f.Match(r.Fields) {
			continue
		}
		out = append(out, r)
		if maxRecords > 0 && len(out) >= maxRecords {
			break
		}
	}
	return out, nil
}

func (s *SQLStore) QueryAll(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields_json FROM records WHERE collection=$1 ORDER BY created_at, id`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var id, fj string
		if err := rows.Scan(&id, &fj); err != nil {
			return nil, err
		}
		fields, err := decodeFields(fj)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		out = append(out, Record{ID: id, Fields: fields})
	}
	return out, rows.Err()
}

// queryer is the part of *sql.DB and *sql.Tx that get needs.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) get(ctx context.Context, q queryer, collection, id string) (Record, string, error) {
	var fj string
	err := q.QueryRowContext(ctx,
		`SELECT fields_json FROM records WHERE collection=$1 AND id=$2`, collection, id).Scan(&fj)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, "", fmt.Errorf("%s/%s: %w", collection, id, ErrRecordNotFound)
	}
	if err != nil {
		return Record{}, "", err
	}
	fields, err := decodeFields(fj)
	if err != nil {
		return Record{}, "", err
	}
	return Record{ID: id, Fields: fields}, fj, nil
}

// updateAttempts bounds the retries when another writer changes the row
// between the read and the write.
const updateAttempts = 5

// UpdateRecord merges fields into the stored row, like a PATCH. The read and
// the write share a transaction and the write only lands if the row is
// unchanged, so concurrent updates of different fields both survive.
func (s *SQLStore) UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (Record, error) {
	patch := normalizeFields(fields)
	for i := 0; i < updateAttempts; i++ {
		r, ok, err := s.tryUpdate(ctx, collection, id, patch)
		if err != nil || ok {
			return r, err
		}
	}
	return Record{}, fmt.Errorf("%s/%s: %w", collection, id, ErrUpdateConflict)
}

func (s *SQLStore) tryUpdate(ctx context.Context, collection, id string, patch map[string]any) (Record, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, false, err
	}
	defer tx.Rollback()

	r, prev, err := s.get(ctx, tx, collection, id)
	if err != nil {
		return Record{}, false, err
	}
	for k, v := range patch {
		r.Fields[k] = v
	}
	fj, err := json.Marshal(r.Fields)
	if err != nil {
		return Record{}, false, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE records SET fields_json=$1, updated_at=$2 WHERE collection=$3 AND id=$4 AND fields_json=$5`,
		string(fj), time.Now().Unix(), collection, id, prev)
	if err != nil {
		return Record{}, false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return Record{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

func (s *SQLStore) CreateRecord(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	r := Record{ID: "rec" + uuid.NewString(), Fields: normalizeFields(fields)}
	fj, err := json.Marshal(r.Fields)
	if err != nil {
		return Record{}, err
	}
	now := time.Now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, collection, fields_json, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)`,
		r.ID, collection, string(fj), now.UnixNano(), now.Unix()); err != nil {
		return Record{}, err
	}
	return r, nil
}

func decodeFields(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return normalizeFields(m), nil
}
