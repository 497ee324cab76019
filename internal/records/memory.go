package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nuid"
)

// Memory is an in-process Store. Rows keep insertion order per collection.
type Memory struct {
	mu   sync.RWMutex
	rows map[string][]Record
}

func NewMemory() *Memory {
	return &Memory{rows: map[string][]Record{}}
}

// Seed appends rows as-is, keeping their ids. Rows without an id get one.
func (m *Memory) Seed(collection string, rows ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if r.ID == "" {
			r.ID = "rec" + nuid.Next()
		}
		r.Fields = normalizeFields(r.Fields)
		m.rows[collection] = append(m.rows[collection], r)
	}
}

func (m *Memory) QueryByFilter(ctx context.Context, collection string, f Eq, maxRecords int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Record{}
	for _, r := range m.rows[collection] {
		if !f.Match(r.Fields) {
			continue
		}
		out = append(out, r.Clone())
		if maxRecords > 0 && len(out) >= maxRecords {
			break
		}
	}
	return out, nil
}

func (m *Memory) QueryAll(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.rows[collection]))
	for _, r := range m.rows[collection] {
		out = append(out, r.Clone())
	}
	return out, nil
}

// UpdateRecord merges fields into the row, like a PATCH.
func (m *Memory) UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[collection]
	for i := range rows {
		if rows[i].ID != id {
			continue
		}
		for k, v := range normalizeFields(fields) {
			rows[i].Fields[k] = v
		}
		return rows[i].Clone(), nil
	}
	return Record{}, fmt.Errorf("%s/%s: %w", collection, id, ErrRecordNotFound)
}

func (m *Memory) CreateRecord(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := Record{ID: "rec" + nuid.Next(), Fields: normalizeFields(fields)}
	m.rows[collection] = append(m.rows[collection], r)
	return r.Clone(), nil
}
