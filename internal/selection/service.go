package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-selection/internal/grading"
	"github.com/mind-engage/mindengage-selection/internal/ranking"
	"github.com/mind-engage/mindengage-selection/internal/records"
	syncx "github.com/mind-engage/mindengage-selection/internal/sync"
)

var (
	ErrUnknownStage = errors.New("unknown stage")
	ErrInvalidEdit  = errors.New("invalid edit")
)

// SaveError reports a failed persist of one stage. Other stages are unaffected.
type SaveError struct {
	Stage string
	Err   error
}

func (e *SaveError) Error() string { return fmt.Sprintf("save %s: %v", e.Stage, e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }

// Collections names the three record store tables.
type Collections struct {
	Applicants string
	Scores     string
	Tasks      string
}

var DefaultCollections = Collections{
	Applicants: "interns_selection_2025",
	Scores:     "Scores",
	Tasks:      "Task_Submit",
}

// EventLog receives an entry for every successful stage save.
type EventLog interface {
	Append(ctx context.Context, e syncx.Event) error
}

type Service struct {
	store  records.Store
	rubric grading.Rubric
	coll   Collections
	cutoff int
	events EventLog
	log    *zap.Logger

	derivedTotals bool
}

type Option func(*Service)

func WithCollections(c Collections) Option { return func(s *Service) { s.coll = c } }
func WithCutoff(n int) Option             { return func(s *Service) { s.cutoff = n } }
func WithEventLog(e EventLog) Option      { return func(s *Service) { s.events = e } }
func WithLogger(l *zap.Logger) Option     { return func(s *Service) { s.log = l } }

// WithDerivedTotals makes SaveStage write the stage total columns and
// FINAL_TOTAL itself. Use it for stores that have no formula fields.
func WithDerivedTotals() Option { return func(s *Service) { s.derivedTotals = true } }

func NewService(store records.Store, rubric grading.Rubric, opts ...Option) *Service {
	s := &Service{
		store:  store,
		rubric: rubric,
		coll:   DefaultCollections,
		cutoff: ranking.DefaultCutoff,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Rubric() grading.Rubric { return s.rubric }

// NormalizeQuery trims the query; chest numbers are also upper-cased.
func NormalizeQuery(mode SearchMode, q string) string {
	q = strings.TrimSpace(q)
	// chest numbers are stored upper-case; the filter itself stays exact
	if mode == ByChest {
		q = strings.ToUpper(q)
	}
	return q
}

// Search looks the candidate up in all three collections. A collection that
// fails to answer is logged and treated as empty.
func (s *Service) Search(ctx context.Context, mode SearchMode, query string) (Lookup, error) {
	if mode != ByChest && mode != ByAdmission {
		return Lookup{}, fmt.Errorf("%w: search mode %q", ErrInvalidEdit, mode)
	}
	query = NormalizeQuery(mode, query)
	if query == "" {
		return Lookup{}, nil
	}
	filter := records.Eq{Field: mode.field(), Value: query}

	var form, score, task *records.Record
	var g errgroup.Group
	for _, q := range []struct {
		coll string
		dst  **records.Record
	}{
		{s.coll.Applicants, &form},
		{s.coll.Scores, &score},
		{s.coll.Tasks, &task},
	} {
		q := q
		g.Go(func() error {
			*q.dst = s.first(ctx, q.coll, filter)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Lookup{}, err
	}

	// linked chest numbers do not always filter as text; fall back to the
	// admission number carried on the score row
	if form == nil && score != nil {
		if adm := records.Text(score.Fields, FieldAdmissionNo); adm != "" && mode == ByChest {
			form = s.first(ctx, s.coll.Applicants, records.Eq{Field: FieldAdmissionNo, Value: adm})
		}
	}

	if form == nil && score == nil {
		s.log.Info("no candidate found", zap.String("mode", string(mode)), zap.String("query", query))
		return Lookup{}, nil
	}
	return Lookup{Found: true, Student: newStudent(s.rubric, mode, query, form, score, task)}, nil
}

func (s *Service) first(ctx context.Context, coll string, f records.Eq) *records.Record {
	rows, err := s.store.QueryByFilter(ctx, coll, f, 1)
	if err != nil {
		s.log.Warn("record store query failed",
			zap.String("collection", coll), zap.String("filter", f.Formula()), zap.Error(err))
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

// StageFields builds the record fields persisted for one stage of st. Every
// criterion of the stage is written; a cleared one is written as nil.
func (s *Service) StageFields(st *Student, stage string) (map[string]any, error) {
	fields := map[string]any{}
	if stage == grading.BonusStage {
		fields[s.rubric.Bonus.Field] = st.Bonus
		fields[s.rubric.Bonus.ReasonField] = st.BonusReason
		return fields, nil
	}
	def, ok := s.rubric.Stage(stage)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	ss := st.Stages[stage]
	if ss == nil {
		ss = &StageScores{}
	}
	for _, c := range def.Criteria {
		if v, ok := ss.Scores[c.Key]; ok {
			fields[c.Key] = v
		} else {
			fields[c.Key] = nil
		}
		if r, ok := ss.Reasons[c.Key]; ok {
			fields[c.ReasonField()] = r
		}
	}
	evaluators := ss.Evaluators
	if evaluators == nil {
		evaluators = []string{}
	}
	fields[def.EvaluatorField] = evaluators
	return fields, nil
}

// SaveStage persists one stage of st and returns the score record id, which
// is new when the candidate had no score record yet. st is not modified. The
// id is also returned with a SaveError when the stage was written but its
// derived totals were not.
func (s *Service) SaveStage(ctx context.Context, st *Student, stage, by string) (string, error) {
	fields, err := s.StageFields(st, stage)
	if err != nil {
		return "", err
	}

	var rec records.Record
	if st.ScoreRecordID != "" {
		rec, err = s.store.UpdateRecord(ctx, s.coll.Scores, st.ScoreRecordID, fields)
	} else {
		if st.AdmissionNo != "" {
			fields[FieldAdmissionNo] = st.AdmissionNo
		}
		if st.ChestNo != "" {
			fields[FieldChestNo] = st.ChestNo
		}
		if s.derivedTotals {
			for k, v := range s.totalFields(fields) {
				fields[k] = v
			}
		}
		rec, err = s.store.CreateRecord(ctx, s.coll.Scores, fields)
	}
	if err != nil {
		s.log.Error("stage save failed", zap.String("stage", stage),
			zap.String("chest_no", st.ChestNo), zap.Error(err))
		return "", &SaveError{Stage: stage, Err: err}
	}

	// an update only carries one stage, so totals come from the merged row
	if s.derivedTotals && st.ScoreRecordID != "" {
		totals := s.totalFields(rec.Fields)
		if _, err := s.store.UpdateRecord(ctx, s.coll.Scores, rec.ID, totals); err != nil {
			s.log.Error("total update failed", zap.String("stage", stage),
				zap.String("record", rec.ID), zap.Error(err))
			return rec.ID, &SaveError{Stage: stage, Err: err}
		}
		for k, v := range totals {
			fields[k] = v
		}
	}

	s.log.Info("stage saved", zap.String("stage", stage), zap.String("record", rec.ID),
		zap.String("chest_no", st.ChestNo), zap.String("by", by))
	s.audit(ctx, stage, by, rec.ID, fields)
	return rec.ID, nil
}

// totalFields derives the stage total columns and FINAL_TOTAL from the
// criterion and bonus values in fields.
func (s *Service) totalFields(fields map[string]any) map[string]any {
	t := grading.GrandTotal(s.rubric, fields)
	out := map[string]any{ranking.FieldFinalTotal: t.Grand}
	for _, st := range s.rubric.Stages {
		if st.TotalField != "" {
			out[st.TotalField] = t.Stages[st.Key]
		}
	}
	return out
}

func (s *Service) audit(ctx context.Context, stage, by, recordID string, fields map[string]any) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(map[string]any{"stage": stage, "by": by, "fields": fields})
	if err != nil {
		s.log.Warn("audit encode failed", zap.Error(err))
		return
	}
	if err := s.events.Append(ctx, syncx.Event{Type: syncx.TypeStageSaved, Key: recordID, DataJSON: string(data)}); err != nil {
		s.log.Warn("audit append failed", zap.String("record", recordID), zap.Error(err))
	}
}

// Leaderboard loads both collections in full and ranks every score row. A
// failed fetch leaves that side empty.
func (s *Service) Leaderboard(ctx context.Context) []ranking.Row {
	var scores, interns []records.Record
	var g errgroup.Group
	g.Go(func() error {
		scores = s.all(ctx, s.coll.Scores)
		return nil
	})
	g.Go(func() error {
		interns = s.all(ctx, s.coll.Applicants)
		return nil
	})
	_ = g.Wait()

	var totals []string
	for _, st := range s.rubric.Stages {
		if st.TotalField != "" {
			totals = append(totals, st.TotalField)
		}
	}
	return ranking.Build(scores, interns, ranking.Options{Cutoff: s.cutoff, StageTotalFields: totals})
}

func (s *Service) all(ctx context.Context, coll string) []records.Record {
	rows, err := s.store.QueryAll(ctx, coll)
	if err != nil {
		s.log.Warn("record store scan failed", zap.String("collection", coll), zap.Error(err))
		return nil
	}
	return rows
}
