package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mind-engage/mindengage-selection/internal/grading"
)

var (
	// ErrStaleSearch is returned to a search that was overtaken by a newer one
	// on the same desk. Its result has been discarded.
	ErrStaleSearch = errors.New("search superseded by a newer one")
	ErrNoCandidate = errors.New("no candidate loaded")
	// ErrCandidateChanged means a new search replaced the candidate while a
	// save was in flight; the save went through but its result was not applied.
	ErrCandidateChanged = errors.New("candidate replaced during save")
)

// Desk is one staff member's working state: the candidate currently loaded
// and its unsaved edits.
type Desk struct {
	svc   *Service
	owner string

	// saveMu serializes saves so a first save's new score record id is seen
	// by the next one
	saveMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	current *Student
}

func NewDesk(svc *Service, owner string) *Desk {
	return &Desk{svc: svc, owner: owner}
}

// Search replaces the loaded candidate with the result of a new lookup. When
// searches overlap only the last one issued installs its result.
func (d *Desk) Search(ctx context.Context, mode SearchMode, query string) (Lookup, error) {
	d.mu.Lock()
	d.gen++
	ticket := d.gen
	d.mu.Unlock()

	res, err := d.svc.Search(ctx, mode, query)

	d.mu.Lock()
	defer d.mu.Unlock()
	if ticket != d.gen {
		return Lookup{}, ErrStaleSearch
	}
	if err != nil {
		return Lookup{}, err
	}
	d.current = res.Student
	return Lookup{Found: res.Found, Student: res.Student.Clone()}, nil
}

// Current returns a copy of the loaded candidate, or nil.
func (d *Desk) Current() *Student {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current.Clone()
}

// StagePatch carries edits to one stage. Nil members are left alone; a nil
// score value clears that criterion.
type StagePatch struct {
	Scores      map[string]*float64 `json:"scores,omitempty"`
	Reasons     map[string]string   `json:"reasons,omitempty"`
	Evaluators  *[]string           `json:"evaluators,omitempty"`
	Bonus       *float64            `json:"bonus,omitempty"`
	BonusReason *string             `json:"bonus_reason,omitempty"`
}

// Edit applies p to the loaded candidate and recomputes its totals. The patch
// is validated as a whole before anything changes.
func (d *Desk) Edit(stage string, p StagePatch) (*Student, error) {
	r := d.svc.rubric
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.current
	if st == nil {
		return nil, ErrNoCandidate
	}

	if stage == grading.BonusStage {
		if p.Bonus != nil && (*p.Bonus < 0 || *p.Bonus > r.Bonus.MaxPoints) {
			return nil, fmt.Errorf("%w: bonus must be within 0..%g", ErrInvalidEdit, r.Bonus.MaxPoints)
		}
		if p.Bonus != nil {
			st.Bonus = *p.Bonus
		}
		if p.BonusReason != nil {
			st.BonusReason = *p.BonusReason
		}
		st.recompute(r)
		return st.Clone(), nil
	}

	def, ok := r.Stage(stage)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	limits := make(map[string]float64, len(def.Criteria))
	for _, c := range def.Criteria {
		limits[c.Key] = c.MaxPoints
	}
	for k, v := range p.Scores {
		limit, ok := limits[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a %s criterion", ErrInvalidEdit, k, stage)
		}
		if v != nil && (*v < 0 || *v > limit) {
			return nil, fmt.Errorf("%w: %s must be within 0..%g", ErrInvalidEdit, k, limit)
		}
	}
	for k := range p.Reasons {
		if _, ok := limits[k]; !ok {
			return nil, fmt.Errorf("%w: %s is not a %s criterion", ErrInvalidEdit, k, stage)
		}
	}

	ss := st.Stages[stage]
	if ss == nil {
		ss = &StageScores{Scores: map[string]float64{}, Reasons: map[string]string{}, Evaluators: []string{}}
		st.Stages[stage] = ss
	}
	for k, v := range p.Scores {
		if v == nil {
			delete(ss.Scores, k)
			continue
		}
		ss.Scores[k] = *v
	}
	for k, v := range p.Reasons {
		ss.Reasons[k] = v
	}
	if p.Evaluators != nil {
		ss.Evaluators = cleanNames(*p.Evaluators)
	}
	st.recompute(r)
	return st.Clone(), nil
}

// Save persists one stage of the loaded candidate. On success the stage is
// marked saved and a newly created score record id is remembered.
func (d *Desk) Save(ctx context.Context, stage string) (*Student, error) {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.Lock()
	st := d.current
	snapshot := st.Clone()
	d.mu.Unlock()
	if st == nil {
		return nil, ErrNoCandidate
	}

	id, err := d.svc.SaveStage(ctx, snapshot, stage, d.owner)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == st && st.ScoreRecordID == "" {
		st.ScoreRecordID = id
	}
	if err != nil {
		return nil, err
	}
	if d.current != st {
		return nil, ErrCandidateChanged
	}
	if stage == grading.BonusStage {
		st.BonusSaved = true
	} else if ss := st.Stages[stage]; ss != nil {
		ss.Saved = true
	}
	return st.Clone(), nil
}

// cleanNames trims, drops blanks and repeats, keeping first-seen order.
func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Desks hands out one Desk per staff member.
type Desks struct {
	svc *Service

	mu    sync.Mutex
	desks map[string]*Desk
}

func NewDesks(svc *Service) *Desks {
	return &Desks{svc: svc, desks: map[string]*Desk{}}
}

func (ds *Desks) For(owner string) *Desk {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d, ok := ds.desks[owner]
	if !ok {
		d = NewDesk(ds.svc, owner)
		ds.desks[owner] = d
	}
	return d
}
