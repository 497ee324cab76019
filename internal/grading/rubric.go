package grading

import (
	"fmt"

	"github.com/mind-engage/mindengage-selection/internal/records"
)

type Criterion struct {
	Key       string  `json:"key" yaml:"key"`
	Label     string  `json:"label" yaml:"label"`
	Desc      string  `json:"desc,omitempty" yaml:"desc"`
	MaxPoints float64 `json:"max_points" yaml:"max"`
}

// ReasonField is the record field holding the evaluator's note for c.
func (c Criterion) ReasonField() string { return c.Key + "_Reason" }

type Stage struct {
	Key            string      `json:"key" yaml:"key"`
	Title          string      `json:"title" yaml:"title"`
	EvaluatorField string      `json:"evaluator_field" yaml:"evaluator_field"`
	TotalField     string      `json:"total_field" yaml:"total_field"`
	Criteria       []Criterion `json:"criteria" yaml:"criteria"`
}

// MaxPoints is the best subtotal the stage can produce.
func (s Stage) MaxPoints() float64 {
	total := 0.0
	for _, c := range s.Criteria {
		total += c.MaxPoints
	}
	return total
}

type Bonus struct {
	Field       string  `json:"field" yaml:"field"`
	ReasonField string  `json:"reason_field" yaml:"reason_field"`
	MaxPoints   float64 `json:"max_points" yaml:"max"`
}

type Rubric struct {
	Stages     []Stage  `json:"stages" yaml:"stages"`
	Bonus      Bonus    `json:"bonus" yaml:"bonus"`
	Evaluators []string `json:"evaluators" yaml:"evaluators"`
}

func (r Rubric) Stage(key string) (Stage, bool) {
	for _, s := range r.Stages {
		if s.Key == key {
			return s, true
		}
	}
	return Stage{}, false
}

func (r Rubric) MaxTotal() float64 {
	total := r.Bonus.MaxPoints
	for _, s := range r.Stages {
		total += s.MaxPoints()
	}
	return total
}

// Totals are the derived subtotals of one candidate.
type Totals struct {
	Stages map[string]float64 `json:"stages"`
	Bonus  float64            `json:"bonus"`
	Grand  float64            `json:"grand"`
}

// Clamp coerces v to a number and limits it to [min, max]. Values that are not
// finite numbers count as 0.
func Clamp(v any, min, max float64) float64 {
	n, ok := records.ToNumber(v)
	if !ok {
		return 0
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// StageTotal sums the clamped score of every criterion. Missing keys add 0.
func StageTotal(criteria []Criterion, scores map[string]any) float64 {
	total := 0.0
	for _, c := range criteria {
		total += Clamp(scores[c.Key], 0, c.MaxPoints)
	}
	return total
}

// ScoreStage is StageTotal plus a per-criterion note for logs.
func ScoreStage(s Stage, scores map[string]any) (float64, []string) {
	total := 0.0
	notes := make([]string, 0, len(s.Criteria))
	for _, c := range s.Criteria {
		v := Clamp(scores[c.Key], 0, c.MaxPoints)
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", c.Key, v))
	}
	return total, notes
}

// GrandTotal computes every stage subtotal and the clamped bonus from one
// flat score mapping keyed by criterion key and bonus field.
func GrandTotal(r Rubric, scores map[string]any) Totals {
	t := Totals{Stages: make(map[string]float64, len(r.Stages))}
	for _, s := range r.Stages {
		st := StageTotal(s.Criteria, scores)
		t.Stages[s.Key] = st
		t.Grand += st
	}
	t.Bonus = Clamp(scores[r.Bonus.Field], 0, r.Bonus.MaxPoints)
	t.Grand += t.Bonus
	return t
}
