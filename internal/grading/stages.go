package grading

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var defaultRubricYAML []byte

// BonusStage is the save unit name for the bonus award.
const BonusStage = "bonus"

// DefaultRubric returns the built-in three stage rubric.
func DefaultRubric() Rubric {
	r, err := parseRubric(defaultRubricYAML)
	if err != nil {
		panic("grading: embedded rubric: " + err.Error())
	}
	return r
}

// LoadRubric reads a rubric from YAML and validates it.
func LoadRubric(rd io.Reader) (Rubric, error) {
	b, err := io.ReadAll(rd)
	if err != nil {
		return Rubric{}, err
	}
	return parseRubric(b)
}

// LoadRubricFile loads path, or the default rubric when path is empty.
func LoadRubricFile(path string) (Rubric, error) {
	if path == "" {
		return DefaultRubric(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Rubric{}, err
	}
	defer f.Close()
	r, err := LoadRubric(f)
	if err != nil {
		return Rubric{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func parseRubric(b []byte) (Rubric, error) {
	var r Rubric
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rubric{}, err
	}
	if err := r.Validate(); err != nil {
		return Rubric{}, err
	}
	return r, nil
}

func (r Rubric) Validate() error {
	if len(r.Stages) == 0 {
		return errors.New("rubric has no stages")
	}
	seenStage := map[string]bool{BonusStage: true}
	seenKey := map[string]bool{}
	for _, s := range r.Stages {
		if s.Key == "" || seenStage[s.Key] {
			return fmt.Errorf("stage key %q is empty, reserved or duplicated", s.Key)
		}
		seenStage[s.Key] = true
		if s.EvaluatorField == "" {
			return fmt.Errorf("stage %s: evaluator_field required", s.Key)
		}
		for _, c := range s.Criteria {
			if c.Key == "" || seenKey[c.Key] {
				return fmt.Errorf("stage %s: criterion key %q is empty or duplicated", s.Key, c.Key)
			}
			seenKey[c.Key] = true
			if !(c.MaxPoints > 0) {
				return fmt.Errorf("criterion %s: max must be positive", c.Key)
			}
		}
	}
	if r.Bonus.Field == "" || !(r.Bonus.MaxPoints > 0) {
		return errors.New("bonus needs a field and a positive max")
	}
	return nil
}

// ScoreOptions lists the values offered for a criterion: 0 to max in 0.5 steps.
func ScoreOptions(max float64) []float64 {
	if !(max > 0) {
		return []float64{0}
	}
	n := int(max/0.5) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * 0.5
	}
	return out
}
