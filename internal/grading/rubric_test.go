package grading

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5, 0, 10))
	assert.Equal(t, 10.0, Clamp(15, 0, 10))
	assert.Equal(t, 0.0, Clamp("abc", 0, 10))
	assert.Equal(t, 6.5, Clamp("6.5", 0, 10))
	assert.Equal(t, 0.0, Clamp(nil, 0, 10))
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 10))
	assert.Equal(t, 0.0, Clamp(math.Inf(1), 0, 10))
}

func TestStageTotalEmptyScores(t *testing.T) {
	for _, s := range DefaultRubric().Stages {
		assert.Zero(t, StageTotal(s.Criteria, map[string]any{}), s.Key)
		assert.Zero(t, StageTotal(s.Criteria, nil), s.Key)
	}
}

func TestStageTotalClampsEachCriterion(t *testing.T) {
	s1, ok := DefaultRubric().Stage("stage1")
	require.True(t, ok)
	scores := map[string]any{
		"S1_Completion_Timeliness": 20.0,  // capped at 8
		"S1_Skill_Technical":       -3.0,  // floored at 0
		"S1_Originality":           "4.5", // numeric text
		"S1_Relevance":             "n/a", // ignored
		"Unrelated":                100.0,
	}
	assert.Equal(t, 12.5, StageTotal(s1.Criteria, scores))

	total, notes := ScoreStage(s1, scores)
	assert.Equal(t, 12.5, total)
	assert.Equal(t, []string{
		"S1_Completion_Timeliness:8.00",
		"S1_Skill_Technical:0.00",
		"S1_Originality:4.50",
		"S1_Relevance:0.00",
	}, notes)
}

func TestStageTotalBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	junk := []any{"abc", nil, true, math.NaN(), "", []string{"x"}}
	for _, s := range DefaultRubric().Stages {
		for i := 0; i < 200; i++ {
			scores := map[string]any{}
			for _, c := range s.Criteria {
				if rng.Intn(4) == 0 {
					scores[c.Key] = junk[rng.Intn(len(junk))]
					continue
				}
				scores[c.Key] = rng.Float64()*40 - 20
			}
			got := StageTotal(s.Criteria, scores)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, s.MaxPoints())
		}
	}
}

func TestGrandTotal(t *testing.T) {
	r := DefaultRubric()
	scores := map[string]any{
		"S1_Skill_Technical":  12.0,
		"S2_Communication":    6.5,
		"S3_Reliability":      5.0,
		"Bonus_Participation": 9.0,
	}
	got := GrandTotal(r, scores)
	assert.Equal(t, 12.0, got.Stages["stage1"])
	assert.Equal(t, 6.5, got.Stages["stage2"])
	assert.Equal(t, 5.0, got.Stages["stage3"])
	assert.Equal(t, 5.0, got.Bonus, "bonus is capped at 5")
	assert.Equal(t, 28.5, got.Grand)
}

func TestDefaultRubricShape(t *testing.T) {
	r := DefaultRubric()
	require.Len(t, r.Stages, 3)
	maxes := map[string]float64{}
	for _, s := range r.Stages {
		maxes[s.Key] = s.MaxPoints()
	}
	assert.Equal(t, map[string]float64{"stage1": 30, "stage2": 35, "stage3": 35}, maxes)
	assert.Equal(t, 105.0, r.MaxTotal())
	assert.Contains(t, r.Evaluators, "Shamil")
}

func TestLoadRubricRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"no stages": "bonus: {field: B, max: 5}\n",
		"dup key": `
stages:
  - key: a
    evaluator_field: A_Ev
    criteria: [{key: X, max: 1}, {key: X, max: 2}]
bonus: {field: B, max: 5}
`,
		"zero max": `
stages:
  - key: a
    evaluator_field: A_Ev
    criteria: [{key: X, max: 0}]
bonus: {field: B, max: 5}
`,
		"reserved stage": `
stages:
  - key: bonus
    evaluator_field: A_Ev
    criteria: [{key: X, max: 1}]
bonus: {field: B, max: 5}
`,
	}
	for name, y := range cases {
		_, err := LoadRubric(strings.NewReader(y))
		assert.Error(t, err, name)
	}
}

func TestScoreOptions(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2}, ScoreOptions(2))
	assert.Len(t, ScoreOptions(7), 15)
	assert.Equal(t, []float64{0}, ScoreOptions(0))
}
