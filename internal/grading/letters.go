package grading

import (
	"encoding/json"
	"math"
	"strings"
)

// NoGradesAvailable is reported when none of the selected fields carries a
// countable letter grade.
const NoGradesAvailable = "No Grades Available"

var letterValues = map[string]float64{
	"O":  100,
	"A+": 90,
	"A":  85,
	"A-": 80,
	"B+": 75,
	"B":  70,
	"B-": 65,
	"C+": 60,
	"C":  55,
	"C-": 50,
	"D":  45,
	"F":  0,
}

// LetterValue maps a letter grade to the 0–100 scale. Unknown and empty
// grades are 0.
func LetterValue(grade string) float64 {
	return letterValues[strings.TrimSpace(grade)]
}

// GradeSummary is an averaged letter grade. When Available is false the
// summary stands for NoGradesAvailable.
type GradeSummary struct {
	Available   bool
	Percentage  float64
	Qualitative string
}

func (g GradeSummary) String() string {
	if !g.Available {
		return NoGradesAvailable
	}
	return g.Qualitative
}

func (g GradeSummary) MarshalJSON() ([]byte, error) {
	if !g.Available {
		return json.Marshal(NoGradesAvailable)
	}
	return json.Marshal(struct {
		Percentage  float64 `json:"percentage"`
		Qualitative string  `json:"qualitative"`
	}{g.Percentage, g.Qualitative})
}

func (g *GradeSummary) UnmarshalJSON(b []byte) error {
	var sentinel string
	if json.Unmarshal(b, &sentinel) == nil {
		*g = GradeSummary{}
		return nil
	}
	var v struct {
		Percentage  float64 `json:"percentage"`
		Qualitative string  `json:"qualitative"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*g = GradeSummary{Available: true, Percentage: v.Percentage, Qualitative: v.Qualitative}
	return nil
}

// AverageGrade averages the letter grades found under keys. Grades worth 0
// (F, empty, unknown, absent) are left out of the average entirely, so a
// failed field and a missing one count the same.
func AverageGrade(fields map[string]string, keys []string) GradeSummary {
	total, n := 0.0, 0
	for _, k := range keys {
		v := LetterValue(fields[k])
		if v == 0 {
			continue
		}
		total += v
		n++
	}
	if n == 0 {
		return GradeSummary{}
	}
	avg := total / float64(n)
	return GradeSummary{
		Available:   true,
		Percentage:  math.Round(avg*100) / 100,
		Qualitative: Qualitative(avg),
	}
}

// Qualitative buckets a 0–100 average.
func Qualitative(avg float64) string {
	switch {
	case avg >= 90:
		return "Excellent"
	case avg >= 80:
		return "Good"
	case avg >= 70:
		return "Average"
	case avg >= 60:
		return "Below Average"
	default:
		return "Poor"
	}
}

// Field sets for the two grade summaries shown on a candidate.
var (
	InterviewGradeFields = []string{
		"COMMUNICATION_GRADE",
		"ATITTUDE_GRADE",
		"DEDICATION_GRADE",
		"CONFIDENCE_GRADE",
		"COMMUNITY_KNOWLEDGE_GRADE",
	}
	OverallGradeFields = []string{
		"FORM_GRADE",
		"INTERVIEW_OVERALL_GRADE",
		"COMMUNICATION_GRADE",
		"ATITTUDE_GRADE",
		"CAMP_GRADE_by_volunteer",
		"TASK_GRADE",
		"COMMUNITY_KNOWLEDGE_GRADE",
		"DEDICATION_GRADE",
		"CONFIDENCE_GRADE",
		"TASK_GRADE2",
		"PRESENTATION_GRADE_by_judge",
		"BONUS_GRADE",
		TaskIntroducedGrade,
	}
)

// TaskIntroducedGrade is the derived grade field for the task submission's
// "introduce" checkbox.
const TaskIntroducedGrade = "TASK_INTRODUCED"

// InterviewGrade averages the interview fields only.
func InterviewGrade(grades map[string]string) GradeSummary {
	return AverageGrade(grades, InterviewGradeFields)
}

// OverallGrade averages every grade field. introduced is the task
// submission flag; a checked box counts as an A.
func OverallGrade(grades map[string]string, introduced bool) GradeSummary {
	all := make(map[string]string, len(grades)+1)
	for k, v := range grades {
		all[k] = v
	}
	all[TaskIntroducedGrade] = ""
	if introduced {
		all[TaskIntroducedGrade] = "A"
	}
	return AverageGrade(all, OverallGradeFields)
}
