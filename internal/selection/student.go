package selection

import (
	"github.com/mind-engage/mindengage-selection/internal/grading"
	"github.com/mind-engage/mindengage-selection/internal/records"
)

// Field names shared by the applicant, score and task collections.
const (
	FieldChestNo     = "CHEST_NO"
	FieldAdmissionNo = "Admission_No"
	FieldName        = "Name"
	FieldDepartment  = "department"
	FieldTaskRole    = "Task_Role"
	FieldTaskLink    = "Task_Link"
	FieldIntroduce   = "introduce"
)

type SearchMode string

const (
	ByChest     SearchMode = "chest"
	ByAdmission SearchMode = "admission"
)

func (m SearchMode) field() string {
	if m == ByChest {
		return FieldChestNo
	}
	return FieldAdmissionNo
}

// StageScores is the editable state of one stage.
type StageScores struct {
	Scores     map[string]float64 `json:"scores"`
	Reasons    map[string]string  `json:"reasons"`
	Evaluators []string           `json:"evaluators"`
	Saved      bool               `json:"saved"`
}

type Task struct {
	Role       string `json:"role,omitempty"`
	Link       string `json:"link,omitempty"`
	Introduced bool   `json:"introduced"`
}

type FormAnswer struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// formFields lists the applicant answers shown on a candidate, in order.
var formFields = []struct{ label, key string }{
	{"Email", "email"},
	{"Phone", "Phone_number"},
	{"Department", "department"},
	{"Year", "year"},
	{"Preferred Role", "preferred_role"},
	{"Expectations", "expectations"},
	{"Why join", "reason"},
	{"Hobby", "hobby"},
}

// Student is everything known about one candidate during a search.
type Student struct {
	ScoreRecordID     string `json:"score_record_id,omitempty"`
	ApplicantRecordID string `json:"applicant_record_id,omitempty"`

	AdmissionNo string `json:"admission_no"`
	ChestNo     string `json:"chest_no"`
	Name        string `json:"name"`
	Department  string `json:"department"`

	Form []FormAnswer `json:"form"`
	Task Task         `json:"task"`

	Stages      map[string]*StageScores `json:"stages"`
	Bonus       float64                 `json:"bonus"`
	BonusReason string                  `json:"bonus_reason"`
	BonusSaved  bool                    `json:"bonus_saved"`

	Totals         grading.Totals       `json:"totals"`
	InterviewGrade grading.GradeSummary `json:"interview_grade"`
	OverallGrade   grading.GradeSummary `json:"overall_grade"`
}

// Lookup is the outcome of a search. Found=false is the empty result, not an error.
type Lookup struct {
	Found   bool     `json:"found"`
	Student *Student `json:"student,omitempty"`
}

// newStudent shapes the three (possibly empty) rows into a Student.
func newStudent(r grading.Rubric, mode SearchMode, query string, form, score, task *records.Record) *Student {
	ff, sf, tf := fieldsOf(form), fieldsOf(score), fieldsOf(task)
	st := &Student{
		AdmissionNo: firstText(records.Text(ff, FieldAdmissionNo), records.Text(sf, FieldAdmissionNo)),
		Name:        records.Text(ff, FieldName),
		Department:  records.Text(ff, FieldDepartment),
		Stages:      make(map[string]*StageScores, len(r.Stages)),
		Task: Task{
			Role:       records.Text(tf, FieldTaskRole),
			Link:       records.Text(tf, FieldTaskLink),
			Introduced: records.Bool(tf, FieldIntroduce),
		},
	}
	if form != nil {
		st.ApplicantRecordID = form.ID
	}
	if score != nil {
		st.ScoreRecordID = score.ID
	}

	// the score row carries the chest number as text; the applicant row only
	// links to it, so the link is used only when it happens to be plain text
	var queried string
	if mode == ByChest {
		queried = query
	}
	var formChest string
	if s, ok := ff[FieldChestNo].(string); ok {
		formChest = s
	}
	st.ChestNo = firstText(records.Text(sf, FieldChestNo), queried, formChest)

	for _, q := range formFields {
		st.Form = append(st.Form, FormAnswer{Label: q.label, Value: records.Text(ff, q.key)})
	}

	for _, stage := range r.Stages {
		ss := &StageScores{
			Scores:     map[string]float64{},
			Reasons:    map[string]string{},
			Evaluators: records.Strings(sf, stage.EvaluatorField),
		}
		for _, c := range stage.Criteria {
			if v, ok := records.Number(sf, c.Key); ok {
				ss.Scores[c.Key] = v
			}
			if reason, ok := sf[c.ReasonField()].(string); ok {
				ss.Reasons[c.Key] = reason
			}
		}
		if ss.Evaluators == nil {
			ss.Evaluators = []string{}
		}
		ss.Saved = len(ss.Evaluators) > 0
		st.Stages[stage.Key] = ss
	}
	if _, ok := sf[r.Bonus.Field]; ok {
		st.BonusSaved = true
		st.Bonus, _ = records.Number(sf, r.Bonus.Field)
	}
	st.BonusReason = records.Text(sf, r.Bonus.ReasonField)

	grades := make(map[string]string, len(grading.OverallGradeFields))
	for _, k := range grading.OverallGradeFields {
		grades[k] = records.Text(sf, k)
	}
	st.InterviewGrade = grading.InterviewGrade(grades)
	st.OverallGrade = grading.OverallGrade(grades, st.Task.Introduced)

	st.recompute(r)
	return st
}

// flatScores merges every stage and the bonus into one criterion-keyed map.
func (st *Student) flatScores(r grading.Rubric) map[string]any {
	flat := map[string]any{r.Bonus.Field: st.Bonus}
	for _, ss := range st.Stages {
		for k, v := range ss.Scores {
			flat[k] = v
		}
	}
	return flat
}

func (st *Student) recompute(r grading.Rubric) {
	st.Totals = grading.GrandTotal(r, st.flatScores(r))
}

// Clone deep-copies the editable state.
func (st *Student) Clone() *Student {
	if st == nil {
		return nil
	}
	out := *st
	out.Form = append([]FormAnswer(nil), st.Form...)
	out.Stages = make(map[string]*StageScores, len(st.Stages))
	for k, ss := range st.Stages {
		c := &StageScores{
			Scores:     make(map[string]float64, len(ss.Scores)),
			Reasons:    make(map[string]string, len(ss.Reasons)),
			Evaluators: append([]string{}, ss.Evaluators...),
			Saved:      ss.Saved,
		}
		for kk, v := range ss.Scores {
			c.Scores[kk] = v
		}
		for kk, v := range ss.Reasons {
			c.Reasons[kk] = v
		}
		out.Stages[k] = c
	}
	out.Totals.Stages = make(map[string]float64, len(st.Totals.Stages))
	for k, v := range st.Totals.Stages {
		out.Totals.Stages[k] = v
	}
	return &out
}

func fieldsOf(r *records.Record) map[string]any {
	if r == nil || r.Fields == nil {
		return map[string]any{}
	}
	return r.Fields
}

func firstText(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
