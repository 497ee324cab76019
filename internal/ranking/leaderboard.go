// Package ranking joins score rows with applicant rows into a sorted,
// classified leaderboard.
package ranking

import (
	"sort"

	"github.com/mind-engage/mindengage-selection/internal/records"
)

// Placeholder fills name and department when no applicant links to a row.
const Placeholder = "---"

// DefaultCutoff is how many ranks are selected outright.
const DefaultCutoff = 12

// Field names read from the two collections.
const (
	FieldChestNo    = "CHEST_NO"
	FieldFinalTotal = "FINAL_TOTAL"
	FieldName       = "Name"
	FieldDepartment = "department"
	FieldDeptAlt    = "DEPT"
	FieldBonus      = "Bonus_Participation"
)

type Bucket string

const (
	BucketRejected Bucket = "rejected" // no score
	BucketSelected Bucket = "selected"
	BucketWaiting  Bucket = "waiting"
)

type Row struct {
	Rank       int     `json:"rank"`
	ChestNo    string  `json:"chest_no"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	S1         float64 `json:"s1"`
	S2         float64 `json:"s2"`
	S3         float64 `json:"s3"`
	WithoutS1  float64 `json:"without_s1"`
	FinalTotal float64 `json:"final_total"`
	Bucket     Bucket  `json:"bucket"`
}

type Options struct {
	// Cutoff is the last rank classified as selected. Zero means DefaultCutoff.
	Cutoff int
	// StageTotalFields are the precomputed per-stage total fields, in stage
	// order. The first stage is the one excluded from WithoutS1.
	StageTotalFields []string
}

var defaultStageTotals = []string{"TOTAL_S1", "TOTAL_S2", "TOTAL_S3"}

type applicant struct {
	name, department string
}

// Build produces one row per score record, sorted by final total descending.
// Equal totals keep their input order.
func Build(scoreRows, internRows []records.Record, opts Options) []Row {
	if opts.Cutoff <= 0 {
		opts.Cutoff = DefaultCutoff
	}
	if len(opts.StageTotalFields) == 0 {
		opts.StageTotalFields = defaultStageTotals
	}

	byID := make(map[string]map[string]any, len(scoreRows))
	for _, r := range scoreRows {
		byID[r.ID] = r.Fields
	}

	byChest := make(map[string]applicant, len(internRows))
	for _, r := range internRows {
		linkID, ok := records.SingleLink(r.Fields, FieldChestNo)
		if !ok {
			continue
		}
		score, ok := byID[linkID]
		if !ok {
			continue
		}
		chest := records.Text(score, FieldChestNo)
		if chest == "" {
			continue
		}
		byChest[chest] = applicant{
			name:       orPlaceholder(records.Text(r.Fields, FieldName)),
			department: orPlaceholder(firstText(r.Fields, FieldDepartment, FieldDeptAlt)),
		}
	}

	rows := make([]Row, 0, len(scoreRows))
	for _, r := range scoreRows {
		f := r.Fields
		chest := records.Text(f, FieldChestNo)
		a, ok := byChest[chest]
		if !ok {
			a = applicant{name: Placeholder, department: Placeholder}
		}
		row := Row{
			ChestNo:    chest,
			Name:       a.name,
			Department: a.department,
			FinalTotal: number(f, FieldFinalTotal),
		}
		stages := make([]float64, len(opts.StageTotalFields))
		for i, k := range opts.StageTotalFields {
			stages[i] = number(f, k)
		}
		row.S1, row.S2, row.S3 = at(stages, 0), at(stages, 1), at(stages, 2)
		row.WithoutS1 = number(f, FieldBonus)
		for _, v := range stages[min(1, len(stages)):] {
			row.WithoutS1 += v
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FinalTotal > rows[j].FinalTotal
	})
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].Bucket = Classify(rows[i].Rank, rows[i].FinalTotal, opts.Cutoff)
	}
	return rows
}

// Classify derives the display bucket of a ranked row.
func Classify(rank int, final float64, cutoff int) Bucket {
	switch {
	case final == 0:
		return BucketRejected
	case rank <= cutoff:
		return BucketSelected
	default:
		return BucketWaiting
	}
}

func number(f map[string]any, key string) float64 {
	v, _ := records.Number(f, key)
	return v
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func firstText(f map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := records.Text(f, k); s != "" {
			return s
		}
	}
	return ""
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
