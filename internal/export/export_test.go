package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-selection/internal/grading"
	"github.com/mind-engage/mindengage-selection/internal/ranking"
	"github.com/mind-engage/mindengage-selection/internal/selection"
)

var sampleRows = []ranking.Row{
	{Rank: 1, ChestNo: "C01", Name: "Alice", Department: "CS", S1: 20, S2: 30, S3: 30, WithoutS1: 62, FinalTotal: 82, Bucket: ranking.BucketSelected},
	{Rank: 2, ChestNo: "C07", Name: ranking.Placeholder, Department: ranking.Placeholder, FinalTotal: 0, Bucket: ranking.BucketRejected},
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Chest No", rows[0][1])
	assert.Equal(t, []string{"1", "C01", "Alice", "CS", "20", "30", "30", "62", "82", "selected"}, rows[1])
	assert.Equal(t, "rejected", rows[2][9])
}

func TestSnapshotKey(t *testing.T) {
	ts := time.Date(2025, 7, 3, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "exports/ranklist-20250703-140509.xlsx", SnapshotKey(ts))
}

func TestRenderRanklist(t *testing.T) {
	var buf bytes.Buffer
	RenderRanklist(&buf, sampleRows)
	out := buf.String()
	assert.Contains(t, out, "C01")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "rejected")
}

func TestRenderStudent(t *testing.T) {
	color.NoColor = true
	r := grading.DefaultRubric()
	st := &selection.Student{
		Name:    "Alice",
		ChestNo: "C01",
		Stages: map[string]*selection.StageScores{
			"stage1": {Scores: map[string]float64{"S1_Relevance": 3.5}, Reasons: map[string]string{"S1_Relevance": "solid"}},
		},
		Totals: grading.Totals{Stages: map[string]float64{"stage1": 3.5}, Grand: 3.5},
	}

	var buf bytes.Buffer
	RenderStudent(&buf, r, st)
	out := buf.String()
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "3.5")
	assert.Contains(t, out, "solid")
	assert.Contains(t, out, grading.NoGradesAvailable)
}
