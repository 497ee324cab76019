package ranking

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-selection/internal/records"
)

func TestBuildScenario(t *testing.T) {
	scores := []records.Record{
		{ID: "r1", Fields: map[string]any{"CHEST_NO": "C1", "FINAL_TOTAL": 80.0}},
		{ID: "r2", Fields: map[string]any{"CHEST_NO": "C2", "FINAL_TOTAL": 0.0}},
	}
	interns := []records.Record{
		{ID: "i1", Fields: map[string]any{"CHEST_NO": []string{"r1"}, "Name": "Alice", "department": "CS"}},
	}

	got := Build(scores, interns, Options{})
	want := []Row{
		{Rank: 1, ChestNo: "C1", Name: "Alice", Department: "CS", FinalTotal: 80, Bucket: BucketSelected},
		{Rank: 2, ChestNo: "C2", Name: "---", Department: "---", FinalTotal: 0, Bucket: BucketRejected},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildOneRowPerScoreRecord(t *testing.T) {
	scores := []records.Record{
		{ID: "r1", Fields: map[string]any{"CHEST_NO": "C1", "FINAL_TOTAL": 10.0}},
	}
	interns := []records.Record{
		{ID: "i1", Fields: map[string]any{"CHEST_NO": []string{"r1"}, "Name": "Alice"}},
		{ID: "i2", Fields: map[string]any{"CHEST_NO": []string{"r404"}, "Name": "Orphan"}},
		{ID: "i3", Fields: map[string]any{"Name": "Unlinked"}},
		{ID: "i4", Fields: map[string]any{"CHEST_NO": []string{"r1", "r2"}, "Name": "Ambiguous"}},
	}
	got := Build(scores, interns, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "---", got[0].Department)
}

func TestBuildMultiElementLinkIsIgnored(t *testing.T) {
	scores := []records.Record{{ID: "r1", Fields: map[string]any{"CHEST_NO": "C1", "FINAL_TOTAL": 5.0}}}
	interns := []records.Record{{Fields: map[string]any{"CHEST_NO": []string{"r1", "r9"}, "Name": "Two links"}}}
	got := Build(scores, interns, Options{})
	assert.Equal(t, Placeholder, got[0].Name)
}

func TestBuildDepartmentFallback(t *testing.T) {
	scores := []records.Record{{ID: "r1", Fields: map[string]any{"CHEST_NO": "C1", "FINAL_TOTAL": 5.0}}}
	interns := []records.Record{{Fields: map[string]any{"CHEST_NO": []any{"r1"}, "Name": "Bo", "DEPT": "EEE"}}}
	got := Build(scores, interns, Options{})
	assert.Equal(t, "EEE", got[0].Department)
}

func TestBuildSortIsStableAndDescending(t *testing.T) {
	totals := []any{50.0, 70.0, 50.0, "junk", 90.0, 50.0, nil}
	scores := make([]records.Record, len(totals))
	for i, v := range totals {
		scores[i] = records.Record{ID: fmt.Sprintf("r%d", i), Fields: map[string]any{
			"CHEST_NO": fmt.Sprintf("C%d", i), "FINAL_TOTAL": v,
		}}
	}
	got := Build(scores, nil, Options{})
	require.Len(t, got, len(totals))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].FinalTotal, got[i].FinalTotal)
	}
	var order []string
	for _, r := range got {
		order = append(order, r.ChestNo)
	}
	assert.Equal(t, []string{"C4", "C1", "C0", "C2", "C5", "C3", "C6"}, order)
}

func TestBuildStageColumns(t *testing.T) {
	scores := []records.Record{{ID: "r1", Fields: map[string]any{
		"CHEST_NO": "C1", "TOTAL_S1": 20.0, "TOTAL_S2": 30.0, "TOTAL_S3": 25.5,
		"Bonus_Participation": 3.0, "FINAL_TOTAL": 78.5,
	}}}
	got := Build(scores, nil, Options{})
	assert.Equal(t, 20.0, got[0].S1)
	assert.Equal(t, 30.0, got[0].S2)
	assert.Equal(t, 25.5, got[0].S3)
	assert.Equal(t, 58.5, got[0].WithoutS1)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, BucketRejected, Classify(1, 0, 12))
	assert.Equal(t, BucketSelected, Classify(12, 40, 12))
	assert.Equal(t, BucketWaiting, Classify(13, 40, 12))
	assert.Equal(t, BucketRejected, Classify(20, 0, 12))
}

func TestBuildCutoff(t *testing.T) {
	scores := make([]records.Record, 15)
	for i := range scores {
		scores[i] = records.Record{ID: fmt.Sprint(i), Fields: map[string]any{"FINAL_TOTAL": float64(100 - i)}}
	}
	got := Build(scores, nil, Options{})
	assert.Equal(t, BucketSelected, got[11].Bucket)
	assert.Equal(t, BucketWaiting, got[12].Bucket)

	got = Build(scores, nil, Options{Cutoff: 3})
	assert.Equal(t, BucketWaiting, got[3].Bucket)
}
