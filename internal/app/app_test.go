package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-selection/internal/config"
	"github.com/mind-engage/mindengage-selection/internal/ranking"
	"github.com/mind-engage/mindengage-selection/internal/selection"
)

func testConfig(t *testing.T, driver config.RecordsDriver) config.Config {
	return config.Config{
		DBDriver:             "sqlite",
		DBDSN:                "file:" + t.Name() + "?mode=memory&cache=shared",
		RecordsDriver:        driver,
		ApplicantsCollection: "interns_selection_2025",
		ScoresCollection:     "Scores",
		TasksCollection:      "Task_Submit",
		SelectionCutoff:      2,
		BlobBasePath:         t.TempDir(),
	}
}

func TestBuildMemoryDemo(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t, config.RecordsMemory), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Ping(ctx))

	rows := a.Service.Leaderboard(ctx)
	require.Len(t, rows, len(demoApplicants))
	assert.Equal(t, "Aisha Rahman", rows[0].Name)
	assert.Equal(t, "Bilal Nizar", rows[1].Name, "tie keeps seed order")
	assert.Equal(t, ranking.BucketSelected, rows[1].Bucket)
	assert.Equal(t, ranking.BucketWaiting, rows[2].Bucket)
	assert.Equal(t, ranking.BucketRejected, rows[5].Bucket)
}

func TestBuildSQLStore(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t, config.RecordsSQL), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Empty(t, a.Service.Leaderboard(ctx))

	_, err = a.Store.CreateRecord(ctx, "interns_selection_2025",
		map[string]any{"Admission_No": "A300", "Name": "Dana"})
	require.NoError(t, err)

	desk := selection.NewDesk(a.Service, "staff1")
	_, err = desk.Search(ctx, selection.ByAdmission, "A300")
	require.NoError(t, err)
	_, err = desk.Edit("stage1", selection.StagePatch{Scores: map[string]*float64{"S1_Skill_Technical": ptr(12.0)}})
	require.NoError(t, err)
	_, err = desk.Save(ctx, "stage1")
	require.NoError(t, err)

	rows := a.Service.Leaderboard(ctx)
	require.Len(t, rows, 1, "saved scores reach the board without formula fields")
	assert.Equal(t, ranking.Placeholder, rows[0].Name, "no chest number links the applicant yet")
	assert.Equal(t, 12.0, rows[0].S1)
	assert.Equal(t, 12.0, rows[0].FinalTotal)
	assert.Equal(t, ranking.BucketSelected, rows[0].Bucket)
}

func ptr[T any](v T) *T { return &v }

func TestBuildRejectsBadDriver(t *testing.T) {
	_, err := Build(context.Background(), testConfig(t, "mongo"), zap.NewNop())
	assert.Error(t, err)

	_, err = Build(context.Background(), testConfig(t, config.RecordsAirtable), zap.NewNop())
	assert.Error(t, err, "airtable needs a base id and token")
}
