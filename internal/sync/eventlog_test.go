package syncx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-selection/internal/db"
)

func TestEventRepoAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	h, err := db.Open(ctx, db.DriverSQLite, "file:eventlog_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer h.Close()
	repo := NewEventRepo(h)

	require.NoError(t, repo.Append(ctx, Event{Type: TypeStageSaved, Key: "rec1", DataJSON: `{"stage":"stage1"}`}))
	require.NoError(t, repo.Append(ctx, Event{Type: TypeStageSaved, Key: "rec2", DataJSON: `{"stage":"bonus"}`}))
	require.NoError(t, repo.Append(ctx, Event{Type: TypeStageSaved, Key: "rec1", DataJSON: `{"stage":"stage2"}`}))

	all, err := repo.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, `{"stage":"stage2"}`, all[0].DataJSON, "newest first")
	assert.Equal(t, "local", all[0].SiteID)

	one, err := repo.Recent(ctx, "rec1", 10)
	require.NoError(t, err)
	assert.Len(t, one, 2)
}
