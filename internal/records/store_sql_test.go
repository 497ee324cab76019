package records

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-selection/internal/db"
)

func openTestDB(t *testing.T) *SQLStore {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return NewSQLStore(h)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	a, err := s.CreateRecord(ctx, "Scores", map[string]any{"CHEST_NO": "C1", "FINAL_TOTAL": 80})
	require.NoError(t, err)
	_, err = s.CreateRecord(ctx, "Scores", map[string]any{"CHEST_NO": "C2", "S1_Evaluators": []string{"Hani"}})
	require.NoError(t, err)
	_, err = s.CreateRecord(ctx, "Task_Submit", map[string]any{"CHEST_NO": "C1"})
	require.NoError(t, err)

	all, err := s.QueryAll(ctx, "Scores")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "C1", all[0].Fields["CHEST_NO"], "insertion order is kept")
	assert.Equal(t, 80.0, all[0].Fields["FINAL_TOTAL"])

	got, err := s.QueryByFilter(ctx, "Scores", Eq{"CHEST_NO", "C2"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Hani"}, got[0].Fields["S1_Evaluators"])

	upd, err := s.UpdateRecord(ctx, "Scores", a.ID, map[string]any{"S1_Relevance": 4})
	require.NoError(t, err)
	assert.Equal(t, "C1", upd.Fields["CHEST_NO"])
	assert.Equal(t, 4.0, upd.Fields["S1_Relevance"])

	_, err = s.UpdateRecord(ctx, "Scores", "missing", map[string]any{})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSQLStoreConcurrentUpdatesKeepBothFields(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)
	rec, err := s.CreateRecord(ctx, "Scores", map[string]any{"CHEST_NO": "C1"})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateRecord(ctx, "Scores", rec.ID, map[string]any{fmt.Sprintf("F%d", i): i})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.QueryByFilter(ctx, "Scores", Eq{"CHEST_NO", "C1"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	for i := 0; i < writers; i++ {
		assert.Equal(t, float64(i), got[0].Fields[fmt.Sprintf("F%d", i)])
	}
}

func TestSQLStoreUpdateClearsWithNil(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)
	rec, err := s.CreateRecord(ctx, "Scores", map[string]any{"CHEST_NO": "C1", "S1_Relevance": 3})
	require.NoError(t, err)

	_, err = s.UpdateRecord(ctx, "Scores", rec.ID, map[string]any{"S1_Relevance": nil})
	require.NoError(t, err)
	got, err := s.QueryByFilter(ctx, "Scores", Eq{"CHEST_NO", "C1"}, 1)
	require.NoError(t, err)
	_, ok := Number(got[0].Fields, "S1_Relevance")
	assert.False(t, ok)
}

func TestCachedFallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	inner.Seed("Scores", Record{ID: "r1", Fields: map[string]any{"CHEST_NO": "C1"}})

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	c := NewCached(inner, rdb, time.Minute, nil)

	rows, err := c.QueryAll(ctx, "Scores")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = c.CreateRecord(ctx, "Scores", map[string]any{"CHEST_NO": "C2"})
	require.NoError(t, err)
	rows, err = c.QueryAll(ctx, "Scores")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// filtered queries are never cached
	got, err := c.QueryByFilter(ctx, "Scores", Eq{"CHEST_NO", "C2"}, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
