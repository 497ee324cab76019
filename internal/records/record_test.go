package records

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqFormula(t *testing.T) {
	assert.Equal(t, "{CHEST_NO} = 'C12'", Eq{Field: "CHEST_NO", Value: "C12"}.Formula())
	assert.Equal(t, `{Name} = 'O\'Neil'`, Eq{Field: "Name", Value: "O'Neil"}.Formula())
}

func TestEqMatch(t *testing.T) {
	fields := map[string]any{
		"CHEST_NO":     "C1",
		"Admission_No": 1234.0,
		"Links":        []string{"recA", "recB"},
	}
	assert.True(t, Eq{"CHEST_NO", "C1"}.Match(fields))
	assert.False(t, Eq{"CHEST_NO", "c1"}.Match(fields), "match is case-sensitive")
	assert.True(t, Eq{"Admission_No", "1234"}.Match(fields))
	assert.True(t, Eq{"Links", "recB"}.Match(fields))
	assert.False(t, Eq{"Missing", ""}.Match(fields))
}

func TestNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{7.5, 7.5, true},
		{3, 3, true},
		{" 4.5 ", 4.5, true},
		{"abc", 0, false},
		{"", 0, false},
		{nil, 0, false},
		{true, 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
	}
	for _, c := range cases {
		got, ok := ToNumber(c.in)
		assert.Equal(t, c.ok, ok, "%#v", c.in)
		assert.Equal(t, c.want, got, "%#v", c.in)
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"Shamil", "Afrin"}, Strings(map[string]any{"e": []any{"Shamil", "Afrin"}}, "e"))
	assert.Equal(t, []string{"Shamil", "Afrin"}, Strings(map[string]any{"e": "Shamil, ,Afrin"}, "e"))
	assert.Nil(t, Strings(map[string]any{}, "e"))
}

func TestSingleLink(t *testing.T) {
	id, ok := SingleLink(map[string]any{"CHEST_NO": []any{"r1"}}, "CHEST_NO")
	assert.True(t, ok)
	assert.Equal(t, "r1", id)

	for _, v := range []any{nil, "r1", []string{}, []string{"r1", "r2"}, []any{1.0}} {
		_, ok := SingleLink(map[string]any{"CHEST_NO": v}, "CHEST_NO")
		assert.False(t, ok, "%#v", v)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed("Scores",
		Record{ID: "r1", Fields: map[string]any{"CHEST_NO": "C1", "FINAL_TOTAL": 80}},
		Record{ID: "r2", Fields: map[string]any{"CHEST_NO": "C2"}},
	)

	got, err := m.QueryByFilter(ctx, "Scores", Eq{"CHEST_NO", "C2"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].ID)

	all, err := m.QueryAll(ctx, "Scores")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 80.0, all[0].Fields["FINAL_TOTAL"], "ints are stored as float64")

	// returned rows are copies
	all[0].Fields["FINAL_TOTAL"] = 1.0
	again, _ := m.QueryAll(ctx, "Scores")
	assert.Equal(t, 80.0, again[0].Fields["FINAL_TOTAL"])

	upd, err := m.UpdateRecord(ctx, "Scores", "r2", map[string]any{"S1_Relevance": 3.5})
	require.NoError(t, err)
	assert.Equal(t, "C2", upd.Fields["CHEST_NO"])
	assert.Equal(t, 3.5, upd.Fields["S1_Relevance"])

	_, err = m.UpdateRecord(ctx, "Scores", "nope", nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	created, err := m.CreateRecord(ctx, "Scores", map[string]any{"CHEST_NO": "C3"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	all, _ = m.QueryAll(ctx, "Scores")
	assert.Len(t, all, 3)
}
