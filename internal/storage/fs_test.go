package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put(ctx, "/exports/ranklist-20250101-000000.xlsx", strings.NewReader("one"))
	require.NoError(t, err)
	assert.Equal(t, "exports/ranklist-20250101-000000.xlsx", key)
	_, err = s.Put(ctx, "exports/ranklist-20250102-000000.xlsx", strings.NewReader("two"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "other/x.bin", strings.NewReader("x"))
	require.NoError(t, err)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "one", string(b))

	keys, err := s.List(ctx, "exports/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"exports/ranklist-20250101-000000.xlsx",
		"exports/ranklist-20250102-000000.xlsx",
	}, keys)
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, k := range []string{"", "../secret", "exports/../../x", "a/./b"} {
		_, err := s.Put(ctx, k, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrBadKey, "key %q", k)
		_, err = s.Get(ctx, k)
		assert.ErrorIs(t, err, ErrBadKey, "key %q", k)
	}
}
