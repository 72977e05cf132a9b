package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dual/doubletake/internal/cache"
	"github.com/dual/doubletake/internal/graph"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenAppliesPragmas(t *testing.T) {
	s, _ := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpenIdempotent(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestInsertAndLookup(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert("email", "hash-1", `"fake@x.org"`, []byte(`string:"fake@x.org"`)))

	payload, ok, err := s.Lookup("email", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`string:"fake@x.org"`), payload)

	_, ok, err = s.Lookup("email", "hash-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Lookup("phone", "hash-1")
	require.NoError(t, err)
	assert.False(t, ok, "categories must not share entries")
}

func TestSeenSynthetic(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert("email", "hash-1", `"fake@x.org"`, []byte("string:x")))

	seen, err := s.SeenSynthetic("email", `"fake@x.org"`)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = s.SeenSynthetic("email", `"other@x.org"`)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = s.SeenSynthetic("phone", `"fake@x.org"`)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestReverseUniquenessEnforced(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert("email", "hash-1", `"fake@x.org"`, []byte("string:a")))
	err := s.Insert("email", "hash-2", `"fake@x.org"`, []byte("string:b"))
	assert.Error(t, err, "duplicate synthetic for one category must fail")

	// Same synthetic in a different category is fine.
	assert.NoError(t, s.Insert("phone", "hash-1", `"fake@x.org"`, []byte("string:c")))
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert("email", "hash-1", `"fake@x.org"`, []byte(`string:"fake@x.org"`)))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	payload, ok, err := s2.Lookup("email", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`string:"fake@x.org"`), payload)
}

func TestCount(t *testing.T) {
	s, _ := openTestStore(t)

	require.NoError(t, s.Insert("email", "h1", "s1", []byte("string:a")))
	require.NoError(t, s.Insert("email", "h2", "s2", []byte("string:b")))
	require.NoError(t, s.Insert("phone", "h1", "s3", []byte("string:c")))

	total, err := s.Count("")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	emails, err := s.Count("email")
	require.NoError(t, err)
	assert.Equal(t, int64(2), emails)
}

func TestWorksAsCacheBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	require.NoError(t, err)

	c := cache.New(cache.WithBackend(s))
	first, err := c.GetOrCreate("email", graph.String("a@x.com"), func() (graph.Value, error) {
		return graph.String("fake-1@x.org"), nil
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// A fresh cache over the same database sees the old mapping.
	s2, err := Open(path)
	require.NoError(t, err)
	c2 := cache.New(cache.WithBackend(s2))
	defer c2.Close()

	again, err := c2.GetOrCreate("email", graph.String("a@x.com"), func() (graph.Value, error) {
		return graph.String("should-not-be-used"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
