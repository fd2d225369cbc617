package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dcmindex/internal/dict"
	"github.com/roach88/dcmindex/internal/model"
	"github.com/roach88/dcmindex/internal/testutil"
)

// createTestStore opens a store on a fresh database with deterministic
// keys and clock. opts adjust the configuration before opening.
func createTestStore(t *testing.T, opts ...func(*Config)) *Store {
	t.Helper()
	cfg := Config{
		DSN:         filepath.Join(t.TempDir(), "catalog.db"),
		PersonNames: true,
		Keys:        testutil.NewSequenceGenerator("pk"),
		Now:         testutil.NewStepClock(0).Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func withModel(m model.Model) func(*Config) {
	return func(cfg *Config) { cfg.Model = m }
}

// writeFile creates a stored object file of size bytes.
func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

// insert files attrs and fails the test on error.
func insert(t *testing.T, s *Store, attrs dict.AttributeSet, file string, ref FileReference) *InsertResult {
	t.Helper()
	res, err := s.Insert(context.Background(), attrs, file, ref)
	require.NoError(t, err)
	return res
}

// collect drains a cursor.
func collect(t *testing.T, c *Cursor) []*Result {
	t.Helper()
	defer c.Close()
	var out []*Result
	for {
		res, ok, err := c.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, res)
	}
}

// query runs req and returns every row.
func query(t *testing.T, s *Store, req Request) []*Result {
	t.Helper()
	c, err := s.OpenQuery(context.Background(), req)
	require.NoError(t, err)
	return collect(t, c)
}

// attrs builds an attribute set from keyword/value pairs.
func attrs(t *testing.T, kv ...string) dict.AttributeSet {
	t.Helper()
	require.Zero(t, len(kv)%2, "odd keyword/value list")
	out := dict.AttributeSet{}
	for i := 0; i < len(kv); i += 2 {
		a, ok := dict.Default().ByKeyword(kv[i])
		require.True(t, ok, "unknown keyword %s", kv[i])
		out[a.Tag] = kv[i+1]
	}
	return out
}

func countRows(t *testing.T, s *Store, level model.Level) int {
	t.Helper()
	rows, err := s.FindAll(context.Background(), level)
	require.NoError(t, err)
	return len(rows)
}
