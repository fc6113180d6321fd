package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	st, err := New(filepath.Join(root, "merged"), filepath.Join(root, "final"))
	require.NoError(t, err)
	return st
}

func TestSaveAndResolve(t *testing.T) {
	st := newTestStore(t)

	path, err := st.SaveFinal("result_00001_.png", []byte("png-bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	resolved, err := st.FinalPath("result_00001_.png")
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
}

func TestSaveRejectsTraversal(t *testing.T) {
	st := newTestStore(t)

	for _, name := range []string{"", ".", "..", "../evil.png", "a/b.png", `a\b.png`} {
		_, err := st.SaveFinal(name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestTimestampUniqueness(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	a := Timestamp(base)
	b := Timestamp(base.Add(time.Microsecond))
	assert.Equal(t, "20260829_103000000000", a)
	assert.NotEqual(t, a, b)
}
