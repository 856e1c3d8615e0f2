package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCombined() *Combined {
	c := NewCombined()
	c.Insert(CompositeKey{"node2", "RSpec"}, Payload(`{"coverage": {"b.rb": [1]}}`), "n2")
	c.Insert(CompositeKey{"node1", "RSpec"}, Payload(`{"coverage": {"a.rb": [0, null]}, "note": "<a & b>"}`), "n1")
	return c
}

func TestEncode_SortedAndVerbatim(t *testing.T) {
	data, err := Encode(sampleCombined())
	require.NoError(t, err)
	assert.Equal(t,
		`{"node1:RSpec":{"coverage":{"a.rb":[0,null]},"note":"<a & b>"},"node2:RSpec":{"coverage":{"b.rb":[1]}}}`+"\n",
		string(data))
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(NewCombined())
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestPersist_Idempotent(t *testing.T) {
	c := sampleCombined()
	out := filepath.Join(t.TempDir(), "nested", "combined.json")

	n1, err := Persist(c, out)
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	n2, err := Persist(c, out)
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, n1, n2)
	assert.Equal(t, int64(len(first)), n1)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestPersist_WriteFailureIsIOError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Persist(NewCombined(), filepath.Join(blocker, "combined.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
}

func TestCombined_InsertReportsCollision(t *testing.T) {
	c := NewCombined()
	_, collided := c.Insert(CompositeKey{"w", "p"}, Payload(`1`), "first")
	assert.False(t, collided)

	col, collided := c.Insert(CompositeKey{"w", "p"}, Payload(`2`), "second")
	assert.True(t, collided)
	assert.Equal(t, Collision{Key: "w:p", Previous: "first", Current: "second"}, col)

	got, ok := c.Lookup("w:p")
	require.True(t, ok)
	assert.Equal(t, `2`, string(got))
	assert.Equal(t, "second", c.Source("w:p"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []string{"w:p"}, c.Keys())
}
