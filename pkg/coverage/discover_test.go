package coverage

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerIDOf(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"result dir is skipped", "coverage_nodes/node1/spec_coverage/.resultset.json", "node1"},
		{"worker holds file directly", "artifacts/node7/.resultset.json", "node7"},
		{"single level", "node2/.resultset.json", "node2"},
		{"file at root", ".resultset.json", ""},
		{"result dir at root", "spec_coverage/.resultset.json", ""},
		{"unclean path", "./a//node3/spec_coverage/.resultset.json", "node3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorkerIDOf(tt.path, DefaultResultDir))
		})
	}
}

func TestWorkerIDOf_NoResultDir(t *testing.T) {
	assert.Equal(t, "spec_coverage", WorkerIDOf("node1/spec_coverage/.resultset.json", ""))
}

func TestFixedLayout_Discover(t *testing.T) {
	fsys := fstest.MapFS{
		"coverage_nodes/node2/spec_coverage/.resultset.json": {Data: []byte(`{}`)},
		"coverage_nodes/node1/spec_coverage/.resultset.json": {Data: []byte(`{}`)},
		"coverage_nodes/notes.txt":                           {Data: []byte("x")},
		"other/node9/spec_coverage/.resultset.json":          {Data: []byte(`{}`)},
	}

	files, err := FixedLayout{}.Discover(fsys)
	require.NoError(t, err)
	assert.Equal(t, []CoverageFile{
		{Path: "coverage_nodes/node1/spec_coverage/.resultset.json", Worker: "node1"},
		{Path: "coverage_nodes/node2/spec_coverage/.resultset.json", Worker: "node2"},
	}, files)
}

func TestFixedLayout_CustomLayout(t *testing.T) {
	fsys := fstest.MapFS{
		"nodes/w1/cov/result.json": {Data: []byte(`{}`)},
	}
	files, err := FixedLayout{NodesDir: "nodes", ResultDir: "cov", Filename: "result.json"}.Discover(fsys)
	require.NoError(t, err)
	assert.Equal(t, []CoverageFile{{Path: "nodes/w1/cov/result.json", Worker: "w1"}}, files)
}

func TestFixedLayout_MissingNodesDir(t *testing.T) {
	_, err := FixedLayout{}.Discover(fstest.MapFS{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecursiveGlob_Discover(t *testing.T) {
	fsys := fstest.MapFS{
		"b/deep/er/node2/spec_coverage/.resultset.json": {Data: []byte(`{}`)},
		"a/node1/spec_coverage/.resultset.json":         {Data: []byte(`{}`)},
		"node3/.resultset.json":                         {Data: []byte(`{}`)},
		".resultset.json":                               {Data: []byte(`{}`)},
		"coverage_nodes/.resultset.json":                {Data: []byte(`{}`)},
		"a/node1/spec_coverage/other.json":              {Data: []byte(`{}`)},
	}

	g := RecursiveGlob{ResultDir: DefaultResultDir, Exclude: "coverage_nodes/.resultset.json"}
	files, err := g.Discover(fsys)
	require.NoError(t, err)
	assert.Equal(t, []CoverageFile{
		{Path: "a/node1/spec_coverage/.resultset.json", Worker: "node1"},
		{Path: "b/deep/er/node2/spec_coverage/.resultset.json", Worker: "node2"},
		{Path: "node3/.resultset.json", Worker: "node3"},
	}, files)
}

func TestRecursiveGlob_NoMatches(t *testing.T) {
	files, err := RecursiveGlob{}.Discover(fstest.MapFS{"x.txt": {Data: []byte("x")}})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("", Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ModeFixed, s.Name())

	s, err = NewStrategy(ModeGlob, Options{Output: "coverage_nodes/.resultset.json"}, nil)
	require.NoError(t, err)
	g, ok := s.(RecursiveGlob)
	require.True(t, ok)
	assert.Equal(t, DefaultResultDir, g.ResultDir)
	assert.Equal(t, "coverage_nodes/.resultset.json", g.Exclude)

	_, err = NewStrategy("bogus", Options{}, nil)
	assert.Error(t, err)
}
