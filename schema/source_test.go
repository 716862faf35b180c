package schema

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"get.params.json":    {Data: []byte(`{"type": "array"}`)},
		"get.result.yml":     {Data: []byte("type: object\n")},
		"ping.params.yaml":   {Data: []byte("absent: true\n")},
		"ping.result.json":   {Data: []byte(`{"absent": true}`)},
		"search.result.json": {Data: []byte(`{"type": "array"}`)},
	}
	dir := NewDir(fsys)

	set, err := dir.Load("get")
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Equal(t, "array", set.Params.Document().Type)
	assert.Equal(t, "object", set.Result.Document().Type)
	assert.True(t, set.HasParams())

	set, err = dir.Load("ping")
	require.NoError(t, err)
	assert.Equal(t, &Set{ParamsAbsent: true, ResultAbsent: true}, set)
	assert.True(t, set.HasParams())

	set, err = dir.Load("search")
	require.NoError(t, err)
	assert.Nil(t, set.Params)
	assert.False(t, set.HasParams())

	set, err = dir.Load("missing")
	require.NoError(t, err)
	assert.Nil(t, set)
	assert.False(t, set.HasParams())
}

func TestDirLoadAggregatesErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.params.json": {Data: []byte(`[1]`)},
		"bad.result.yaml": {Data: []byte("type: [\n")},
	}

	set, err := NewDir(fsys).Load("bad")
	assert.Nil(t, set)
	require.ErrorIs(t, err, ErrInvalidSchema)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "bad.params.json")
	assert.Contains(t, err.Error(), "bad.result.yaml")
}

func TestOpenDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "echo.params.json"), []byte(`{"type": "object"}`), 0o644))

	dir, err := OpenDir(root)
	require.NoError(t, err)
	set, err := dir.Load("echo")
	require.NoError(t, err)
	assert.Equal(t, "object", set.Params.Document().Type)

	_, err = OpenDir(filepath.Join(root, "nope"))
	assert.Error(t, err)

	_, err = OpenDir(filepath.Join(root, "echo.params.json"))
	assert.Error(t, err)
}

func TestMapSource(t *testing.T) {
	s := MustParse(`{"type": "string"}`)
	m := Map{"a": {Result: s}}

	set, err := m.Load("a")
	require.NoError(t, err)
	assert.Same(t, s, set.Result)

	set, err = m.Load("b")
	require.NoError(t, err)
	assert.Nil(t, set)
}
