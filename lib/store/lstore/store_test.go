package lstore

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocument(t *testing.T, dir, id string, value int) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(id)+DocumentExt)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	doc := `{"name": "` + filepath.Base(id) + `", "variables": [{"name": "x", "type": "Int32", "value": ` + strconv.Itoa(value) + `}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func valueOf(t *testing.T, ds *dap.Dataset) int32 {
	t.Helper()
	return ds.Var("x").(*dap.Scalar).Value().(int32)
}

func TestOpenAndList(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "ocean/coads", 1)
	writeDocument(t, dir, "argo", 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("not a dataset"), 0o644))

	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"argo", "ocean/coads"}, ids)

	ds, err := s.Open("ocean/coads")
	require.NoError(t, err)
	assert.Equal(t, "coads", ds.Name)
	assert.Equal(t, int32(1), valueOf(t, ds))

	_, ok := s.LastModified("ocean/coads")
	assert.True(t, ok)
	_, ok = s.LastModified("missing")
	assert.False(t, ok)
}

func TestOpenReturnsCopies(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "d", 1)
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	a, err := s.Open("d")
	require.NoError(t, err)
	require.NoError(t, a.Var("x").(*dap.Scalar).SetValue(9))

	b, err := s.Open("d")
	require.NoError(t, err)
	assert.Equal(t, int32(1), valueOf(t, b))
}

func TestOpenReloadsChangedDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeDocument(t, dir, "d", 1)
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	ds, err := s.Open("d")
	require.NoError(t, err)
	assert.Equal(t, int32(1), valueOf(t, ds))

	writeDocument(t, dir, "d", 2)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	ds, err = s.Open("d")
	require.NoError(t, err)
	assert.Equal(t, int32(2), valueOf(t, ds))

	lm, ok := s.LastModified("d")
	require.True(t, ok)
	assert.WithinDuration(t, later, lm, time.Second)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	for _, id := range []string{"missing", "../etc/passwd", "", "a/../../b"} {
		_, err := s.Open(id)
		require.Error(t, err, id)
		assert.True(t, errors.Is(err, errors.NoSuchDataset), id)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	_, err = s.Open("broken")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.NoSuchDataset))

	_, err = NewLocalStore(filepath.Join(dir, "broken.json"))
	assert.Error(t, err)
}
