package mstore

import (
	"testing"
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	s.Put("b", dap.NewDataset("b", dap.MustScalar("x", dap.TypeInt32, 1)), time.Time{})
	s.Put("a", dap.NewDataset("a"), time.Unix(100, 0))

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	_, ok := s.LastModified("b")
	assert.False(t, ok, "zero time is unknown")
	lm, ok := s.LastModified("a")
	require.True(t, ok)
	assert.Equal(t, time.Unix(100, 0), lm)

	assert.True(t, s.Touch("a", time.Unix(200, 0)))
	assert.False(t, s.Touch("missing", time.Unix(200, 0)))
	lm, _ = s.LastModified("a")
	assert.Equal(t, time.Unix(200, 0), lm)

	ds, err := s.Open("b")
	require.NoError(t, err)
	require.NoError(t, ds.Var("x").(*dap.Scalar).SetValue(5))
	again, err := s.Open("b")
	require.NoError(t, err)
	assert.Equal(t, int32(1), again.Var("x").(*dap.Scalar).Value())

	s.Delete("b")
	_, err = s.Open("b")
	assert.True(t, errors.Is(err, errors.NoSuchDataset))
}
