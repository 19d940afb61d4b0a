package functions

import (
	"context"
	"testing"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) IFunctionRegistry {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	return r
}

func TestRegistry(t *testing.T) {
	r := newTestRegistry(t)

	assert.True(t, r.IsFunction("linear_scale"))
	assert.False(t, r.IsFunction("linear"), "names must match exactly")
	assert.False(t, r.IsFunction("linear_scale2"))

	err := r.Register(Definition{Name: "version", Fn: bindName})
	assert.Error(t, err, "duplicate registration must fail")
	assert.Error(t, r.Register(Definition{Name: "noop"}), "a function needs an implementation")

	names := []string{}
	for _, def := range r.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"bind_name", "linear_scale", "make_array", "version"}, names)
}

func TestVersion(t *testing.T) {
	r := newTestRegistry(t)
	def, ok := r.Lookup("version")
	require.True(t, ok)

	v, err := def.Fn(context.Background(), nil)
	require.NoError(t, err)
	s, ok := v.(*dap.Scalar)
	require.True(t, ok)
	assert.Equal(t, dap.TypeString, s.Type())
	assert.Contains(t, s.Value(), "linear_scale(var[,m,b])")
}

func TestLinearScale(t *testing.T) {
	arr, err := dap.NewArray("sst", dap.TypeInt16, []dap.Dimension{{Name: "x", Size: 3}}, []int16{10, 20, 30})
	require.NoError(t, err)
	arr.Attributes().Append("scale_factor", "Float64", "0.5")
	arr.Attributes().Append("add_offset", "Float64", "1")

	t.Run("attributes", func(t *testing.T) {
		v, err := linearScale(context.Background(), []any{arr})
		require.NoError(t, err)
		out := v.(*dap.Array)
		assert.Equal(t, dap.TypeFloat64, out.ElemType)
		assert.Equal(t, []float64{6, 11, 16}, out.Values)
		assert.Equal(t, "x", out.Dims[0].Name)
	})

	t.Run("explicit", func(t *testing.T) {
		scalar := dap.MustScalar("t", dap.TypeInt32, 4)
		v, err := linearScale(context.Background(), []any{scalar, 2.0, int64(3)})
		require.NoError(t, err)
		assert.Equal(t, 11.0, v.(*dap.Scalar).Value())
	})

	t.Run("missing scale_factor", func(t *testing.T) {
		scalar := dap.MustScalar("t", dap.TypeInt32, 4)
		_, err := linearScale(context.Background(), []any{scalar})
		assert.True(t, errors.Is(err, errors.EvaluationFailure))
	})

	t.Run("not numeric", func(t *testing.T) {
		s := dap.MustScalar("name", dap.TypeString, "x")
		_, err := linearScale(context.Background(), []any{s, 1.0, 0.0})
		assert.True(t, errors.Is(err, errors.EvaluationFailure))
	})
}

func TestBindName(t *testing.T) {
	orig := dap.MustScalar("a", dap.TypeFloat64, 1.5)
	v, err := bindName(context.Background(), []any{"b", orig})
	require.NoError(t, err)
	assert.Equal(t, "b", v.Name())
	assert.Equal(t, "a", orig.Name(), "the argument must not be renamed")

	_, err = bindName(context.Background(), []any{"x.y", orig})
	assert.Error(t, err)
	_, err = bindName(context.Background(), []any{1.0, orig})
	assert.Error(t, err)
}

func TestMakeArray(t *testing.T) {
	v, err := makeArray(context.Background(), []any{"Int32", "[2][2]", int64(1), int64(2), int64(3), int64(4)})
	require.NoError(t, err)
	arr := v.(*dap.Array)
	assert.Equal(t, []int32{1, 2, 3, 4}, arr.Values)
	assert.Len(t, arr.Dims, 2)

	testCases := []struct {
		name string
		args []any
	}{
		{"wrong count", []any{"Int32", "[3]", int64(1)}},
		{"bad shape", []any{"Int32", "3x3", int64(1)}},
		{"bad type", []any{"Structure", "[1]", int64(1)}},
		{"out of range", []any{"Byte", "[1]", int64(300)}},
		{"shape overflows", []any{"Int32", "[4294967296][4294967296]"}},
		{"dimension too large", []any{"Int32", "[99999999999999999999]"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := makeArray(context.Background(), tc.args)
			assert.True(t, errors.Is(err, errors.EvaluationFailure), "got %v", err)
		})
	}
}
