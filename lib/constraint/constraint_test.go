package constraint

import (
	"context"
	"testing"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/functions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nameSet is a FunctionSet for splitter tests
type nameSet map[string]bool

func (s nameSet) IsFunction(name string) bool { return s[name] }

// recorder is a marshaller that records the values it is given
type recorder struct{ values []any }

func (r *recorder) put(v any) error { r.values = append(r.values, v); return nil }
func (r *recorder) PutByte(v uint8) error { return r.put(v) }
func (r *recorder) PutInt8(v int8) error { return r.put(v) }
func (r *recorder) PutInt16(v int16) error { return r.put(v) }
func (r *recorder) PutUInt16(v uint16) error { return r.put(v) }
func (r *recorder) PutInt32(v int32) error { return r.put(v) }
func (r *recorder) PutUInt32(v uint32) error { return r.put(v) }
func (r *recorder) PutInt64(v int64) error { return r.put(v) }
func (r *recorder) PutUInt64(v uint64) error { return r.put(v) }
func (r *recorder) PutFloat32(v float32) error { return r.put(v) }
func (r *recorder) PutFloat64(v float64) error { return r.put(v) }
func (r *recorder) PutStr(v string) error { return r.put(v) }
func (r *recorder) PutURL(v string) error { return r.put(v) }
func (r *recorder) PutOpaque(v []byte) error { return r.put(v) }
func (r *recorder) PutVector(v any, _ dap.DataType) error { return r.put(v) }
func (r *recorder) PutVaryingVector(v any, _ dap.DataType) error { return r.put(v) }
func (r *recorder) Flush() error { return nil }

func testDataset(t *testing.T) *dap.Dataset {
	t.Helper()
	sst, err := dap.NewArray("sst", dap.TypeFloat64, []dap.Dimension{{Name: "lat", Size: 2}, {Name: "lon", Size: 3}},
		[]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	sst.Attributes().Append("scale_factor", "Float64", "0.5")

	obs, err := dap.NewSequence("obs", dap.MustScalar("depth", dap.TypeInt32, nil), dap.MustScalar("temp", dap.TypeFloat32, nil))
	require.NoError(t, err)
	stations, err := dap.NewSequence("stations", dap.MustScalar("id", dap.TypeString, nil), obs)
	require.NoError(t, err)
	require.NoError(t, stations.AddRow("a", []any{[]any{1, 10.5}, []any{5, 9.5}}))
	require.NoError(t, stations.AddRow("b", []any{[]any{2, 12.0}}))

	return dap.NewDataset("coads",
		dap.MustScalar("count", dap.TypeInt32, 42),
		sst,
		dap.NewStructure("meta", dap.MustScalar("name", dap.TypeString, "coads"), dap.MustScalar("version", dap.TypeUInt16, 3)),
		stations,
	)
}

func TestSplit(t *testing.T) {
	registry := nameSet{"grid": true}

	testCases := []struct {
		expr       string
		projection string
		functions  string
	}{
		{"grid(noise),x,y,z", "x,y,z", "grid(noise)"},
		{"grid(noise),honker(foo),grid(noise2),x,y,z", "honker(foo),x,y,z", "grid(noise),grid(noise2)"},
		{"x,y", "x,y", ""},
		{"", "", ""},
		{"honker(a),grid(b)", "honker(a)", "grid(b)"},
		{"gridx(a),x", "gridx(a),x", ""},
		{"gri(a),x", "gri(a),x", ""},
		{"grid(a)&x>1", "&x>1", "grid(a)"},
		{"grid(\"a,b\",c)", "", "grid(\"a,b\",c)"},
		{"x)grid(a),y", "x)y", "grid(a)"},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			projection, functions := Split(tc.expr, registry)
			assert.Equal(t, tc.projection, projection)
			assert.Equal(t, tc.functions, functions)
		})
	}
}

func TestParse(t *testing.T) {
	expr, err := Parse(`sst[1][0:2:2],meta.version&stations.id="b"&count>=1.5&stations.id=~"^a"`)
	require.NoError(t, err)
	require.Len(t, expr.Projections, 2)
	assert.Equal(t, []Slice{{1, 1, 1}, {0, 2, 2}}, expr.Projections[0].Path[0].Slices)
	assert.Equal(t, "meta.version", expr.Projections[1].PathString())
	require.Len(t, expr.Clauses, 3)
	assert.Equal(t, Clause{Left: "stations.id", Op: OpEqual, Right: Operand{Text: "b"}}, expr.Clauses[0])
	assert.Equal(t, OpGreaterEq, expr.Clauses[1].Op)
	assert.True(t, expr.Clauses[1].Right.IsNumber)
	assert.Equal(t, 1.5, expr.Clauses[1].Right.Number)
	assert.Equal(t, OpMatch, expr.Clauses[2].Op)
	assert.Equal(t, `sst[1][0:2:2],meta.version&stations.id="b"&count>=1.5&stations.id=~"^a"`, expr.String())

	empty, err := Parse("  ")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	onlyClause, err := Parse("&count<3")
	require.NoError(t, err)
	assert.Empty(t, onlyClause.Projections)
	assert.Len(t, onlyClause.Clauses, 1)
}

func TestParseErrors(t *testing.T) {
	malformed := []string{
		"sst[0:2",
		"sst]",
		"x,,y",
		"a..b",
		`x&name="open`,
		"x&count",
		"x&count!3",
		"x&",
		"sst[2:1]",
		"sst[0:0:3]",
		"sst[a]",
		"sst[-1]",
		"honker(x)",
		"x&count>",
		"x&count>a b",
	}
	for _, text := range malformed {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.MalformedExpr), "got %v", err)
		})
	}
}

func TestApplyProjection(t *testing.T) {
	ds := testDataset(t)
	require.NoError(t, ParseAndApply(ds, "sst[1][0:2:2],meta.version"))

	assert.False(t, ds.Var("count").IsSelected())
	sst := ds.Var("sst").(*dap.Array)
	assert.True(t, sst.IsSelected())
	assert.Equal(t, 2, sst.Length(true))
	assert.True(t, ds.Var("meta").IsSelected(), "parents of a selected field are selected")
	assert.True(t, ds.Var("meta.version").IsSelected())
	assert.False(t, ds.Var("meta.name").IsSelected())

	rec := &recorder{}
	require.NoError(t, sst.Serialize(rec))
	assert.Equal(t, []any{[]float64{4, 6}}, rec.values)
}

func TestApplyEmpty(t *testing.T) {
	ds := testDataset(t)
	require.NoError(t, ParseAndApply(ds, ""))
	for _, v := range ds.Vars {
		assert.True(t, v.IsSelected(), v.Name())
	}
	assert.True(t, ds.Var("stations.obs.temp").IsSelected())
}

func TestApplyErrors(t *testing.T) {
	testCases := []struct {
		text string
		code errors.Code
	}{
		{"nope", errors.NoSuchVariable},
		{"meta.nope", errors.NoSuchVariable},
		{"count.x", errors.NoSuchVariable},
		{"sst[5]", errors.MalformedExpr},
		{"sst[0][0][0]", errors.MalformedExpr},
		{"count[0]", errors.MalformedExpr},
		{"count&meta>1", errors.MalformedExpr},
		{"count&count=\"x\"", errors.MalformedExpr},
		{"stations&stations.id=~\"(\"", errors.MalformedExpr},
		{"stations&stations.obs.depth=~\"1\"", errors.MalformedExpr},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			err := ParseAndApply(testDataset(t), tc.text)
			require.Error(t, err)
			assert.Equal(t, tc.code, errors.CodeOf(err), "got %v", err)
		})
	}
}

func TestApplySelection(t *testing.T) {
	t.Run("nested sequence", func(t *testing.T) {
		ds := testDataset(t)
		require.NoError(t, ParseAndApply(ds, "stations&stations.obs.depth>=5"))

		rec := &recorder{}
		require.NoError(t, ds.Var("stations").Serialize(rec))
		expected := []any{
			dap.StartOfInstance, "a",
			dap.StartOfInstance, int32(5), float32(9.5),
			dap.EndOfSequence,
			dap.EndOfSequence,
		}
		assert.Equal(t, expected, rec.values)
	})

	t.Run("string match", func(t *testing.T) {
		ds := testDataset(t)
		require.NoError(t, ParseAndApply(ds, `stations.id&stations.id=~"^b"`))

		rec := &recorder{}
		require.NoError(t, ds.Var("stations").Serialize(rec))
		assert.Equal(t, []any{dap.StartOfInstance, "b", dap.EndOfSequence}, rec.values)
	})

	t.Run("top level scalar", func(t *testing.T) {
		ds := testDataset(t)
		require.NoError(t, ParseAndApply(ds, "count,sst&count>100"))
		assert.Empty(t, ds.SelectedVars())

		ds = testDataset(t)
		require.NoError(t, ParseAndApply(ds, "count,sst&count=42"))
		assert.Len(t, ds.SelectedVars(), 2)
	})
}

func TestEvaluateFunctions(t *testing.T) {
	registry := functions.NewRegistry()
	require.NoError(t, functions.RegisterBuiltins(registry))
	ctx := context.Background()

	ds := testDataset(t)
	out, err := EvaluateFunctions(ctx, ds, `linear_scale(sst,2,1),bind_name("n",count)`, registry)
	require.NoError(t, err)
	require.Len(t, out.Vars, 2)

	scaled := out.Var("sst").(*dap.Array)
	assert.Equal(t, []float64{3, 5, 7, 9, 11, 13}, scaled.Values)
	assert.True(t, scaled.IsRead())
	assert.True(t, scaled.IsSelected())
	assert.Equal(t, int32(42), out.Var("n").(*dap.Scalar).Value())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, ds.Var("sst").(*dap.Array).Values, "the source is not modified")

	nested, err := EvaluateFunctions(ctx, ds, `bind_name("half",linear_scale(sst))`, registry)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1, 1.5, 2, 2.5, 3}, nested.Var("half").(*dap.Array).Values)

	_, err = EvaluateFunctions(ctx, ds, "linear_scale(nope,1,0)", registry)
	assert.Equal(t, errors.NoSuchVariable, errors.CodeOf(err))
	_, err = EvaluateFunctions(ctx, ds, "grid(sst)", registry)
	assert.Equal(t, errors.MalformedExpr, errors.CodeOf(err))
	_, err = EvaluateFunctions(ctx, ds, "linear_scale(count)", registry)
	assert.Equal(t, errors.EvaluationFailure, errors.CodeOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = EvaluateFunctions(cancelled, ds, "version()", registry)
	assert.Equal(t, errors.Timeout, errors.CodeOf(err))
}
