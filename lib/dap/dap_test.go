package dap

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// valueCodec records every value written and hands them back in order
type valueCodec struct {
	values []any
}

func (c *valueCodec) put(v any) error { c.values = append(c.values, v); return nil }

func (c *valueCodec) next() (any, error) {
	if len(c.values) == 0 {
		return nil, fmt.Errorf("no more values")
	}
	v := c.values[0]
	c.values = c.values[1:]
	return v, nil
}

func get[T any](c *valueCodec) (T, error) {
	var zero T
	v, err := c.next()
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("expected %T, got %T", zero, v)
	}
	return t, nil
}

func (c *valueCodec) PutByte(v uint8) error { return c.put(v) }
func (c *valueCodec) PutInt8(v int8) error { return c.put(v) }
func (c *valueCodec) PutInt16(v int16) error { return c.put(v) }
func (c *valueCodec) PutUInt16(v uint16) error { return c.put(v) }
func (c *valueCodec) PutInt32(v int32) error { return c.put(v) }
func (c *valueCodec) PutUInt32(v uint32) error { return c.put(v) }
func (c *valueCodec) PutInt64(v int64) error { return c.put(v) }
func (c *valueCodec) PutUInt64(v uint64) error { return c.put(v) }
func (c *valueCodec) PutFloat32(v float32) error { return c.put(v) }
func (c *valueCodec) PutFloat64(v float64) error { return c.put(v) }
func (c *valueCodec) PutStr(v string) error { return c.put(v) }
func (c *valueCodec) PutURL(v string) error { return c.put(v) }
func (c *valueCodec) PutOpaque(v []byte) error { return c.put(v) }
func (c *valueCodec) PutVector(v any, _ DataType) error { return c.put(CopyVector(v)) }
func (c *valueCodec) PutVaryingVector(v any, _ DataType) error { return c.put(CopyVector(v)) }
func (c *valueCodec) Flush() error { return nil }
func (c *valueCodec) GetByte() (uint8, error) { return get[uint8](c) }
func (c *valueCodec) GetInt8() (int8, error) { return get[int8](c) }
func (c *valueCodec) GetInt16() (int16, error) { return get[int16](c) }
func (c *valueCodec) GetUInt16() (uint16, error) { return get[uint16](c) }
func (c *valueCodec) GetInt32() (int32, error) { return get[int32](c) }
func (c *valueCodec) GetUInt32() (uint32, error) { return get[uint32](c) }
func (c *valueCodec) GetInt64() (int64, error) { return get[int64](c) }
func (c *valueCodec) GetUInt64() (uint64, error) { return get[uint64](c) }
func (c *valueCodec) GetFloat32() (float32, error) { return get[float32](c) }
func (c *valueCodec) GetFloat64() (float64, error) { return get[float64](c) }
func (c *valueCodec) GetStr() (string, error) { return get[string](c) }
func (c *valueCodec) GetURL() (string, error) { return get[string](c) }
func (c *valueCodec) GetOpaque() ([]byte, error) { return get[[]byte](c) }
func (c *valueCodec) GetVector(_ DataType, _ int) (any, error) { return c.next() }
func (c *valueCodec) GetVaryingVector(_ DataType) (any, error) { return c.next() }

// minFilter keeps rows whose named column is >= min
type minFilter struct {
	field string
	min   float64
}

func (f minFilter) MatchRow(seq *Sequence, row Row) (bool, error) {
	i := seq.FieldIndex(f.field)
	if i < 0 {
		return false, fmt.Errorf("no field %s", f.field)
	}
	v, _ := AsFloat64(row[i])
	return v >= f.min, nil
}

// testDataset builds a small dataset with every variable kind
func testDataset(t *testing.T) *Dataset {
	t.Helper()
	sst, err := NewArray("sst", TypeFloat64, []Dimension{{Name: "lat", Size: 2}, {Name: "lon", Size: 3}},
		[]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	sst.Attributes().Append("units", "String", "degC")

	inner, err := NewSequence("obs", MustScalar("depth", TypeInt32, nil), MustScalar("temp", TypeFloat32, nil))
	require.NoError(t, err)
	stations, err := NewSequence("stations", MustScalar("id", TypeString, nil), inner)
	require.NoError(t, err)
	require.NoError(t, stations.AddRow("a", []any{[]any{1, 10.5}, []any{5, 9.5}}))
	require.NoError(t, stations.AddRow("b", []any{[]any{2, 12.0}}))

	ds := NewDataset("coads",
		MustScalar("count", TypeInt32, 42),
		sst,
		NewStructure("meta", MustScalar("name", TypeString, "coads"), MustScalar("version", TypeUInt16, 3)),
		stations,
	)
	ds.Attributes.Append("title", "String", "Comprehensive \"Ocean\" Data")
	ds.Attributes.AppendContainer("history").Append("created", "String", "2001")
	return ds
}

func TestPrintDDS(t *testing.T) {
	ds := testDataset(t)
	var buf bytes.Buffer
	require.NoError(t, PrintDDS(&buf, ds, false))

	expected := `Dataset {
    Int32 count;
    Float64 sst[lat = 2][lon = 3];
    Structure {
        String name;
        UInt16 version;
    } meta;
    Sequence {
        String id;
        Sequence {
            Int32 depth;
            Float32 temp;
        } obs;
    } stations;
} coads;
`
	assert.Equal(t, expected, buf.String())
}

func TestPrintDDSConstrained(t *testing.T) {
	ds := testDataset(t)
	sst := ds.Var("sst").(*Array)
	sst.SetSelected(true)
	require.NoError(t, sst.SetHyperslab(1, 0, 2, 2))
	ds.Var("meta").SetSelected(true)
	ds.Var("meta.version").SetSelected(true)

	var buf bytes.Buffer
	require.NoError(t, PrintDDS(&buf, ds, true))
	expected := `Dataset {
    Float64 sst[lat = 2][lon = 2];
    Structure {
        UInt16 version;
    } meta;
} coads;
`
	assert.Equal(t, expected, buf.String())
}

func TestPrintDAS(t *testing.T) {
	ds := testDataset(t)
	var buf bytes.Buffer
	require.NoError(t, PrintDAS(&buf, ds))
	out := buf.String()

	assert.Contains(t, out, `    String title "Comprehensive \"Ocean\" Data";`)
	assert.Contains(t, out, "    history {\n        String created \"2001\";\n    }\n")
	assert.Contains(t, out, "    sst {\n        String units \"degC\";\n    }\n")
	assert.Contains(t, out, "        obs {\n")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintError(&buf, 1005, `Unknown variable "x"`))
	assert.Equal(t, "Error {\n    code = 1005;\n    message = \"Unknown variable \\\"x\\\"\";\n};\n", buf.String())
}

func TestHyperslabSelection(t *testing.T) {
	a, err := NewArray("a", TypeInt32, []Dimension{{Size: 3}, {Size: 4}}, []int32{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})
	require.NoError(t, err)
	require.NoError(t, a.SetHyperslab(0, 1, 1, 2))
	require.NoError(t, a.SetHyperslab(1, 0, 2, 3))

	assert.Equal(t, 4, a.Length(true))
	assert.Equal(t, 12, a.Length(false))
	assert.Equal(t, []int32{4, 6, 8, 10}, a.constrainedValues())
	assert.Equal(t, int64(16), a.Width(true))

	assert.Error(t, a.SetHyperslab(0, 0, 1, 3))
	assert.Error(t, a.SetHyperslab(1, 2, 0, 3))
	assert.Error(t, a.SetHyperslab(2, 0, 1, 0))
}

func TestShapeLength(t *testing.T) {
	n, err := ShapeLength([]Dimension{{Size: 3}, {Size: 4}})
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = ShapeLength([]Dimension{{Size: 1 << 32}, {Size: 1 << 32}})
	assert.Error(t, err)
	_, err = ShapeLength([]Dimension{{Size: -1}})
	assert.Error(t, err)

	_, err = NewArray("a", TypeInt32, []Dimension{{Size: 1 << 32}, {Size: 1 << 32}}, []int32{})
	assert.Error(t, err)
}

func TestArraySerializeConstrained(t *testing.T) {
	ds := testDataset(t)
	sst := ds.Var("sst").(*Array)
	require.NoError(t, sst.SetHyperslab(0, 1, 1, 1))

	codec := &valueCodec{}
	require.NoError(t, sst.Serialize(codec))

	clone := ds.Clone().Var("sst").(*Array)
	require.NoError(t, clone.SetHyperslab(0, 1, 1, 1))
	require.NoError(t, clone.Deserialize(codec))
	assert.Equal(t, []float64{4, 5, 6}, clone.Values)
	assert.Equal(t, 1, clone.Dims[0].Size)
}

func TestSequenceLeafSemantics(t *testing.T) {
	ds := testDataset(t)
	ds.MarkAll(true)
	stations := ds.Var("stations").(*Sequence)
	obs := ds.Var("stations.obs").(*Sequence)
	obs.AddFilter(minFilter{field: "depth", min: 5})
	ds.TagSequences()

	assert.False(t, stations.IsLeaf())
	assert.True(t, obs.IsLeaf())

	codec := &valueCodec{}
	require.NoError(t, stations.Serialize(codec))

	// station "b" has no obs with depth >= 5 and is dropped entirely
	expected := []any{
		StartOfInstance, "a",
		StartOfInstance, int32(5), float32(9.5),
		EndOfSequence,
		EndOfSequence,
	}
	assert.Equal(t, expected, codec.values)

	readBack := ds.Clone().Var("stations").(*Sequence)
	readBack.ClearFilters()
	require.NoError(t, readBack.Deserialize(codec))
	require.Len(t, readBack.Rows, 1)
	assert.Equal(t, "a", readBack.Rows[0][0])
	assert.Len(t, readBack.Rows[0][1].([]Row), 1)
}

func TestRequestSize(t *testing.T) {
	ds := testDataset(t)
	full := ds.RequestSize(false)
	assert.Greater(t, full, int64(48))

	assert.Equal(t, int64(0), ds.RequestSize(true))
	ds.Var("sst").SetSelected(true)
	assert.Equal(t, int64(48), ds.RequestSize(true))
}

func TestDDXRoundTrip(t *testing.T) {
	ds := testDataset(t)
	var buf bytes.Buffer
	require.NoError(t, PrintDDX(&buf, ds, false, "1234@opendap.org"))
	assert.Contains(t, buf.String(), `<blob href="cid:1234@opendap.org">`)

	parsed, cid, err := ParseDDX(&buf)
	require.NoError(t, err)
	assert.Equal(t, "1234@opendap.org", cid)
	assert.Equal(t, "coads", parsed.Name)
	require.Len(t, parsed.Vars, 4)

	sst := parsed.Var("sst").(*Array)
	assert.Equal(t, TypeFloat64, sst.ElemType)
	assert.Equal(t, []Dimension{{Name: "lat", Size: 2, Start: 0, Stride: 1, Stop: 1}, {Name: "lon", Size: 3, Start: 0, Stride: 1, Stop: 2}}, sst.Dims)
	assert.Equal(t, []string{"degC"}, sst.Attributes().Get("units").Values)
	assert.Equal(t, TypeFloat32, parsed.Var("stations.obs.temp").Type())
	assert.True(t, parsed.Var("meta.name").IsSelected())
	assert.Equal(t, []string{"2001"}, parsed.Attributes.Get("history").Table.Get("created").Values)

	var reprinted bytes.Buffer
	require.NoError(t, PrintDDS(&reprinted, parsed, false))
	var original bytes.Buffer
	require.NoError(t, PrintDDS(&original, ds, false))
	assert.Equal(t, original.String(), reprinted.String())
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		typ   DataType
		in    any
		out   any
		fails bool
	}{
		{TypeByte, 255, uint8(255), false},
		{TypeByte, 256, nil, true},
		{TypeInt8, -128, int8(-128), false},
		{TypeInt16, 1.0, int16(1), false},
		{TypeInt16, 1.5, nil, true},
		{TypeUInt32, "17", uint32(17), false},
		{TypeUInt64, uint64(1 << 63), uint64(1 << 63), false},
		{TypeFloat32, 2, float32(2), false},
		{TypeString, 3, "3", false},
		{TypeOpaque, "ab", []byte("ab"), false},
		{TypeStructure, 1, nil, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.typ, tt.in), func(t *testing.T) {
			out, err := Coerce(tt.typ, tt.in)
			if tt.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.out, out)
		})
	}
}
