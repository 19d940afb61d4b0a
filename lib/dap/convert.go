package dap

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// --------------------------------------------------------------------------
// Scalar values
// --------------------------------------------------------------------------

// Coerce converts v into the Go representation used for values of type t:
// uint8, int8, int16, uint16, int32, uint32, int64, uint64, float32, float64,
// string (String and Url) or []byte (Opaque). Numbers may be given as any Go
// numeric type, json.Number or numeric string.
func Coerce(t DataType, v any) (any, error) {
	switch t {
	case TypeString, TypeURL:
		switch s := v.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		default:
			return fmt.Sprint(v), nil
		}
	case TypeOpaque:
		switch b := v.(type) {
		case []byte:
			return append([]byte(nil), b...), nil
		case string:
			return []byte(b), nil
		default:
			return nil, fmt.Errorf("cannot convert %T to Opaque", v)
		}
	}

	if !t.IsNumeric() {
		return nil, fmt.Errorf("cannot convert a value to %s", t)
	}

	if t.IsFloat() {
		f, ok := AsFloat64(v)
		if !ok {
			return nil, fmt.Errorf("cannot convert %v (%T) to %s", v, v, t)
		}
		if t == TypeFloat32 {
			return float32(f), nil
		}
		return f, nil
	}

	if t == TypeUInt64 {
		if u, ok := v.(uint64); ok {
			return u, nil
		}
	}

	i, ok := asInt64(v)
	if !ok {
		return nil, fmt.Errorf("cannot convert %v (%T) to %s", v, v, t)
	}
	switch t {
	case TypeByte:
		if i < 0 || i > math.MaxUint8 {
			return nil, fmt.Errorf("value %d out of range for %s", i, t)
		}
		return uint8(i), nil
	case TypeInt8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return nil, fmt.Errorf("value %d out of range for %s", i, t)
		}
		return int8(i), nil
	case TypeInt16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return nil, fmt.Errorf("value %d out of range for %s", i, t)
		}
		return int16(i), nil
	case TypeUInt16:
		if i < 0 || i > math.MaxUint16 {
			return nil, fmt.Errorf("value %d out of range for %s", i, t)
		}
		return uint16(i), nil
	case TypeInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("value %d out of range for %s", i, t)
		}
		return int32(i), nil
	case TypeUInt32:
		if i < 0 || i > math.MaxUint32 {
			return nil, fmt.Errorf("value %d out of range for %s", i, t)
		}
		return uint32(i), nil
	case TypeInt64:
		return i, nil
	default: // TypeUInt64
		if i < 0 {
			return nil, fmt.Errorf("value %d out of range for %s", i, t)
		}
		return uint64(i), nil
	}
}

// AsFloat64 converts any numeric value to float64
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case uint8:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case uint8:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// --------------------------------------------------------------------------
// Vectors
// --------------------------------------------------------------------------

// MakeVector allocates a typed slice of length n for values of type t
func MakeVector(t DataType, n int) (any, error) {
	switch t {
	case TypeByte:
		return make([]uint8, n), nil
	case TypeInt8:
		return make([]int8, n), nil
	case TypeInt16:
		return make([]int16, n), nil
	case TypeUInt16:
		return make([]uint16, n), nil
	case TypeInt32:
		return make([]int32, n), nil
	case TypeUInt32:
		return make([]uint32, n), nil
	case TypeInt64:
		return make([]int64, n), nil
	case TypeUInt64:
		return make([]uint64, n), nil
	case TypeFloat32:
		return make([]float32, n), nil
	case TypeFloat64:
		return make([]float64, n), nil
	case TypeString, TypeURL:
		return make([]string, n), nil
	default:
		return nil, fmt.Errorf("no vector representation for %s", t)
	}
}

// VectorOf converts a list of loosely typed values into a typed slice
func VectorOf(t DataType, values []any) (any, error) {
	vec, err := MakeVector(t, len(values))
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		c, err := Coerce(t, v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if err := setElem(vec, i, c); err != nil {
			return nil, err
		}
	}
	return vec, nil
}

// VectorLen returns the length of a typed slice (-1 for unsupported values)
func VectorLen(values any) int {
	switch s := values.(type) {
	case []uint8:
		return len(s)
	case []int8:
		return len(s)
	case []int16:
		return len(s)
	case []uint16:
		return len(s)
	case []int32:
		return len(s)
	case []uint32:
		return len(s)
	case []int64:
		return len(s)
	case []uint64:
		return len(s)
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []string:
		return len(s)
	default:
		return -1
	}
}

// VectorElem returns the i-th element of a typed slice
func VectorElem(values any, i int) any {
	switch s := values.(type) {
	case []uint8:
		return s[i]
	case []int8:
		return s[i]
	case []int16:
		return s[i]
	case []uint16:
		return s[i]
	case []int32:
		return s[i]
	case []uint32:
		return s[i]
	case []int64:
		return s[i]
	case []uint64:
		return s[i]
	case []float32:
		return s[i]
	case []float64:
		return s[i]
	case []string:
		return s[i]
	default:
		return nil
	}
}

// CheckVector verifies that values is a typed slice matching t
func CheckVector(values any, t DataType) error {
	ok := false
	switch values.(type) {
	case []uint8:
		ok = t == TypeByte
	case []int8:
		ok = t == TypeInt8
	case []int16:
		ok = t == TypeInt16
	case []uint16:
		ok = t == TypeUInt16
	case []int32:
		ok = t == TypeInt32
	case []uint32:
		ok = t == TypeUInt32
	case []int64:
		ok = t == TypeInt64
	case []uint64:
		ok = t == TypeUInt64
	case []float32:
		ok = t == TypeFloat32
	case []float64:
		ok = t == TypeFloat64
	case []string:
		ok = t == TypeString || t == TypeURL
	}
	if !ok {
		return fmt.Errorf("vector of %T does not hold %s values", values, t)
	}
	return nil
}

// PickVector returns a new typed slice holding the elements at the given indices
func PickVector(values any, indices []int) any {
	switch s := values.(type) {
	case []uint8:
		return pick(s, indices)
	case []int8:
		return pick(s, indices)
	case []int16:
		return pick(s, indices)
	case []uint16:
		return pick(s, indices)
	case []int32:
		return pick(s, indices)
	case []uint32:
		return pick(s, indices)
	case []int64:
		return pick(s, indices)
	case []uint64:
		return pick(s, indices)
	case []float32:
		return pick(s, indices)
	case []float64:
		return pick(s, indices)
	case []string:
		return pick(s, indices)
	default:
		return nil
	}
}

// CopyVector returns a copy of a typed slice
func CopyVector(values any) any {
	switch s := values.(type) {
	case []uint8:
		return append([]uint8(nil), s...)
	case []int8:
		return append([]int8(nil), s...)
	case []int16:
		return append([]int16(nil), s...)
	case []uint16:
		return append([]uint16(nil), s...)
	case []int32:
		return append([]int32(nil), s...)
	case []uint32:
		return append([]uint32(nil), s...)
	case []int64:
		return append([]int64(nil), s...)
	case []uint64:
		return append([]uint64(nil), s...)
	case []float32:
		return append([]float32(nil), s...)
	case []float64:
		return append([]float64(nil), s...)
	case []string:
		return append([]string(nil), s...)
	default:
		return values
	}
}

func pick[T any](s []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = s[idx]
	}
	return out
}

func setElem(vec any, i int, v any) error {
	switch s := vec.(type) {
	case []uint8:
		s[i] = v.(uint8)
	case []int8:
		s[i] = v.(int8)
	case []int16:
		s[i] = v.(int16)
	case []uint16:
		s[i] = v.(uint16)
	case []int32:
		s[i] = v.(int32)
	case []uint32:
		s[i] = v.(uint32)
	case []int64:
		s[i] = v.(int64)
	case []uint64:
		s[i] = v.(uint64)
	case []float32:
		s[i] = v.(float32)
	case []float64:
		s[i] = v.(float64)
	case []string:
		s[i] = v.(string)
	default:
		return fmt.Errorf("unsupported vector %T", vec)
	}
	return nil
}
