package serializer

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/ValentinKolb/dDAP/lib/dap"
)

// rawView returns the in-memory bytes of a numeric typed slice without copying
func rawView(values any) ([]byte, bool) {
	switch s := values.(type) {
	case []uint8:
		return s, true
	case []int8:
		return sliceBytes(s), true
	case []int16:
		return sliceBytes(s), true
	case []uint16:
		return sliceBytes(s), true
	case []int32:
		return sliceBytes(s), true
	case []uint32:
		return sliceBytes(s), true
	case []int64:
		return sliceBytes(s), true
	case []uint64:
		return sliceBytes(s), true
	case []float32:
		return sliceBytes(s), true
	case []float64:
		return sliceBytes(s), true
	default:
		return nil, false
	}
}

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// encodeElems writes every element of a numeric slice into buf using the
// given order. Each element occupies width bytes: values narrower than width
// are sign or zero extended (XDR widens 8 and 16 bit values to 4 bytes).
func encodeElems(buf []byte, values any, order binary.ByteOrder, width int) error {
	put := func(i int, u uint64) {
		off := i * width
		switch width {
		case 1:
			buf[off] = byte(u)
		case 2:
			order.PutUint16(buf[off:], uint16(u))
		case 4:
			order.PutUint32(buf[off:], uint32(u))
		default:
			order.PutUint64(buf[off:], u)
		}
	}
	switch s := values.(type) {
	case []uint8:
		for i, v := range s {
			put(i, uint64(v))
		}
	case []int8:
		for i, v := range s {
			put(i, uint64(int64(v)))
		}
	case []int16:
		for i, v := range s {
			put(i, uint64(int64(v)))
		}
	case []uint16:
		for i, v := range s {
			put(i, uint64(v))
		}
	case []int32:
		for i, v := range s {
			put(i, uint64(int64(v)))
		}
	case []uint32:
		for i, v := range s {
			put(i, uint64(v))
		}
	case []int64:
		for i, v := range s {
			put(i, uint64(v))
		}
	case []uint64:
		for i, v := range s {
			put(i, v)
		}
	case []float32:
		for i, v := range s {
			put(i, uint64(math.Float32bits(v)))
		}
	case []float64:
		for i, v := range s {
			put(i, math.Float64bits(v))
		}
	default:
		return fmt.Errorf("cannot encode vector of %T", values)
	}
	return nil
}

// decodeElems is the inverse of encodeElems. It fills a new typed slice of
// type t with count elements read from buf.
func decodeElems(buf []byte, t dap.DataType, count int, order binary.ByteOrder, width int) (any, error) {
	get := func(i int) uint64 {
		off := i * width
		switch width {
		case 1:
			return uint64(buf[off])
		case 2:
			return uint64(order.Uint16(buf[off:]))
		case 4:
			return uint64(order.Uint32(buf[off:]))
		default:
			return order.Uint64(buf[off:])
		}
	}
	vec, err := dap.MakeVector(t, count)
	if err != nil {
		return nil, err
	}
	switch s := vec.(type) {
	case []uint8:
		for i := range s {
			s[i] = uint8(get(i))
		}
	case []int8:
		for i := range s {
			s[i] = int8(get(i))
		}
	case []int16:
		for i := range s {
			s[i] = int16(get(i))
		}
	case []uint16:
		for i := range s {
			s[i] = uint16(get(i))
		}
	case []int32:
		for i := range s {
			s[i] = int32(get(i))
		}
	case []uint32:
		for i := range s {
			s[i] = uint32(get(i))
		}
	case []int64:
		for i := range s {
			s[i] = int64(get(i))
		}
	case []uint64:
		for i := range s {
			s[i] = get(i)
		}
	case []float32:
		for i := range s {
			s[i] = math.Float32frombits(uint32(get(i)))
		}
	case []float64:
		for i := range s {
			s[i] = math.Float64frombits(get(i))
		}
	default:
		return nil, fmt.Errorf("cannot decode vector of %s", t)
	}
	return vec, nil
}
