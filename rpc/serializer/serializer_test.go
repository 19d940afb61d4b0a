package serializer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/ValentinKolb/dDAP/lib/dap"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func() ICodec{
	"XDR": func() ICodec {
		c, _ := NewCodec(CodecXDR, nil, 0)
		return c
	},
	"DAP4_BigEndian": func() ICodec {
		c, _ := NewCodec(CodecDAP4, binary.BigEndian, 0)
		return c
	},
	"DAP4_LittleEndian": func() ICodec {
		c, _ := NewCodec(CodecDAP4, binary.LittleEndian, 0)
		return c
	},
}

// testVectors returns one vector per element type
func testVectors() map[dap.DataType]any {
	return map[dap.DataType]any{
		dap.TypeByte:    []uint8{0, 1, 127, 255, 42},
		dap.TypeInt8:    []int8{-128, -1, 0, 1, 127},
		dap.TypeInt16:   []int16{math.MinInt16, -1, 0, 1, math.MaxInt16},
		dap.TypeUInt16:  []uint16{0, 1, math.MaxUint16},
		dap.TypeInt32:   []int32{math.MinInt32, -7, 0, 7, math.MaxInt32},
		dap.TypeUInt32:  []uint32{0, 1, math.MaxUint32},
		dap.TypeInt64:   []int64{math.MinInt64, -1, 0, math.MaxInt64},
		dap.TypeUInt64:  []uint64{0, 1, math.MaxUint64},
		dap.TypeFloat32: []float32{-1.5, 0, 3.25, math.MaxFloat32},
		dap.TypeFloat64: []float64{-1.5, 0, math.Pi, math.SmallestNonzeroFloat64},
		dap.TypeString:  []string{"", "a", "hello world", "ünïcödé"},
	}
}

// TestScalarRoundTrip writes one value of each scalar type and reads it back
func TestScalarRoundTrip(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			codec := factory()
			var buf bytes.Buffer
			m := codec.NewMarshaller(&buf)

			steps := []error{
				m.PutByte(200),
				m.PutInt8(-100),
				m.PutInt16(-30000),
				m.PutUInt16(60000),
				m.PutInt32(-2000000000),
				m.PutUInt32(4000000000),
				m.PutInt64(math.MinInt64),
				m.PutUInt64(math.MaxUint64),
				m.PutFloat32(3.5),
				m.PutFloat64(-math.Pi),
				m.PutStr("temperature"),
				m.PutURL("http://example.com/data"),
				m.PutOpaque([]byte{1, 2, 3, 4, 5}),
				m.PutStr(""),
				m.Flush(),
			}
			for i, err := range steps {
				if err != nil {
					t.Fatalf("Failed to write value %d: %v", i, err)
				}
			}

			u := codec.NewUnMarshaller(&buf)
			check := func(label string, got, want any, err error) {
				t.Helper()
				if err != nil {
					t.Fatalf("Failed to read %s: %v", label, err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("%s mismatch: expected %v, got %v", label, want, got)
				}
			}

			b, err := u.GetByte()
			check("Byte", b, uint8(200), err)
			i8, err := u.GetInt8()
			check("Int8", i8, int8(-100), err)
			i16, err := u.GetInt16()
			check("Int16", i16, int16(-30000), err)
			u16, err := u.GetUInt16()
			check("UInt16", u16, uint16(60000), err)
			i32, err := u.GetInt32()
			check("Int32", i32, int32(-2000000000), err)
			u32, err := u.GetUInt32()
			check("UInt32", u32, uint32(4000000000), err)
			i64, err := u.GetInt64()
			check("Int64", i64, int64(math.MinInt64), err)
			u64, err := u.GetUInt64()
			check("UInt64", u64, uint64(math.MaxUint64), err)
			f32, err := u.GetFloat32()
			check("Float32", f32, float32(3.5), err)
			f64, err := u.GetFloat64()
			check("Float64", f64, -math.Pi, err)
			s, err := u.GetStr()
			check("String", s, "temperature", err)
			url, err := u.GetURL()
			check("Url", url, "http://example.com/data", err)
			op, err := u.GetOpaque()
			check("Opaque", op, []byte{1, 2, 3, 4, 5}, err)
			empty, err := u.GetStr()
			check("empty String", empty, "", err)

			if _, err := u.GetByte(); err == nil {
				t.Errorf("Expected an error when reading past the end")
			}
		})
	}
}

// TestVectorRoundTrip tests fixed and varying vectors of every element type
func TestVectorRoundTrip(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			codec := factory()

			for typ, vec := range testVectors() {
				var buf bytes.Buffer
				m := codec.NewMarshaller(&buf)
				if err := m.PutVector(vec, typ); err != nil {
					t.Fatalf("Failed to write %s vector: %v", typ, err)
				}
				if err := m.PutVaryingVector(vec, typ); err != nil {
					t.Fatalf("Failed to write varying %s vector: %v", typ, err)
				}
				if err := m.Flush(); err != nil {
					t.Fatalf("Failed to flush: %v", err)
				}

				u := codec.NewUnMarshaller(&buf)
				got, err := u.GetVector(typ, dap.VectorLen(vec))
				if err != nil {
					t.Fatalf("Failed to read %s vector: %v", typ, err)
				}
				if !reflect.DeepEqual(got, vec) {
					t.Errorf("%s vector mismatch:\nOriginal: %v\nResult: %v", typ, vec, got)
				}
				got, err = u.GetVaryingVector(typ)
				if err != nil {
					t.Fatalf("Failed to read varying %s vector: %v", typ, err)
				}
				if !reflect.DeepEqual(got, vec) {
					t.Errorf("varying %s vector mismatch:\nOriginal: %v\nResult: %v", typ, vec, got)
				}
				if buf.Len() != 0 {
					t.Errorf("%s: %d unread bytes left", typ, buf.Len())
				}
			}
		})
	}
}

// TestVectorTypeMismatch tests that a vector must match its declared element type
func TestVectorTypeMismatch(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			m := factory().NewMarshaller(&bytes.Buffer{})
			if err := m.PutVector([]int32{1, 2}, dap.TypeFloat64); err == nil {
				t.Errorf("Expected an error for a mismatching vector")
			}
		})
	}
}

// TestXDRLayout tests the exact bytes of the DAP2 encoding
func TestXDRLayout(t *testing.T) {
	testCases := []struct {
		name  string
		write func(m dap.IMarshaller) error
		want  []byte
	}{
		{
			name:  "Int16 is widened",
			write: func(m dap.IMarshaller) error { return m.PutInt16(-2) },
			want:  []byte{0xff, 0xff, 0xff, 0xfe},
		},
		{
			name:  "Byte is widened",
			write: func(m dap.IMarshaller) error { return m.PutByte(7) },
			want:  []byte{0, 0, 0, 7},
		},
		{
			name:  "String is padded",
			write: func(m dap.IMarshaller) error { return m.PutStr("abc") },
			want:  []byte{0, 0, 0, 3, 'a', 'b', 'c', 0},
		},
		{
			name:  "Int32 vector repeats the length",
			write: func(m dap.IMarshaller) error { return m.PutVector([]int32{1, 2}, dap.TypeInt32) },
			want:  []byte{0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 2},
		},
		{
			name:  "Byte vector is packed",
			write: func(m dap.IMarshaller) error { return m.PutVector([]uint8{1, 2, 3}, dap.TypeByte) },
			want:  []byte{0, 0, 0, 3, 0, 0, 0, 3, 1, 2, 3, 0},
		},
		{
			name:  "Int16 vector is widened",
			write: func(m dap.IMarshaller) error { return m.PutVector([]int16{-1}, dap.TypeInt16) },
			want:  []byte{0, 0, 0, 1, 0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff},
		},
		{
			name:  "String vector has a single length",
			write: func(m dap.IMarshaller) error { return m.PutVector([]string{"a"}, dap.TypeString) },
			want:  []byte{0, 0, 0, 1, 0, 0, 0, 1, 'a', 0, 0, 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewXDRMarshaller(&buf)
			if err := tc.write(m); err != nil {
				t.Fatalf("Failed to write: %v", err)
			}
			if err := m.Flush(); err != nil {
				t.Fatalf("Failed to flush: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), tc.want) {
				t.Errorf("Expected % x, got % x", tc.want, buf.Bytes())
			}
		})
	}
}

// TestStreamLayout tests the exact bytes of the DAP4 encoding in both byte orders
func TestStreamLayout(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		t.Run(orderName(order), func(t *testing.T) {
			var buf bytes.Buffer
			m := NewStreamMarshaller(&buf, HostPolicy(order))
			if err := m.PutInt32(1); err != nil {
				t.Fatal(err)
			}
			if err := m.PutStr("ab"); err != nil {
				t.Fatal(err)
			}
			if err := m.PutVector([]uint16{0x0102}, dap.TypeUInt16); err != nil {
				t.Fatal(err)
			}
			if err := m.Flush(); err != nil {
				t.Fatal(err)
			}

			want := []byte{0, 0, 0, 1, 2, 'a', 'b', 1, 2}
			if order == binary.LittleEndian {
				want = []byte{1, 0, 0, 0, 2, 'a', 'b', 2, 1}
			}
			if !bytes.Equal(buf.Bytes(), want) {
				t.Errorf("Expected % x, got % x", want, buf.Bytes())
			}
		})
	}
}

// TestVarintBoundaries tests the length of the encoding at each 7 bit boundary
func TestVarintBoundaries(t *testing.T) {
	testCases := []struct {
		value  uint64
		length int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{1<<14 - 1, 2},
		{1 << 14, 3},
		{1<<21 - 1, 3},
		{1 << 21, 4},
		{1<<63 - 1, 9},
		{math.MaxUint64, 10},
	}

	for _, tc := range testCases {
		var buf [maxVarintLen]byte
		n := putVarint(buf[:], tc.value)
		if n != tc.length {
			t.Errorf("Value %d: expected %d bytes, got %d", tc.value, tc.length, n)
		}
		for i := 0; i < n-1; i++ {
			if buf[i]&0x80 == 0 {
				t.Errorf("Value %d: byte %d misses the continuation bit", tc.value, i)
			}
		}
		if buf[n-1]&0x80 != 0 {
			t.Errorf("Value %d: last byte has the continuation bit", tc.value)
		}

		got, err := readVarint(bytes.NewReader(buf[:n]))
		if err != nil {
			t.Fatalf("Value %d: failed to read: %v", tc.value, err)
		}
		if got != tc.value {
			t.Errorf("Value %d: read back %d", tc.value, got)
		}
	}
}

// TestInvalidStreamData tests how the DAP4 un-marshaller handles corrupt data
func TestInvalidStreamData(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "Empty data",
			data: []byte{},
		},
		{
			name: "Varint longer than 10 bytes",
			data: bytes.Repeat([]byte{0xff}, 11),
		},
		{
			name: "Truncated varint",
			data: []byte{0x80},
		},
		{
			name: "Length larger than the limit",
			data: []byte{0x80, 0x01, 'a'},
		},
		{
			name: "String shorter than its length",
			data: []byte{5, 'a', 'b'},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := NewStreamUnMarshaller(bytes.NewReader(tc.data), NativePolicy(), 64)
			if _, err := u.GetStr(); err == nil {
				t.Errorf("Expected error but got none")
			}
		})
	}
}

// TestMaxVectorLength tests that both un-marshallers reject oversized vectors
func TestMaxVectorLength(t *testing.T) {
	vec := make([]int32, 10)
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			m := factory().NewMarshaller(&buf)
			if err := m.PutVaryingVector(vec, dap.TypeInt32); err != nil {
				t.Fatal(err)
			}
			if err := m.Flush(); err != nil {
				t.Fatal(err)
			}

			limited, err := CodecForByteOrder(factory().ByteOrder(), 5)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := limited.NewUnMarshaller(&buf).GetVaryingVector(dap.TypeInt32); err == nil {
				t.Errorf("Expected a length error")
			}
		})
	}
}

// TestChecksum tests the digest life cycle of the DAP4 marshaller
func TestChecksum(t *testing.T) {
	write := func(t *testing.T, values ...int32) (string, []byte) {
		t.Helper()
		var buf bytes.Buffer
		m := NewStreamMarshaller(&buf, NativePolicy())
		m.ResetChecksum()
		for _, v := range values {
			if err := m.PutInt32(v); err != nil {
				t.Fatal(err)
			}
		}
		sum, err := m.GetChecksum()
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Flush(); err != nil {
			t.Fatal(err)
		}
		return sum, buf.Bytes()
	}

	t.Run("Empty digest", func(t *testing.T) {
		sum, _ := write(t)
		if sum != "d41d8cd98f00b204e9800998ecf8427e" {
			t.Errorf("Unexpected digest of no data: %s", sum)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, _ := write(t, 1, 2, 3)
		b, _ := write(t, 1, 2, 3)
		c, _ := write(t, 1, 2, 4)
		if a != b {
			t.Errorf("Equal values produced different digests: %s != %s", a, b)
		}
		if a == c {
			t.Errorf("Different values produced the same digest %s", a)
		}
		if len(a) != 32 || strings.ToLower(a) != a {
			t.Errorf("Digest is not 32 lowercase hex characters: %q", a)
		}
	})

	t.Run("Finalized digest rejects updates", func(t *testing.T) {
		m := NewStreamMarshaller(&bytes.Buffer{}, NativePolicy())
		if err := m.ChecksumUpdate([]byte{1}); !errors.Is(err, ErrChecksumState) {
			t.Errorf("Expected ErrChecksumState before reset, got %v", err)
		}
		m.ResetChecksum()
		if err := m.PutInt32(1); err != nil {
			t.Fatal(err)
		}
		first, err := m.GetChecksum()
		if err != nil {
			t.Fatal(err)
		}
		if err := m.ChecksumUpdate([]byte{1}); !errors.Is(err, ErrChecksumState) {
			t.Errorf("Expected ErrChecksumState after finalize, got %v", err)
		}
		if err := m.PutInt32(2); err == nil {
			t.Errorf("Expected an error when writing after finalize")
		}
		again, err := m.GetChecksum()
		if err != nil || again != first {
			t.Errorf("Finalizing twice should return the same digest, got %s (%v)", again, err)
		}
		m.ResetChecksum()
		if err := m.PutInt32(2); err != nil {
			t.Errorf("Writing after reset failed: %v", err)
		}
	})

	t.Run("Digest without writing data", func(t *testing.T) {
		written, data := write(t, 5, 6)
		var buf bytes.Buffer
		m := NewStreamMarshaller(&buf, NativePolicy())
		m.SetWriteData(false)
		m.ResetChecksum()
		_ = m.PutInt32(5)
		_ = m.PutInt32(6)
		sum, err := m.GetChecksum()
		if err != nil {
			t.Fatal(err)
		}
		_ = m.Flush()
		if sum != written {
			t.Errorf("Digest differs when data is not written: %s != %s", sum, written)
		}
		if buf.Len() != 0 || len(data) != 8 {
			t.Errorf("Unexpected output sizes %d and %d", buf.Len(), len(data))
		}
	})
}

// TestChecksumVerify tests that the un-marshaller detects corrupted data
func TestChecksumVerify(t *testing.T) {
	var buf bytes.Buffer
	m := NewStreamMarshaller(&buf, NativePolicy())
	m.ResetChecksum()
	if err := m.PutVaryingVector([]float64{1, 2, 3}, dap.TypeFloat64); err != nil {
		t.Fatal(err)
	}
	if err := m.PutChecksum(); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if len(data) != 1+3*8+16 {
		t.Fatalf("Unexpected encoded size %d", len(data))
	}

	read := func(data []byte) error {
		u := NewStreamUnMarshaller(bytes.NewReader(data), NativePolicy(), 0)
		u.ResetChecksum()
		if _, err := u.GetVaryingVector(dap.TypeFloat64); err != nil {
			return err
		}
		return u.VerifyChecksum()
	}

	if err := read(data); err != nil {
		t.Errorf("Verification of intact data failed: %v", err)
	}
	corrupt := append([]byte(nil), data...)
	corrupt[3] ^= 0xff
	if err := read(corrupt); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", err)
	}
}

// TestCodecForByteOrder tests parsing of byte order descriptors
func TestCodecForByteOrder(t *testing.T) {
	valid := []string{"xdr-big-endian", "dap4-big-endian", "dap4-little-endian"}
	for _, d := range valid {
		c, err := CodecForByteOrder(d, 0)
		if err != nil {
			t.Errorf("Failed to parse %q: %v", d, err)
			continue
		}
		if c.ByteOrder() != d {
			t.Errorf("Expected descriptor %q, got %q", d, c.ByteOrder())
		}
	}
	for _, d := range []string{"", "xdr-little-endian", "dap4-native", "ieee-big-endian", "dap4"} {
		if _, err := CodecForByteOrder(d, 0); err == nil {
			t.Errorf("Expected error for %q", d)
		}
	}
}
