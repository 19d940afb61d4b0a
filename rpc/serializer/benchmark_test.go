package serializer

import (
	"bytes"
	"io"
	"testing"

	"github.com/ValentinKolb/dDAP/lib/dap"
)

// benchmarkVectors returns a set of vectors for targeted benchmarking
func benchmarkVectors() map[string]struct {
	typ    dap.DataType
	values any
} {
	f64 := make([]float64, 64*1024)
	for i := range f64 {
		f64[i] = float64(i) * 0.5
	}
	i16 := make([]int16, 64*1024)
	for i := range i16 {
		i16[i] = int16(i)
	}
	strs := make([]string, 1024)
	for i := range strs {
		strs[i] = "station-name"
	}
	return map[string]struct {
		typ    dap.DataType
		values any
	}{
		"Float64_64K": {dap.TypeFloat64, f64},
		"Int16_64K":   {dap.TypeInt16, i16},
		"Bytes_64K":   {dap.TypeByte, make([]uint8, 64*1024)},
		"Strings_1K":  {dap.TypeString, strs},
	}
}

// BenchmarkPutVector benchmarks vector marshalling for all codecs
func BenchmarkPutVector(b *testing.B) {
	vectors := benchmarkVectors()

	for name, factory := range testCodecs {
		for vecName, vec := range vectors {
			b.Run(name+"_"+vecName, func(b *testing.B) {
				m := factory().NewMarshaller(io.Discard)
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if err := m.PutVector(vec.values, vec.typ); err != nil {
						b.Fatalf("Failed to marshal: %v", err)
					}
				}
				_ = m.Flush()
			})
		}
	}
}

// BenchmarkGetVector benchmarks vector un-marshalling for all codecs
func BenchmarkGetVector(b *testing.B) {
	vectors := benchmarkVectors()

	for name, factory := range testCodecs {
		for vecName, vec := range vectors {
			var buf bytes.Buffer
			m := factory().NewMarshaller(&buf)
			if err := m.PutVector(vec.values, vec.typ); err != nil {
				b.Fatalf("Failed to marshal %s with %s: %v", vecName, name, err)
			}
			_ = m.Flush()
			data := buf.Bytes()
			count := dap.VectorLen(vec.values)

			b.Run(name+"_"+vecName, func(b *testing.B) {
				codec := factory()
				b.SetBytes(int64(len(data)))
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					u := codec.NewUnMarshaller(bytes.NewReader(data))
					if _, err := u.GetVector(vec.typ, count); err != nil {
						b.Fatalf("Failed to un-marshal: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkChecksum benchmarks the digest overhead of the DAP4 marshaller
func BenchmarkChecksum(b *testing.B) {
	vec := benchmarkVectors()["Float64_64K"]
	m := NewStreamMarshaller(io.Discard, NativePolicy())
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.ResetChecksum()
		if err := m.PutVector(vec.values, vec.typ); err != nil {
			b.Fatal(err)
		}
		if err := m.PutChecksum(); err != nil {
			b.Fatal(err)
		}
	}
	_ = m.Flush()
}

// BenchmarkSize measures and reports the encoded size for each codec
func BenchmarkSize(b *testing.B) {
	vectors := benchmarkVectors()

	for name, factory := range testCodecs {
		for vecName, vec := range vectors {
			b.Run(name+"_"+vecName, func(b *testing.B) {
				var buf bytes.Buffer
				m := factory().NewMarshaller(&buf)
				if err := m.PutVaryingVector(vec.values, vec.typ); err != nil {
					b.Fatalf("Failed to marshal: %v", err)
				}
				_ = m.Flush()

				// Report the size as a custom metric
				b.ReportMetric(float64(buf.Len()), "bytes")

				for i := 0; i < b.N; i++ {
					_ = buf
				}
			})
		}
	}
}
