package serializer

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/pkg/errors"
)

// xdrUnit is the XDR alignment, every item occupies a multiple of 4 bytes
const xdrUnit = 4

var xdrPadding [xdrUnit]byte

func xdrPad(n int) int {
	return (xdrUnit - n%xdrUnit) % xdrUnit
}

// xdrWidth is the width of one vector element on the XDR wire
func xdrWidth(t dap.DataType) int {
	if t.Width() == 8 {
		return 8
	}
	return 4
}

// --------------------------------------------------------------------------
// DAP2 XDR marshaller
// --------------------------------------------------------------------------

// xdrMarshallerImpl writes the DAP2 data format (RFC 4506, big endian)
type xdrMarshallerImpl struct {
	w   *bufio.Writer
	num [8]byte
}

// NewXDRMarshaller creates a DAP2 marshaller writing to w
func NewXDRMarshaller(w io.Writer) dap.IMarshaller {
	return &xdrMarshallerImpl{w: bufio.NewWriterSize(w, 32*1024)}
}

func (m *xdrMarshallerImpl) putWord(v uint32) error {
	binary.BigEndian.PutUint32(m.num[:], v)
	_, err := m.w.Write(m.num[:4])
	return err
}

func (m *xdrMarshallerImpl) putHyper(v uint64) error {
	binary.BigEndian.PutUint64(m.num[:], v)
	_, err := m.w.Write(m.num[:8])
	return err
}

func (m *xdrMarshallerImpl) putCount(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return errors.Errorf("invalid vector length %d", n)
	}
	return m.putWord(uint32(n))
}

// putPadded writes data followed by zero padding to the next 4 byte boundary
func (m *xdrMarshallerImpl) putPadded(b []byte) error {
	if _, err := m.w.Write(b); err != nil {
		return err
	}
	_, err := m.w.Write(xdrPadding[:xdrPad(len(b))])
	return err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/dap/interface.go)
// --------------------------------------------------------------------------

func (m *xdrMarshallerImpl) PutByte(v uint8) error {
	return m.putWord(uint32(v))
}

func (m *xdrMarshallerImpl) PutInt8(v int8) error {
	return m.putWord(uint32(int32(v)))
}

func (m *xdrMarshallerImpl) PutInt16(v int16) error {
	return m.putWord(uint32(int32(v)))
}

func (m *xdrMarshallerImpl) PutUInt16(v uint16) error {
	return m.putWord(uint32(v))
}

func (m *xdrMarshallerImpl) PutInt32(v int32) error {
	return m.putWord(uint32(v))
}

func (m *xdrMarshallerImpl) PutUInt32(v uint32) error {
	return m.putWord(v)
}

func (m *xdrMarshallerImpl) PutInt64(v int64) error {
	return m.putHyper(uint64(v))
}

func (m *xdrMarshallerImpl) PutUInt64(v uint64) error {
	return m.putHyper(v)
}

func (m *xdrMarshallerImpl) PutFloat32(v float32) error {
	return m.putWord(math.Float32bits(v))
}

func (m *xdrMarshallerImpl) PutFloat64(v float64) error {
	return m.putHyper(math.Float64bits(v))
}

func (m *xdrMarshallerImpl) PutStr(v string) error {
	if err := m.putCount(len(v)); err != nil {
		return err
	}
	return m.putPadded([]byte(v))
}

func (m *xdrMarshallerImpl) PutURL(v string) error {
	return m.PutStr(v)
}

func (m *xdrMarshallerImpl) PutOpaque(v []byte) error {
	if err := m.putCount(len(v)); err != nil {
		return err
	}
	return m.putPadded(v)
}

// PutVector writes the element count followed by an XDR array. The array
// repeats the count, byte vectors are packed into a padded opaque.
func (m *xdrMarshallerImpl) PutVector(values any, elemType dap.DataType) error {
	if err := dap.CheckVector(values, elemType); err != nil {
		return err
	}
	n := dap.VectorLen(values)
	if err := m.putCount(n); err != nil {
		return err
	}

	if strs, ok := values.([]string); ok {
		for _, s := range strs {
			if err := m.PutStr(s); err != nil {
				return err
			}
		}
		return nil
	}

	if err := m.putCount(n); err != nil {
		return err
	}
	if elemType == dap.TypeByte || elemType == dap.TypeInt8 {
		raw, _ := rawView(values)
		return m.putPadded(raw)
	}

	width := xdrWidth(elemType)
	if hostOrder == binary.BigEndian && width == elemType.Width() && hostIEEE754 {
		raw, _ := rawView(values)
		_, err := m.w.Write(raw)
		return err
	}
	buf := checkout(n * width)
	defer checkin(buf)
	if err := encodeElems(*buf, values, binary.BigEndian, width); err != nil {
		return err
	}
	_, err := m.w.Write(*buf)
	return err
}

// PutVaryingVector is PutVector, XDR vectors always carry their length
func (m *xdrMarshallerImpl) PutVaryingVector(values any, elemType dap.DataType) error {
	return m.PutVector(values, elemType)
}

func (m *xdrMarshallerImpl) Flush() error {
	return m.w.Flush()
}
