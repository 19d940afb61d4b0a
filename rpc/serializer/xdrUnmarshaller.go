package serializer

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// DAP2 XDR un-marshaller
// --------------------------------------------------------------------------

type xdrUnMarshallerImpl struct {
	r         *bufio.Reader
	maxLength int
	num       [8]byte
}

// NewXDRUnMarshaller creates a DAP2 un-marshaller reading from r. Lengths
// above maxLength are rejected (0 disables the limit).
func NewXDRUnMarshaller(r io.Reader, maxLength int) dap.IUnMarshaller {
	return &xdrUnMarshallerImpl{r: bufio.NewReaderSize(r, 32*1024), maxLength: maxLength}
}

func (u *xdrUnMarshallerImpl) getWord() (uint32, error) {
	if _, err := io.ReadFull(u.r, u.num[:4]); err != nil {
		return 0, errors.Wrap(err, "short read")
	}
	return binary.BigEndian.Uint32(u.num[:4]), nil
}

func (u *xdrUnMarshallerImpl) getHyper() (uint64, error) {
	if _, err := io.ReadFull(u.r, u.num[:8]); err != nil {
		return 0, errors.Wrap(err, "short read")
	}
	return binary.BigEndian.Uint64(u.num[:8]), nil
}

func (u *xdrUnMarshallerImpl) getCount() (int, error) {
	n, err := u.getWord()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || (u.maxLength > 0 && int(n) > u.maxLength) {
		return 0, errors.Errorf("length %d exceeds the limit of %d", n, u.maxLength)
	}
	return int(n), nil
}

// getPadded reads n bytes and skips the padding behind them
func (u *xdrUnMarshallerImpl) getPadded(n int) ([]byte, error) {
	b := make([]byte, n+xdrPad(n))
	if _, err := io.ReadFull(u.r, b); err != nil {
		return nil, errors.Wrap(err, "short read")
	}
	return b[:n], nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/dap/interface.go)
// --------------------------------------------------------------------------

func (u *xdrUnMarshallerImpl) GetByte() (uint8, error) {
	v, err := u.getWord()
	return uint8(v), err
}

func (u *xdrUnMarshallerImpl) GetInt8() (int8, error) {
	v, err := u.getWord()
	return int8(v), err
}

func (u *xdrUnMarshallerImpl) GetInt16() (int16, error) {
	v, err := u.getWord()
	return int16(v), err
}

func (u *xdrUnMarshallerImpl) GetUInt16() (uint16, error) {
	v, err := u.getWord()
	return uint16(v), err
}

func (u *xdrUnMarshallerImpl) GetInt32() (int32, error) {
	v, err := u.getWord()
	return int32(v), err
}

func (u *xdrUnMarshallerImpl) GetUInt32() (uint32, error) {
	return u.getWord()
}

func (u *xdrUnMarshallerImpl) GetInt64() (int64, error) {
	v, err := u.getHyper()
	return int64(v), err
}

func (u *xdrUnMarshallerImpl) GetUInt64() (uint64, error) {
	return u.getHyper()
}

func (u *xdrUnMarshallerImpl) GetFloat32() (float32, error) {
	v, err := u.getWord()
	return math.Float32frombits(v), err
}

func (u *xdrUnMarshallerImpl) GetFloat64() (float64, error) {
	v, err := u.getHyper()
	return math.Float64frombits(v), err
}

func (u *xdrUnMarshallerImpl) GetStr() (string, error) {
	b, err := u.GetOpaque()
	return string(b), err
}

func (u *xdrUnMarshallerImpl) GetURL() (string, error) {
	return u.GetStr()
}

func (u *xdrUnMarshallerImpl) GetOpaque() ([]byte, error) {
	n, err := u.getCount()
	if err != nil {
		return nil, err
	}
	return u.getPadded(n)
}

// GetVector reads a vector written by PutVector. A count of -1 accepts any
// length, otherwise the length on the wire must match.
func (u *xdrUnMarshallerImpl) GetVector(elemType dap.DataType, count int) (any, error) {
	n, err := u.getCount()
	if err != nil {
		return nil, err
	}
	if count >= 0 && n != count {
		return nil, errors.Errorf("vector length %d does not match the expected %d", n, count)
	}

	if elemType == dap.TypeString || elemType == dap.TypeURL {
		out := make([]string, n)
		for i := range out {
			if out[i], err = u.GetStr(); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	inner, err := u.getCount()
	if err != nil {
		return nil, err
	}
	if inner != n {
		return nil, errors.Errorf("inconsistent vector length %d != %d", inner, n)
	}

	if elemType == dap.TypeByte || elemType == dap.TypeInt8 {
		raw, err := u.getPadded(n)
		if err != nil {
			return nil, err
		}
		return decodeElems(raw, elemType, n, binary.BigEndian, 1)
	}

	if elemType.Width() == 0 {
		return nil, errors.Errorf("cannot read vector of %s", elemType)
	}
	width := xdrWidth(elemType)
	buf := checkout(n * width)
	defer checkin(buf)
	if _, err := io.ReadFull(u.r, *buf); err != nil {
		return nil, errors.Wrap(err, "short read")
	}
	return decodeElems(*buf, elemType, n, binary.BigEndian, width)
}

func (u *xdrUnMarshallerImpl) GetVaryingVector(elemType dap.DataType) (any, error) {
	return u.GetVector(elemType, -1)
}
