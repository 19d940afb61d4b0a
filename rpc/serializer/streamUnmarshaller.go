package serializer

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"hash"
	"io"
	"math"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/pkg/errors"
)

// ErrChecksumMismatch is returned by VerifyChecksum if the received digest
// does not match the one computed over the consumed bytes
var ErrChecksumMismatch = errors.New("checksum mismatch")

// --------------------------------------------------------------------------
// DAP4 stream un-marshaller
// --------------------------------------------------------------------------

type streamUnMarshallerImpl struct {
	r         *bufio.Reader
	policy    Policy
	maxLength int

	md    hash.Hash
	state digestState
	num   [8]byte
}

// NewStreamUnMarshaller creates a DAP4 un-marshaller reading from r. Lengths
// above maxLength are rejected (0 disables the limit).
func NewStreamUnMarshaller(r io.Reader, policy Policy, maxLength int) dap.IChecksumUnMarshaller {
	if policy.Wire == nil {
		policy = NativePolicy()
	}
	return &streamUnMarshallerImpl{
		r:         bufio.NewReaderSize(r, 32*1024),
		policy:    policy,
		maxLength: maxLength,
		md:        md5.New(),
	}
}

func (u *streamUnMarshallerImpl) read(b []byte) error {
	if _, err := io.ReadFull(u.r, b); err != nil {
		return errors.Wrap(err, "short read")
	}
	if u.state == digestActive {
		u.md.Write(b)
	}
	return nil
}

// ReadByte implements io.ByteReader for the varint decoder
func (u *streamUnMarshallerImpl) ReadByte() (byte, error) {
	b, err := u.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if u.state == digestActive {
		u.md.Write([]byte{b})
	}
	return b, nil
}

func (u *streamUnMarshallerImpl) getLength() (int, error) {
	n, err := readVarint(u)
	if err != nil {
		return 0, errors.Wrap(err, "reading length")
	}
	if n > math.MaxInt32 || (u.maxLength > 0 && n > uint64(u.maxLength)) {
		return 0, errors.Errorf("length %d exceeds the limit of %d", n, u.maxLength)
	}
	return int(n), nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/dap/interface.go)
// --------------------------------------------------------------------------

func (u *streamUnMarshallerImpl) ResetChecksum() {
	u.md.Reset()
	u.state = digestActive
}

func (u *streamUnMarshallerImpl) VerifyChecksum() error {
	if u.state != digestActive {
		return ErrChecksumState
	}
	want := u.md.Sum(nil)
	u.state = digestFinal
	got := make([]byte, md5.Size)
	if _, err := io.ReadFull(u.r, got); err != nil {
		return errors.Wrap(err, "reading checksum")
	}
	if !bytes.Equal(got, want) {
		return ErrChecksumMismatch
	}
	return nil
}

func (u *streamUnMarshallerImpl) GetByte() (uint8, error) {
	if err := u.read(u.num[:1]); err != nil {
		return 0, err
	}
	return u.num[0], nil
}

func (u *streamUnMarshallerImpl) GetInt8() (int8, error) {
	b, err := u.GetByte()
	return int8(b), err
}

func (u *streamUnMarshallerImpl) GetInt16() (int16, error) {
	v, err := u.GetUInt16()
	return int16(v), err
}

func (u *streamUnMarshallerImpl) GetUInt16() (uint16, error) {
	if err := u.read(u.num[:2]); err != nil {
		return 0, err
	}
	return u.policy.Wire.Uint16(u.num[:]), nil
}

func (u *streamUnMarshallerImpl) GetInt32() (int32, error) {
	v, err := u.GetUInt32()
	return int32(v), err
}

func (u *streamUnMarshallerImpl) GetUInt32() (uint32, error) {
	if err := u.read(u.num[:4]); err != nil {
		return 0, err
	}
	return u.policy.Wire.Uint32(u.num[:]), nil
}

func (u *streamUnMarshallerImpl) GetInt64() (int64, error) {
	v, err := u.GetUInt64()
	return int64(v), err
}

func (u *streamUnMarshallerImpl) GetUInt64() (uint64, error) {
	if err := u.read(u.num[:8]); err != nil {
		return 0, err
	}
	return u.policy.Wire.Uint64(u.num[:]), nil
}

func (u *streamUnMarshallerImpl) GetFloat32() (float32, error) {
	v, err := u.GetUInt32()
	return math.Float32frombits(v), err
}

func (u *streamUnMarshallerImpl) GetFloat64() (float64, error) {
	v, err := u.GetUInt64()
	return math.Float64frombits(v), err
}

func (u *streamUnMarshallerImpl) GetStr() (string, error) {
	b, err := u.GetOpaque()
	return string(b), err
}

func (u *streamUnMarshallerImpl) GetURL() (string, error) {
	return u.GetStr()
}

func (u *streamUnMarshallerImpl) GetOpaque() ([]byte, error) {
	n, err := u.getLength()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if n == 0 {
		return b, nil
	}
	if err := u.read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (u *streamUnMarshallerImpl) GetVector(elemType dap.DataType, count int) (any, error) {
	if count < 0 || (u.maxLength > 0 && count > u.maxLength) {
		return nil, errors.Errorf("vector length %d exceeds the limit of %d", count, u.maxLength)
	}
	if elemType == dap.TypeString || elemType == dap.TypeURL {
		out := make([]string, count)
		for i := range out {
			s, err := u.GetStr()
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}

	width := elemType.Width()
	if width == 0 {
		return nil, errors.Errorf("cannot read vector of %s", elemType)
	}
	buf := checkout(count * width)
	defer checkin(buf)
	if err := u.read(*buf); err != nil {
		return nil, err
	}
	return decodeElems(*buf, elemType, count, u.policy.Wire, width)
}

func (u *streamUnMarshallerImpl) GetVaryingVector(elemType dap.DataType) (any, error) {
	n, err := u.getLength()
	if err != nil {
		return nil, err
	}
	return u.GetVector(elemType, n)
}
