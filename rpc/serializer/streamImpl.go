package serializer

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"math"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/pkg/errors"
)

// checksum state of a stream marshaller or un-marshaller
type digestState int

const (
	// digestIdle means no digest was started, values are written unchecked
	digestIdle digestState = iota
	// digestActive means every written byte is fed to the digest
	digestActive
	// digestFinal means the digest was finalized and must be reset first
	digestFinal
)

// ErrChecksumState is returned when the digest is used outside of a
// ResetChecksum / finalize bracket
var ErrChecksumState = errors.New("invalid checksum context")

// --------------------------------------------------------------------------
// DAP4 stream marshaller
// --------------------------------------------------------------------------

// streamMarshallerImpl writes the DAP4 data format: fixed width scalars in the
// policy's wire order, strings and opaques prefixed with a varint length and a
// MD5 digest over the written bytes.
type streamMarshallerImpl struct {
	w      *bufio.Writer
	policy Policy

	md     hash.Hash
	state  digestState
	sum    []byte
	write  bool
	varbuf [maxVarintLen]byte
	num    [8]byte
}

// NewStreamMarshaller creates a DAP4 marshaller writing to w
func NewStreamMarshaller(w io.Writer, policy Policy) dap.IChecksumMarshaller {
	if policy.Wire == nil {
		policy = NativePolicy()
	}
	return &streamMarshallerImpl{
		w:      bufio.NewWriterSize(w, 32*1024),
		policy: policy,
		md:     md5.New(),
		write:  true,
	}
}

// emit feeds b to the digest (if active) and writes it (if enabled)
func (m *streamMarshallerImpl) emit(b []byte) error {
	switch m.state {
	case digestActive:
		m.md.Write(b)
	case digestFinal:
		return errors.WithMessage(ErrChecksumState, "write after checksum was finalized")
	}
	if !m.write {
		return nil
	}
	_, err := m.w.Write(b)
	return err
}

func (m *streamMarshallerImpl) putLength(n int) error {
	l := putVarint(m.varbuf[:], uint64(n))
	return m.emit(m.varbuf[:l])
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/dap/interface.go)
// --------------------------------------------------------------------------

func (m *streamMarshallerImpl) ResetChecksum() {
	m.md.Reset()
	m.sum = nil
	m.state = digestActive
}

func (m *streamMarshallerImpl) ChecksumUpdate(b []byte) error {
	if m.state != digestActive {
		return ErrChecksumState
	}
	m.md.Write(b)
	return nil
}

// finalize closes the digest. Finalizing twice returns the same sum.
func (m *streamMarshallerImpl) finalize() ([]byte, error) {
	switch m.state {
	case digestActive:
		m.sum = m.md.Sum(nil)
		m.state = digestFinal
		return m.sum, nil
	case digestFinal:
		return m.sum, nil
	default:
		return nil, ErrChecksumState
	}
}

func (m *streamMarshallerImpl) GetChecksum() (string, error) {
	sum, err := m.finalize()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

func (m *streamMarshallerImpl) PutChecksum() error {
	sum, err := m.finalize()
	if err != nil {
		return err
	}
	if !m.write {
		return nil
	}
	_, err = m.w.Write(sum)
	return err
}

func (m *streamMarshallerImpl) SetWriteData(write bool) {
	m.write = write
}

func (m *streamMarshallerImpl) PutByte(v uint8) error {
	m.num[0] = v
	return m.emit(m.num[:1])
}

func (m *streamMarshallerImpl) PutInt8(v int8) error {
	return m.PutByte(uint8(v))
}

func (m *streamMarshallerImpl) PutInt16(v int16) error {
	return m.PutUInt16(uint16(v))
}

func (m *streamMarshallerImpl) PutUInt16(v uint16) error {
	m.policy.Wire.PutUint16(m.num[:], v)
	return m.emit(m.num[:2])
}

func (m *streamMarshallerImpl) PutInt32(v int32) error {
	return m.PutUInt32(uint32(v))
}

func (m *streamMarshallerImpl) PutUInt32(v uint32) error {
	m.policy.Wire.PutUint32(m.num[:], v)
	return m.emit(m.num[:4])
}

func (m *streamMarshallerImpl) PutInt64(v int64) error {
	return m.PutUInt64(uint64(v))
}

func (m *streamMarshallerImpl) PutUInt64(v uint64) error {
	m.policy.Wire.PutUint64(m.num[:], v)
	return m.emit(m.num[:8])
}

func (m *streamMarshallerImpl) PutFloat32(v float32) error {
	return m.PutUInt32(math.Float32bits(v))
}

func (m *streamMarshallerImpl) PutFloat64(v float64) error {
	return m.PutUInt64(math.Float64bits(v))
}

func (m *streamMarshallerImpl) PutStr(v string) error {
	if err := m.putLength(len(v)); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return m.emit([]byte(v))
}

func (m *streamMarshallerImpl) PutURL(v string) error {
	return m.PutStr(v)
}

func (m *streamMarshallerImpl) PutOpaque(v []byte) error {
	if err := m.putLength(len(v)); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return m.emit(v)
}

func (m *streamMarshallerImpl) PutVector(values any, elemType dap.DataType) error {
	if err := dap.CheckVector(values, elemType); err != nil {
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

	if m.policy.fastCopy(elemType.IsFloat()) {
		raw, _ := rawView(values)
		if len(raw) == 0 {
			return nil
		}
		return m.emit(raw)
	}

	width := elemType.Width()
	n := dap.VectorLen(values)
	buf := checkout(n * width)
	defer checkin(buf)
	if err := encodeElems(*buf, values, m.policy.Wire, width); err != nil {
		return err
	}
	return m.emit(*buf)
}

func (m *streamMarshallerImpl) PutVaryingVector(values any, elemType dap.DataType) error {
	n := dap.VectorLen(values)
	if n < 0 {
		return errors.Errorf("cannot marshal vector of %T", values)
	}
	if err := m.putLength(n); err != nil {
		return err
	}
	return m.PutVector(values, elemType)
}

func (m *streamMarshallerImpl) Flush() error {
	return m.w.Flush()
}
