package serializer

import (
	"io"

	"github.com/pkg/errors"
)

const (
	// maxVarintLen is the longest encoding of a 64 bit value
	maxVarintLen = 10
)

var errVarintOverflow = errors.New("varint is longer than 10 bytes")

// putVarint encodes v 7 bits at a time, least significant group first. Every
// byte except the last has the 0x80 continuation bit set. It returns the
// number of bytes written to buf, which must hold maxVarintLen bytes.
func putVarint(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}

// readVarint is the inverse of putVarint
func readVarint(r io.ByteReader) (uint64, error) {
	var v uint64
	for i := 0; i < maxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if i == maxVarintLen-1 && b > 1 {
			return 0, errVarintOverflow
		}
		v |= uint64(b&0x7F) << (7 * i)
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, errVarintOverflow
}
