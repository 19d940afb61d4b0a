package serializer

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/pkg/errors"
)

// ICodec bundles a wire format: it creates marshallers and un-marshallers and
// names its byte order for the X-DAP-Byte-Order header
type ICodec interface {
	// Name returns "xdr" or "dap4"
	Name() string
	// ByteOrder returns the byte order descriptor, e.g. "xdr-big-endian"
	ByteOrder() string
	// NewMarshaller creates a marshaller writing to w
	NewMarshaller(w io.Writer) dap.IMarshaller
	// NewUnMarshaller creates an un-marshaller reading from r
	NewUnMarshaller(r io.Reader) dap.IUnMarshaller
}

const (
	CodecXDR  = "xdr"
	CodecDAP4 = "dap4"
)

// NewCodec creates the codec with the given name. The wire order is only
// used by the dap4 codec, XDR is always big endian.
func NewCodec(name string, wire binary.ByteOrder, maxVectorLength int) (ICodec, error) {
	switch name {
	case CodecXDR:
		return &xdrCodecImpl{maxLength: maxVectorLength}, nil
	case CodecDAP4:
		if wire == nil {
			wire = hostOrder
		}
		return &streamCodecImpl{policy: HostPolicy(wire), maxLength: maxVectorLength}, nil
	default:
		return nil, errors.Errorf("unknown codec %q", name)
	}
}

// CodecForByteOrder returns the codec able to read data declared with the
// given byte order descriptor
func CodecForByteOrder(descriptor string, maxVectorLength int) (ICodec, error) {
	prefix, order, ok := strings.Cut(strings.TrimSpace(descriptor), "-")
	if !ok {
		return nil, errors.Errorf("invalid byte order %q", descriptor)
	}
	wire, ok := ParseOrder(order)
	if !ok || order == "native" {
		return nil, errors.Errorf("invalid byte order %q", descriptor)
	}
	switch prefix {
	case CodecXDR:
		if wire != binary.BigEndian {
			return nil, errors.Errorf("xdr is always big-endian, got %q", descriptor)
		}
		return NewCodec(CodecXDR, nil, maxVectorLength)
	case CodecDAP4:
		return NewCodec(CodecDAP4, wire, maxVectorLength)
	default:
		return nil, errors.Errorf("invalid byte order %q", descriptor)
	}
}

// --------------------------------------------------------------------------
// Codec implementations
// --------------------------------------------------------------------------

type xdrCodecImpl struct {
	maxLength int
}

func (c *xdrCodecImpl) Name() string {
	return CodecXDR
}

func (c *xdrCodecImpl) ByteOrder() string {
	return "xdr-big-endian"
}

func (c *xdrCodecImpl) NewMarshaller(w io.Writer) dap.IMarshaller {
	return NewXDRMarshaller(w)
}

func (c *xdrCodecImpl) NewUnMarshaller(r io.Reader) dap.IUnMarshaller {
	return NewXDRUnMarshaller(r, c.maxLength)
}

type streamCodecImpl struct {
	policy    Policy
	maxLength int
}

func (c *streamCodecImpl) Name() string {
	return CodecDAP4
}

func (c *streamCodecImpl) ByteOrder() string {
	return "dap4-" + c.policy.OrderName()
}

func (c *streamCodecImpl) NewMarshaller(w io.Writer) dap.IMarshaller {
	return NewStreamMarshaller(w, c.policy)
}

func (c *streamCodecImpl) NewUnMarshaller(r io.Reader) dap.IUnMarshaller {
	return NewStreamUnMarshaller(r, c.policy, c.maxLength)
}
