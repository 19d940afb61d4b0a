package serializer

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// --------------------------------------------------------------------------
// Host capabilities (resolved once)
// --------------------------------------------------------------------------

var (
	hostOrder   = detectHostOrder()
	hostIEEE754 = detectIEEE754()
)

func detectHostOrder() binary.ByteOrder {
	var probe uint16 = 0x0102
	if *(*byte)(unsafe.Pointer(&probe)) == 0x01 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// detectIEEE754 checks that the in-memory layout of floats matches the IEEE 754
// layout the wire requires.
func detectIEEE754() bool {
	f32 := float32(1.5)
	f64 := 1.5
	raw32 := hostOrder.Uint32(unsafe.Slice((*byte)(unsafe.Pointer(&f32)), 4))
	raw64 := hostOrder.Uint64(unsafe.Slice((*byte)(unsafe.Pointer(&f64)), 8))
	return raw32 == math.Float32bits(f32) && raw32 == 0x3FC00000 &&
		raw64 == math.Float64bits(f64) && raw64 == 0x3FF8000000000000
}

// Policy holds the byte order and float representation decisions of a codec.
// It is computed once and handed to every marshaller so nothing is re-derived
// per value.
type Policy struct {
	// Host is the native byte order of this machine
	Host binary.ByteOrder
	// Wire is the byte order written on the wire
	Wire binary.ByteOrder
	// Swap is set when Host and Wire differ
	Swap bool
	// IEEE754 is set when native floats can be copied byte for byte
	IEEE754 bool
}

// HostPolicy resolves the policy for writing in the given wire order on this host
func HostPolicy(wire binary.ByteOrder) Policy {
	return Policy{
		Host:    hostOrder,
		Wire:    wire,
		Swap:    wire != hostOrder,
		IEEE754: hostIEEE754,
	}
}

// NativePolicy writes in host byte order (DAP4 "reader makes right")
func NativePolicy() Policy {
	return HostPolicy(hostOrder)
}

// fastCopy reports whether vectors of the given element width can be copied
// from memory without conversion
func (p Policy) fastCopy(float bool) bool {
	if p.Swap {
		return false
	}
	return !float || p.IEEE754
}

// OrderName returns "big-endian" or "little-endian" for the wire order
func (p Policy) OrderName() string {
	return orderName(p.Wire)
}

func orderName(o binary.ByteOrder) string {
	if o == binary.BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// ParseOrder maps "big", "little" and "native" (or their "-endian" forms) to a byte order
func ParseOrder(name string) (binary.ByteOrder, bool) {
	switch name {
	case "big", "big-endian":
		return binary.BigEndian, true
	case "little", "little-endian":
		return binary.LittleEndian, true
	case "native", "":
		return hostOrder, true
	default:
		return nil, false
	}
}
