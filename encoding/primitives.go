// Package encoding implements the NDN-TLV wire primitives (§4.8 of the
// spec) and the Name/Component data model (§3), grounded on the teacher's
// std/encoding package: the same TLNum/Nat varint scheme, Buffer/Wire
// byte-slice types, and Component{Typ, Val} representation.
package encoding

import "encoding/binary"

// Buffer is a contiguous slice of bytes.
type Buffer []byte

// Wire is an ordered collection of Buffers, possibly non-contiguous.
type Wire []Buffer

// Join concatenates a Wire into a single contiguous byte slice.
func (w Wire) Join() []byte {
	switch len(w) {
	case 0:
		return []byte{}
	case 1:
		return w[0]
	}
	n := 0
	for _, b := range w {
		n += len(b)
	}
	out := make([]byte, n)
	pos := 0
	for _, b := range w {
		pos += copy(out[pos:], b)
	}
	return out
}

// Length returns the total byte length of all buffers in the Wire.
func (w Wire) Length() int {
	n := 0
	for _, b := range w {
		n += len(b)
	}
	return n
}

// TLNum is a TLV Type or Length number: a variable-length big-endian
// unsigned integer using the 1/3/5/9-byte NDN-TLV varint encoding.
type TLNum uint64

// EncodingLength returns the number of bytes EncodeInto will write.
func (v TLNum) EncodingLength() int {
	switch x := uint64(v); {
	case x <= 0xfc:
		return 1
	case x <= 0xffff:
		return 3
	case x <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// EncodeInto writes v into buf using the NDN-TLV varint encoding, returning
// the number of bytes written.
func (v TLNum) EncodeInto(buf []byte) int {
	switch x := uint64(v); {
	case x <= 0xfc:
		buf[0] = byte(x)
		return 1
	case x <= 0xffff:
		buf[0] = 0xfd
		binary.BigEndian.PutUint16(buf[1:], uint16(x))
		return 3
	case x <= 0xffffffff:
		buf[0] = 0xfe
		binary.BigEndian.PutUint32(buf[1:], uint32(x))
		return 5
	default:
		buf[0] = 0xff
		binary.BigEndian.PutUint64(buf[1:], uint64(x))
		return 9
	}
}

// ParseTLNum parses a TLNum from the start of buf, returning the value and
// the number of bytes consumed. Panics on a truncated buffer, matching the
// teacher's internal-use-only contract for this function.
func ParseTLNum(buf []byte) (val TLNum, pos int) {
	switch x := buf[0]; {
	case x <= 0xfc:
		return TLNum(x), 1
	case x == 0xfd:
		return TLNum(binary.BigEndian.Uint16(buf[1:3])), 3
	case x == 0xfe:
		return TLNum(binary.BigEndian.Uint32(buf[1:5])), 5
	default:
		return TLNum(binary.BigEndian.Uint64(buf[1:9])), 9
	}
}

// Nat is a fixed-width natural number encoded in the smallest of 1, 2, 4,
// or 8 bytes that can hold it.
type Nat uint64

// Bytes returns the minimal big-endian encoding of v.
func (v Nat) Bytes() []byte {
	switch x := uint64(v); {
	case x <= 0xff:
		return []byte{byte(x)}
	case x <= 0xffff:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(x))
		return b
	case x <= 0xffffffff:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(x))
		return b
	default:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(x))
		return b
	}
}

// ParseNat parses a Nat from a buffer whose length is exactly 1, 2, 4, or 8.
func ParseNat(buf []byte) (Nat, error) {
	switch len(buf) {
	case 1:
		return Nat(buf[0]), nil
	case 2:
		return Nat(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return Nat(binary.BigEndian.Uint32(buf)), nil
	case 8:
		return Nat(binary.BigEndian.Uint64(buf)), nil
	default:
		return 0, ErrFormat{"natural number length is not 1, 2, 4 or 8"}
	}
}

// ErrFormat signals a malformed TLV structure.
type ErrFormat struct{ Msg string }

func (e ErrFormat) Error() string { return e.Msg }

// ErrBufferOverflow signals that a declared TLV length ran past the buffer.
var ErrBufferOverflow = ErrFormat{"buffer overflow when parsing: TLV length is wrong"}
