package encoding

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/usi-icn/nfnd/types/optional"
)

// readTLV parses one Type-Length-Value element from the front of buf,
// returning the type, the value slice (a view into buf, no copy), and the
// remainder of buf after the element.
func readTLV(buf []byte) (typ TLNum, val []byte, rest []byte, err error) {
	// tlNumLen is the size of the varint whose first byte is b, checked
	// before ParseTLNum so a truncated varint is an error, not a panic.
	tlNumLen := func(b byte) int {
		switch b {
		case 0xfd:
			return 3
		case 0xfe:
			return 5
		case 0xff:
			return 9
		}
		return 1
	}
	if len(buf) == 0 || len(buf) < tlNumLen(buf[0]) {
		return 0, nil, nil, ErrBufferOverflow
	}
	typ, p1 := ParseTLNum(buf)
	if p1 >= len(buf) || len(buf)-p1 < tlNumLen(buf[p1]) {
		return 0, nil, nil, ErrBufferOverflow
	}
	l, p2 := ParseTLNum(buf[p1:])
	start := p1 + p2
	end := start + int(l)
	if end > len(buf) || end < start {
		return 0, nil, nil, ErrBufferOverflow
	}
	return typ, buf[start:end], buf[end:], nil
}

// decodeName parses a Name TLV's value (the concatenated NameComponent
// TLVs) into a Name.
func decodeName(val []byte) (Name, error) {
	name := Name{}
	for len(val) > 0 {
		typ, cval, rest, err := readTLV(val)
		if err != nil {
			return nil, err
		}
		name = append(name, Component{Typ: typ, Val: append([]byte(nil), cval...)})
		val = rest
	}
	return name, nil
}

func randNonce() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

// EncodeInterest produces the deterministic (modulo Nonce) TLV wire
// encoding of an Interest: a Name TLV followed by a 4-byte Nonce TLV,
// per §4.8.
func EncodeInterest(i *Interest) Wire {
	nonce := i.NonceV.GetOr(randNonce())
	nameBuf := i.NameV.Bytes()

	nonceVal := make([]byte, 4)
	binary.BigEndian.PutUint32(nonceVal, nonce)
	nonceTLVLen := TypeNonce.EncodingLength() + TLNum(4).EncodingLength() + 4
	nonceBuf := make([]byte, nonceTLVLen)
	p := TypeNonce.EncodeInto(nonceBuf)
	p += TLNum(4).EncodeInto(nonceBuf[p:])
	copy(nonceBuf[p:], nonceVal)

	innerLen := len(nameBuf) + len(nonceBuf)
	header := make([]byte, TypeInterest.EncodingLength()+TLNum(innerLen).EncodingLength())
	p = TypeInterest.EncodeInto(header)
	p += TLNum(innerLen).EncodeInto(header[p:])

	return Wire{header, nameBuf, nonceBuf}
}

// EncodeContent produces the TLV wire encoding of a Content/Data packet: a
// Name TLV, an empty MetaInfo TLV, and a Content TLV carrying the raw
// payload, per §4.8.
func EncodeContent(c *Content) Wire {
	nameBuf := c.NameV.Bytes()

	metaBuf := make([]byte, TypeMetaInfo.EncodingLength()+TLNum(0).EncodingLength())
	p := TypeMetaInfo.EncodeInto(metaBuf)
	TLNum(0).EncodeInto(metaBuf[p:])

	contentHeader := make([]byte, TypeContent.EncodingLength()+TLNum(len(c.ContentV)).EncodingLength())
	p = TypeContent.EncodeInto(contentHeader)
	TLNum(len(c.ContentV)).EncodeInto(contentHeader[p:])

	innerLen := len(nameBuf) + len(metaBuf) + len(contentHeader) + len(c.ContentV)
	header := make([]byte, TypeData.EncodingLength()+TLNum(innerLen).EncodingLength())
	p = TypeData.EncodeInto(header)
	TLNum(innerLen).EncodeInto(header[p:])

	return Wire{header, nameBuf, metaBuf, contentHeader, c.ContentV}
}

// EncodeNack wraps the originating Interest's wire encoding in an
// LpPacket carrying an LpPacket_Nack(reason) header and an
// LpPacket_Fragment(original Interest bytes), per §4.8.
func EncodeNack(n *Nack) Wire {
	var fragWire []byte
	if n.Interest.WireV != nil {
		fragWire = n.Interest.WireV.Join()
	} else {
		fragWire = EncodeInterest(n.Interest).Join()
	}

	reasonVal := Nat(n.Reason).Bytes()
	reasonTLV := make([]byte, TypeLpNackCode.EncodingLength()+TLNum(len(reasonVal)).EncodingLength()+len(reasonVal))
	p := TypeLpNackCode.EncodeInto(reasonTLV)
	p += TLNum(len(reasonVal)).EncodeInto(reasonTLV[p:])
	copy(reasonTLV[p:], reasonVal)

	nackTLV := make([]byte, TypeLpNack.EncodingLength()+TLNum(len(reasonTLV)).EncodingLength()+len(reasonTLV))
	p = TypeLpNack.EncodeInto(nackTLV)
	p += TLNum(len(reasonTLV)).EncodeInto(nackTLV[p:])
	copy(nackTLV[p:], reasonTLV)

	fragTLV := make([]byte, TypeLpFragment.EncodingLength()+TLNum(len(fragWire)).EncodingLength()+len(fragWire))
	p = TypeLpFragment.EncodeInto(fragTLV)
	p += TLNum(len(fragWire)).EncodeInto(fragTLV[p:])
	copy(fragTLV[p:], fragWire)

	innerLen := len(nackTLV) + len(fragTLV)
	header := make([]byte, TypeLpPacket.EncodingLength()+TLNum(innerLen).EncodingLength())
	p = TypeLpPacket.EncodeInto(header)
	TLNum(innerLen).EncodeInto(header[p:])

	return Wire{header, nackTLV, fragTLV}
}

// DecodePacket identifies and parses one top-level TLV element from buf
// into a Packet, per the decode rule in §4.8: first byte equal to the
// Data type selects Content, Interest selects Interest, LpPacket with a
// Nack header selects Nack; anything else (including malformed input)
// yields Unknown with the raw bytes preserved, never an error — decode
// failures are recoverable drops at the ICN layer (§7), not exceptions.
func DecodePacket(buf []byte) Packet {
	typ, val, _, err := readTLV(buf)
	if err != nil {
		return Packet{Unknown: &Unknown{WireV: Wire{append([]byte(nil), buf...)}}}
	}

	switch typ {
	case TypeInterest:
		name, nonce, ok := decodeInterestBody(val)
		if !ok {
			return Packet{Unknown: &Unknown{WireV: Wire{append([]byte(nil), buf...)}}}
		}
		i := &Interest{NameV: name, WireV: Wire{append([]byte(nil), buf...)}}
		if ok {
			i.NonceV = optional.Some(nonce)
		}
		return Packet{Interest: i}

	case TypeData:
		name, content, ok := decodeDataBody(val)
		if !ok {
			return Packet{Unknown: &Unknown{WireV: Wire{append([]byte(nil), buf...)}}}
		}
		return Packet{Content: &Content{
			NameV:    name,
			ContentV: append([]byte(nil), content...),
			WireV:    Wire{append([]byte(nil), buf...)},
		}}

	case TypeLpPacket:
		if nack, ok := decodeLpNack(val); ok {
			return Packet{Nack: nack}
		}
		return Packet{Unknown: &Unknown{WireV: Wire{append([]byte(nil), buf...)}}}

	default:
		return Packet{Unknown: &Unknown{WireV: Wire{append([]byte(nil), buf...)}}}
	}
}

func decodeInterestBody(val []byte) (name Name, nonce uint32, ok bool) {
	var sawNonce bool
	for len(val) > 0 {
		typ, v, rest, err := readTLV(val)
		if err != nil {
			return nil, 0, false
		}
		switch typ {
		case TypeName:
			name, err = decodeName(v)
			if err != nil {
				return nil, 0, false
			}
		case TypeNonce:
			if len(v) == 4 {
				nonce = binary.BigEndian.Uint32(v)
				sawNonce = true
			}
		}
		val = rest
	}
	if name == nil {
		return nil, 0, false
	}
	return name, nonce, sawNonce
}

func decodeDataBody(val []byte) (name Name, content []byte, ok bool) {
	var sawName bool
	for len(val) > 0 {
		typ, v, rest, err := readTLV(val)
		if err != nil {
			return nil, nil, false
		}
		switch typ {
		case TypeName:
			var err error
			name, err = decodeName(v)
			if err != nil {
				return nil, nil, false
			}
			sawName = true
		case TypeContent:
			content = v
		}
		val = rest
	}
	return name, content, sawName
}

func decodeLpNack(val []byte) (*Nack, bool) {
	var reason NackReason
	var sawNack bool
	var fragment []byte
	for len(val) > 0 {
		typ, v, rest, err := readTLV(val)
		if err != nil {
			return nil, false
		}
		switch typ {
		case TypeLpNack:
			r, ok := decodeLpNackReason(v)
			if !ok {
				return nil, false
			}
			reason = r
			sawNack = true
		case TypeLpFragment:
			fragment = v
		}
		val = rest
	}
	if !sawNack || fragment == nil {
		return nil, false
	}

	inner := DecodePacket(fragment)
	if inner.Interest == nil {
		return nil, false
	}
	return &Nack{
		Interest: inner.Interest,
		NameV:    inner.Interest.NameV,
		Reason:   reason,
	}, true
}

func decodeLpNackReason(val []byte) (NackReason, bool) {
	for len(val) > 0 {
		typ, v, rest, err := readTLV(val)
		if err != nil {
			return 0, false
		}
		if typ == TypeLpNackCode {
			n, err := ParseNat(v)
			if err != nil {
				return 0, false
			}
			return NackReason(n), true
		}
		val = rest
	}
	return 0, false
}
