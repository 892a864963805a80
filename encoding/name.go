package encoding

import (
	"bytes"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TLV type numbers relevant to the subset of NDN-TLV 0.2 this module speaks
// (§4.8). Only the component types the core actually needs are defined;
// unrecognized component types round-trip fine since Component only ever
// stores Typ/Val.
const (
	TypeInvalidComponent              TLNum = 0x00
	TypeImplicitSha256DigestComponent TLNum = 0x01
	TypeGenericNameComponent          TLNum = 0x08

	TypeName     TLNum = 0x07
	TypeInterest TLNum = 0x05
	TypeNonce    TLNum = 0x0a
	TypeData     TLNum = 0x06
	TypeMetaInfo TLNum = 0x14
	TypeContent  TLNum = 0x15

	// NDNLPv2 subset used to carry Nacks (§4.8).
	TypeLpPacket   TLNum = 0x64
	TypeLpFragment TLNum = 0x50
	TypeLpNack     TLNum = 0x0320
	TypeLpNackCode TLNum = 0x0321
	TypeLpPitToken TLNum = 0x62
)

// NackReason is one of the §4.8 reason codes.
type NackReason uint64

const (
	NackReasonNone                  NackReason = 0
	NackCongestion                  NackReason = 50
	NackDuplicate                   NackReason = 100
	NackNoRoute                     NackReason = 150
	NackNoContent                   NackReason = 160
	NackCompQueueFull               NackReason = 161
	NackCompParamUnavailable        NackReason = 162
	NackCompException               NackReason = 163
	NackCompTerminated              NackReason = 164
)

// String renders the reason the way the spec names it, for logging.
func (r NackReason) String() string {
	switch r {
	case NackCongestion:
		return "CONGESTION"
	case NackDuplicate:
		return "DUPLICATE"
	case NackNoRoute:
		return "NO_ROUTE"
	case NackNoContent:
		return "NO_CONTENT"
	case NackCompQueueFull:
		return "COMP_QUEUE_FULL"
	case NackCompParamUnavailable:
		return "COMP_PARAM_UNAVAILABLE"
	case NackCompException:
		return "COMP_EXCEPTION"
	case NackCompTerminated:
		return "COMP_TERMINATED"
	default:
		return "NONE"
	}
}

// Component is one opaque, typed element of a Name.
type Component struct {
	Typ TLNum
	Val []byte
}

// NewGenericComponent builds a TypeGenericNameComponent from a string.
func NewGenericComponent(s string) Component {
	return Component{Typ: TypeGenericNameComponent, Val: []byte(s)}
}

// String renders "type=value" for non-generic components, or just the raw
// value text for generic ones (matching the teacher's alt-URI convention,
// minus the named-convention table, which is out of scope here).
func (c Component) String() string {
	if c.Typ == TypeGenericNameComponent {
		return string(c.Val)
	}
	sb := strings.Builder{}
	sb.WriteString(tlNumToStr(c.Typ))
	sb.WriteByte('=')
	sb.Write(c.Val)
	return sb.String()
}

func tlNumToStr(v TLNum) string {
	return Nat(v).String()
}

// String renders a Nat in decimal.
func (v Nat) String() string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	x := uint64(v)
	for x > 0 {
		i--
		buf[i] = byte('0' + x%10)
		x /= 10
	}
	return string(buf[i:])
}

// Equal reports whether two components have the same type and value.
func (c Component) Equal(o Component) bool {
	return c.Typ == o.Typ && bytes.Equal(c.Val, o.Val)
}

// EncodingLength returns the TLV-encoded length of the component.
func (c Component) EncodingLength() int {
	l := len(c.Val)
	return c.Typ.EncodingLength() + Nat(l).EncodingLength() + l
}

// EncodeInto writes the TLV encoding of c into buf, returning bytes written.
func (c Component) EncodeInto(buf []byte) int {
	p1 := c.Typ.EncodeInto(buf)
	p2 := TLNum(len(c.Val)).EncodeInto(buf[p1:])
	copy(buf[p1+p2:], c.Val)
	return p1 + p2 + len(c.Val)
}

// Name is an ordered sequence of Components.
type Name []Component

// NameFromStr parses a '/'-separated string into a Name. An optional type
// prefix ("type=value") is honored per component; a bare "sha256digest="
// component is not special-cased since the implicit digest never appears
// in a literal name string in this subset.
func NameFromStr(s string) (Name, error) {
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return Name{}, nil
	}
	parts := strings.Split(s, "/")
	name := make(Name, 0, len(parts))
	for _, p := range parts {
		typ := TypeGenericNameComponent
		val := p
		if idx := strings.IndexByte(p, '='); idx >= 0 {
			// best-effort: only numeric type prefixes are recognized
			if n, ok := parseUintDecimal(p[:idx]); ok {
				typ = TLNum(n)
				val = p[idx+1:]
			}
		}
		name = append(name, Component{Typ: typ, Val: []byte(val)})
	}
	return name, nil
}

func parseUintDecimal(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	var n uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + uint64(r-'0')
	}
	return n, true
}

// String renders the Name as a '/'-prefixed path.
func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	sb := strings.Builder{}
	for _, c := range n {
		sb.WriteByte('/')
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Equal reports whether two Names have the same component sequence.
func (n Name) Equal(o Name) bool {
	if len(n) != len(o) {
		return false
	}
	for i := range n {
		if !n[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// IsPrefix reports whether n is a prefix of o (n's components equal o's
// first len(n) components). The empty Name is a prefix of everything.
func (n Name) IsPrefix(o Name) bool {
	if len(n) > len(o) {
		return false
	}
	for i := range n {
		if !n[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Append returns a new Name with rest appended.
func (n Name) Append(rest ...Component) Name {
	out := make(Name, 0, len(n)+len(rest))
	out = append(out, n...)
	out = append(out, rest...)
	return out
}

// Prefix returns the first k components of n (k may exceed len(n), in
// which case the full Name is returned).
func (n Name) Prefix(k int) Name {
	if k > len(n) {
		k = len(n)
	}
	out := make(Name, k)
	copy(out, n[:k])
	return out
}

// Clone returns a deep copy of n.
func (n Name) Clone() Name {
	out := make(Name, len(n))
	for i, c := range n {
		out[i] = Component{Typ: c.Typ, Val: append([]byte(nil), c.Val...)}
	}
	return out
}

// EncodingLength returns the byte length of the Name TLV (§4.8): a Name TLV
// wraps ordered NameComponent TLVs.
func (n Name) EncodingLength() int {
	l := 0
	for _, c := range n {
		l += c.EncodingLength()
	}
	return TypeName.EncodingLength() + TLNum(l).EncodingLength() + l
}

// EncodeInto writes the Name TLV into buf, returning bytes written.
func (n Name) EncodeInto(buf []byte) int {
	inner := 0
	for _, c := range n {
		inner += c.EncodingLength()
	}
	p := TypeName.EncodeInto(buf)
	p += TLNum(inner).EncodeInto(buf[p:])
	for _, c := range n {
		p += c.EncodeInto(buf[p:])
	}
	return p
}

// Bytes returns the TLV-encoded Name.
func (n Name) Bytes() []byte {
	buf := make([]byte, n.EncodingLength())
	n.EncodeInto(buf)
	return buf
}

// Hash returns a 64-bit hash over each component's value bytes followed by
// the low byte of its type, used as a fast map key in CS/PIT lookups
// alongside structural Equal comparisons — the
// same split the teacher's Component.Hash()/NameTrie make between hashing
// for bucketing and Equal for correctness.
func (n Name) Hash() uint64 {
	h := xxhash.New()
	for _, c := range n {
		h.Write(c.Val)
		h.Write([]byte{byte(c.Typ)})
	}
	return h.Sum64()
}
