package encoding

import "github.com/usi-icn/nfnd/types/optional"

// Interest carries a Name and, once encoded, the raw wire bytes that
// produced it (§3's "Interest — carries a Name and an optional raw wire
// encoding").
type Interest struct {
	NameV  Name
	NonceV optional.Optional[uint32]
	WireV  Wire
}

func (i *Interest) String() string { return "Interest(" + i.NameV.String() + ")" }

// Content carries a Name, a payload, and optionally the wire that produced
// it.
type Content struct {
	NameV    Name
	ContentV []byte
	WireV    Wire
}

func (c *Content) String() string { return "Content(" + c.NameV.String() + ")" }

// Nack carries the Interest that elicited it, its Name (duplicated from
// the Interest for convenience), and a reason code.
type Nack struct {
	Interest *Interest
	NameV    Name
	Reason   NackReason
}

func (n *Nack) String() string { return "Nack(" + n.NameV.String() + "," + n.Reason.String() + ")" }

// Unknown is opaque wire bytes that did not parse as Interest/Content/Nack.
type Unknown struct {
	WireV Wire
}

func (u *Unknown) String() string { return "Unknown" }

// Packet is a tagged union: exactly one field is non-nil. This mirrors the
// teacher's own spec.Packet{Interest, Data, LpPacket} shape in
// std/engine/basic/engine.go, generalized to the four variants §3 names.
type Packet struct {
	Interest *Interest
	Content  *Content
	Nack     *Nack
	Unknown  *Unknown
}

// Name returns the Name carried by whichever variant is set, or nil for an
// Unknown packet.
func (p Packet) Name() Name {
	switch {
	case p.Interest != nil:
		return p.Interest.NameV
	case p.Content != nil:
		return p.Content.NameV
	case p.Nack != nil:
		return p.Nack.NameV
	default:
		return nil
	}
}

func (p Packet) String() string {
	switch {
	case p.Interest != nil:
		return p.Interest.String()
	case p.Content != nil:
		return p.Content.String()
	case p.Nack != nil:
		return p.Nack.String()
	default:
		return "Unknown"
	}
}
