// Package fw implements the ICN forwarding engine (§4.4): the single task
// that owns the CS, PIT, and FIB and runs their composite lookup-then-insert
// decisions serialized on its own goroutine (§5's "Composite forwarding
// decisions ... are serialized by executing them inside the ICN layer's
// single-task loop").
package fw

import (
	"time"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/table"
)

// Message is the `[face_id, packet]` unit exchanged between adjacent layers
// (§2).
type Message struct {
	FaceId uint64
	Packet enc.Packet
}

// UpstreamFace is the reserved face id meaning "the layer above the ICN
// layer" (NFN/repository), rather than a remote neighbour. FIB entries
// installed with this face id route matching Interests out ToHigher
// instead of ToLower, letting the NFN and repository layers register
// served prefixes through the same FIB longest-prefix mechanism every
// other nexthop uses.
const UpstreamFace uint64 = 0

// Forwarder is the ICN layer. FromLower/ToLower connect to the packet-
// encoding layer below; FromHigher/ToHigher connect to the NFN layer above.
// Both directions are bounded channels (§5's "bounded FIFO inter-layer
// queues").
type Forwarder struct {
	Cs  *table.Cs
	Pit *table.Pit
	Fib *table.Fib

	FromLower  <-chan Message
	ToLower    chan<- Message
	FromHigher <-chan Message
	ToHigher   chan<- Message

	PitLifetime time.Duration

	close chan struct{}
}

// NewForwarder wires a Forwarder around the given shared structures and
// queues. csCapacity is forwarded to table.NewCs; pitLifetime is the
// default expiry duration for newly created PIT entries (§4.2's T_pit).
func NewForwarder(csCapacity int, pitLifetime time.Duration, fromLower, fromHigher <-chan Message, toLower, toHigher chan<- Message) *Forwarder {
	return &Forwarder{
		Cs:          table.NewCs(csCapacity),
		Pit:         table.NewPit(),
		Fib:         table.NewFib(),
		FromLower:   fromLower,
		ToLower:     toLower,
		FromHigher:  fromHigher,
		ToHigher:    toHigher,
		PitLifetime: pitLifetime,
		close:       make(chan struct{}),
	}
}

func (f *Forwarder) String() string { return "icn-layer" }

// Run is the layer's main loop (§5): it suspends only on its two inbound
// queues and a periodic PIT ageing tick, until Stop is called.
func (f *Forwarder) Run() {
	ticker := time.NewTicker(f.ageInterval())
	defer ticker.Stop()

	for {
		select {
		case <-f.close:
			return
		case msg, ok := <-f.FromLower:
			if !ok {
				return
			}
			f.handleFromLower(msg)
		case msg, ok := <-f.FromHigher:
			if !ok {
				return
			}
			f.handleFromHigher(msg)
		case now := <-ticker.C:
			f.age(now)
		}
	}
}

// Stop cancels the layer's main loop (§5's cancellation contract: "Stopping
// a layer cancels its main task, drains no queues, and closes them").
func (f *Forwarder) Stop() {
	close(f.close)
}

func (f *Forwarder) ageInterval() time.Duration {
	if f.PitLifetime <= 0 {
		return time.Second
	}
	return f.PitLifetime
}

// age reaps expired PIT entries, synthesizing an application-facing
// timeout Nack for every reaped entry flagged Local (§4.2, §7).
func (f *Forwarder) age(now time.Time) {
	for _, e := range f.Pit.Ageing(now) {
		if !e.Local {
			continue
		}
		nack := enc.Packet{Nack: &enc.Nack{
			Interest: &enc.Interest{NameV: e.Name},
			NameV:    e.Name,
			Reason:   enc.NackNoContent,
		}}
		for face := range e.HigherHop {
			f.emitHigher(face, nack)
		}
	}
}

// handleFromLower dispatches a Message arriving from the link/encoding
// side: Interests and Nacks are forwarding-engine input from downstream
// neighbours; Content satisfies PIT entries and fans out.
func (f *Forwarder) handleFromLower(msg Message) {
	switch {
	case msg.Packet.Interest != nil:
		f.handleInterest(msg.FaceId, msg.Packet.Interest, false)
	case msg.Packet.Content != nil:
		f.handleContent(msg.FaceId, msg.Packet.Content)
	case msg.Packet.Nack != nil:
		f.handleNack(msg.FaceId, msg.Packet.Nack)
	default:
		core.Log.Debug(f, "dropping unparseable packet from lower layer", "face", msg.FaceId)
	}
}

// handleFromHigher dispatches a Message arriving from the NFN/repository
// side. Interests issued by the higher layers are treated as local
// (§4.4's local_app_flag), so their PIT entries synthesize timeout Nacks
// back up on ageing. Content and Nack from higher are forwarded straight
// down, satisfying/propagating whatever PIT entry they answer.
func (f *Forwarder) handleFromHigher(msg Message) {
	switch {
	case msg.Packet.Interest != nil:
		f.handleInterest(msg.FaceId, msg.Packet.Interest, true)
	case msg.Packet.Content != nil:
		f.handleContent(msg.FaceId, msg.Packet.Content)
	case msg.Packet.Nack != nil:
		f.handleNack(msg.FaceId, msg.Packet.Nack)
	default:
		core.Log.Debug(f, "dropping unparseable packet from higher layer", "face", msg.FaceId)
	}
}

// handleInterest implements §4.4's Interest state machine.
func (f *Forwarder) handleInterest(faceIn uint64, i *enc.Interest, local bool) {
	if c := f.Cs.Find(i.NameV); c != nil {
		content := enc.Content{NameV: c.Name, ContentV: c.Content}
		f.emitTo(faceIn, enc.Packet{Content: &content}, local)
		return
	}

	if _, created := f.Pit.AddOrMerge(i.NameV, faceIn, local, false, time.Now().Add(f.PitLifetime)); !created {
		return
	}

	e := f.Fib.Find(i.NameV, nil, []uint64{faceIn})
	if e == nil {
		f.Pit.Remove(i.NameV)
		nack := enc.Packet{Nack: &enc.Nack{Interest: i, NameV: i.NameV, Reason: enc.NackNoRoute}}
		f.emitTo(faceIn, nack, local)
		return
	}

	if e.FaceId == UpstreamFace {
		f.ToHigher <- Message{FaceId: UpstreamFace, Packet: enc.Packet{Interest: i}}
		return
	}
	f.ToLower <- Message{FaceId: e.FaceId, Packet: enc.Packet{Interest: i}}
}

// handleContent implements §4.4's Content state machine: unsolicited
// Content (no matching PIT entry) is dropped, otherwise it is cached and
// fanned out to every incoming face but the one it arrived from.
func (f *Forwarder) handleContent(faceIn uint64, c *enc.Content) {
	if f.Pit.Find(c.NameV) == nil {
		core.Log.Debug(f, "dropping unsolicited content", "name", c.NameV.String())
		return
	}

	f.Cs.Add(c.NameV, c.ContentV, false, time.Now().Add(f.PitLifetime))
	entry := f.Pit.Remove(c.NameV)
	for face := range entry.InFaces {
		if face == faceIn {
			continue
		}
		_, higher := entry.HigherHop[face]
		f.emitTo(face, enc.Packet{Content: c}, higher)
	}
}

// handleNack implements §4.4's Nack state machine: retry via an alternate
// FIB entry excluding the face that produced the Nack, or propagate the
// Nack to every PIT incoming face and remove the entry.
func (f *Forwarder) handleNack(faceIn uint64, n *enc.Nack) {
	name := n.NameV
	e := f.Pit.Find(name)
	if e == nil {
		return
	}

	alt := f.Fib.Find(name, nil, []uint64{faceIn})
	if alt != nil {
		f.ToLower <- Message{FaceId: alt.FaceId, Packet: enc.Packet{Interest: n.Interest}}
		return
	}

	entry := f.Pit.Remove(name)
	for face := range entry.InFaces {
		_, higher := entry.HigherHop[face]
		f.emitTo(face, enc.Packet{Nack: n}, higher)
	}
}

// emitTo sends pkt to faceId on whichever outbound queue matches where the
// requesting Interest came from: local requests are answered upward to the
// NFN/repository layer, remote requests are answered downward.
func (f *Forwarder) emitTo(faceId uint64, pkt enc.Packet, local bool) {
	if local {
		f.emitHigher(faceId, pkt)
		return
	}
	f.ToLower <- Message{FaceId: faceId, Packet: pkt}
}

func (f *Forwarder) emitHigher(faceId uint64, pkt enc.Packet) {
	f.ToHigher <- Message{FaceId: faceId, Packet: pkt}
}
