// Package face implements §4.9's face/link layer: a Face interface over a
// specific transport, plus a Table that owns id assignment and dispatch
// into/out of the rest of the pipeline. Grounded on the teacher's
// fw/face/transport.go transport/transportBase split, reshaped around this
// module's Message channels instead of the teacher's LinkService plumbing.
package face

import (
	"sync"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/fw"
)

// Face is a transport-agnostic endpoint bound to a remote peer. FaceID 0 is
// reserved (fw.UpstreamFace); real faces are always assigned ids >= 1.
type Face interface {
	FaceID() uint64
	setFaceID(id uint64)
	LocalURI() string
	RemoteURI() string
	Send(pkt enc.Packet) error
	IsRunning() bool
	Close()
	// runReceive reads frames off the transport until it closes, decoding
	// each into a Packet and delivering it to deliver.
	runReceive(deliver func(enc.Packet))
}

// faceBase holds the bookkeeping common to every Face implementation,
// mirroring the teacher's transportBase.
type faceBase struct {
	mu        sync.Mutex
	faceID    uint64
	localURI  string
	remoteURI string
	running   bool
	static    bool
}

func (b *faceBase) FaceID() uint64       { return b.faceID }
func (b *faceBase) setFaceID(id uint64)  { b.faceID = id }
func (b *faceBase) LocalURI() string     { return b.localURI }
func (b *faceBase) RemoteURI() string    { return b.remoteURI }
func (b *faceBase) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *faceBase) setRunning(v bool) {
	b.mu.Lock()
	b.running = v
	b.mu.Unlock()
}

// Table assigns face ids and owns the live Face set, bridging the face
// layer into the ICN layer's FromLower/ToLower Message channels (§2).
type Table struct {
	mu     sync.RWMutex
	faces  map[uint64]Face
	nextID uint64

	ToLower   chan<- fw.Message
	FromLower <-chan fw.Message
}

// NewTable constructs an empty Table wired to the ICN layer's lower-side
// queues. Face ids start at 1 so they never collide with fw.UpstreamFace.
func NewTable(toLower chan<- fw.Message, fromLower <-chan fw.Message) *Table {
	return &Table{
		faces:     make(map[uint64]Face),
		nextID:    1,
		ToLower:   toLower,
		FromLower: fromLower,
	}
}

func (t *Table) String() string { return "face-table" }

// Add assigns the next free face id to f, starts its receive loop, and
// returns the assigned id.
func (t *Table) Add(f Face) uint64 {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	f.setFaceID(id)
	t.faces[id] = f
	t.mu.Unlock()

	go f.runReceive(func(pkt enc.Packet) {
		t.ToLower <- fw.Message{FaceId: id, Packet: pkt}
	})
	return id
}

// Get returns the face with the given id, or nil.
func (t *Table) Get(id uint64) Face {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.faces[id]
}

// Remove closes and forgets the face with the given id.
func (t *Table) Remove(id uint64) {
	t.mu.Lock()
	f, ok := t.faces[id]
	if ok {
		delete(t.faces, id)
	}
	t.mu.Unlock()
	if ok {
		f.Close()
	}
}

// Run drains FromLower (Messages the ICN layer addressed to a face) and
// sends each to the named face's transport, until stopped.
func (t *Table) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-t.FromLower:
			if !ok {
				return
			}
			f := t.Get(msg.FaceId)
			if f == nil {
				core.Log.Debug(t, "dropping message for unknown face", "face", msg.FaceId)
				continue
			}
			if err := f.Send(msg.Packet); err != nil {
				core.Log.Warn(t, "send failed", "face", msg.FaceId, "err", err)
			}
		}
	}
}
