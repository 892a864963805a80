package autoconf

import (
	"strconv"
	"strings"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/face"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/table"
	"github.com/usi-icn/nfnd/types/optional"
)

// ForwarderConfig configures the forwarder side of §4.7: the host:port a
// joining repository should dial back to reach this node, and the
// prefixes this node is willing to hand off to whichever repository
// answers first.
type ForwarderConfig struct {
	Host     string
	Port     int
	Prefixes []string
}

// ForwarderResponder answers the /autoconfig/forwarders broadcast and the
// per-prefix /autoconfig/service registration Interests a joining
// repository sends, installing a FIB entry for each accepted prefix.
// Grounded on the reply/registration shapes §4.7 describes from the
// client's perspective (the "forwarders reply with a Content whose
// payload is ..." paragraph, and "FIB entries are created by ...
// successful autoconfiguration registration", §4.1); no PiCN
// forwarder-side source for this half of the handshake was retained in
// this pack, so the accept-and-install behaviour is this student's own
// generalization, mirrored against RepoSolicitor's own shape (same
// Interest dispatch, same static-face-plus-FIB-entry pattern used by
// routing.Root.BuildFib for collapsed routes).
type ForwarderResponder struct {
	cfg   ForwarderConfig
	fib   *table.Fib
	faces *face.Table

	Out chan<- fw.Message
	In  <-chan fw.Message

	// PassOut forwards any Interest that isn't part of the autoconfig
	// handshake to whatever layer serves this node's own content (the
	// repo.Server wired above, if one is present).
	PassOut chan<- fw.Message

	stop chan struct{}
}

// NewForwarderResponder wires a ForwarderResponder to the ICN layer's
// upstream queues, exactly as RepoSolicitor and repo.Server do.
func NewForwarderResponder(cfg ForwarderConfig, fib *table.Fib, faces *face.Table, out chan<- fw.Message, in <-chan fw.Message, passOut chan<- fw.Message) *ForwarderResponder {
	return &ForwarderResponder{cfg: cfg, fib: fib, faces: faces, Out: out, In: in, PassOut: passOut, stop: make(chan struct{})}
}

func (r *ForwarderResponder) String() string { return "autoconf-forwarder" }

// Run is the layer's main loop (§5).
func (r *ForwarderResponder) Run() {
	for {
		select {
		case <-r.stop:
			return
		case msg, ok := <-r.In:
			if !ok {
				return
			}
			r.handle(msg)
		}
	}
}

func (r *ForwarderResponder) Stop() { close(r.stop) }

func (r *ForwarderResponder) handle(msg fw.Message) {
	i := msg.Packet.Interest
	if i == nil {
		return
	}
	switch {
	case len(i.NameV) >= 2 && i.NameV[0].String() == "autoconfig" && i.NameV[1].String() == "forwarders":
		r.handleForwarders(i)
	case len(i.NameV) >= 2 && i.NameV[0].String() == "autoconfig" && i.NameV[1].String() == "service":
		r.handleServiceRegistration(i)
	default:
		if r.PassOut != nil {
			r.PassOut <- msg
		}
	}
}

func (r *ForwarderResponder) handleForwarders(i *enc.Interest) {
	var b strings.Builder
	b.WriteString(r.cfg.Host + ":" + strconv.Itoa(r.cfg.Port))
	for _, p := range r.cfg.Prefixes {
		b.WriteString("\np:" + p)
	}
	core.Log.Info(r, "answering forwarders solicitation", "prefixes", len(r.cfg.Prefixes))
	r.Out <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Content: &enc.Content{
		NameV:    i.NameV,
		ContentV: []byte(b.String()),
	}}}
}

// handleServiceRegistration parses
// /autoconfig/service/<addr>:<port>/<prefix...>/<service_name>, dials the
// registering repository, and installs a static FIB entry routing prefix
// to it.
func (r *ForwarderResponder) handleServiceRegistration(i *enc.Interest) {
	name := i.NameV
	if len(name) < 4 {
		core.Log.Warn(r, "malformed service registration", "name", name.String())
		return
	}

	addr := name[2].String()
	prefix := name[3 : len(name)-1]
	if len(prefix) == 0 {
		return
	}

	f, err := face.NewUDPFace(addr)
	if err != nil {
		core.Log.Warn(r, "failed to dial registering repository", "addr", addr, "err", err)
		r.Out <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Nack: &enc.Nack{
			Interest: i,
			NameV:    name,
			Reason:   enc.NackNoRoute,
		}}}
		return
	}
	fid := r.faces.Add(f)
	r.fib.Add(prefix, fid, true, optional.None[uint64]())

	core.Log.Info(r, "registered repository", "prefix", prefix.String(), "face", fid)
	r.Out <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Content: &enc.Content{
		NameV:    name,
		ContentV: nil,
	}}}
}
