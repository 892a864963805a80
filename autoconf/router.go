package autoconf

import (
	"strings"
	"time"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/face"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/routing"
	"github.com/usi-icn/nfnd/types/optional"
)

// RouterConfig configures a routing node's side of §4.7's handshake.
type RouterConfig struct {
	BroadcastAddr string
	BroadcastPort int
	// RouteLifetime is how long an adopted route is valid for before
	// ageing reaps it; §4.7 fixes this at 3600s.
	RouteLifetime time.Duration
}

// DefaultRouteLifetime is §4.7's fixed adopted-route expiry: now + 3600s.
const DefaultRouteLifetime = 3600 * time.Second

// RouterSolicitor runs the routing-node side of §4.7: it broadcasts the
// same /autoconfig/forwarders Interest a repo would, but instead of
// registering service prefixes it expects a `udp4://<addr>` +
// `r:<distance>:<prefix>` reply and folds each valid route into the RIB
// with distance incremented by one.
type RouterSolicitor struct {
	cfg RouterConfig
	rib *routing.Root
	faces *face.Table

	Out chan<- fw.Message
	In  <-chan fw.Message

	stop chan struct{}
}

// NewRouterSolicitor wires a RouterSolicitor to the ICN layer's upstream
// queues and the RIB it feeds.
func NewRouterSolicitor(cfg RouterConfig, rib *routing.Root, faces *face.Table, out chan<- fw.Message, in <-chan fw.Message) *RouterSolicitor {
	if cfg.RouteLifetime <= 0 {
		cfg.RouteLifetime = DefaultRouteLifetime
	}
	return &RouterSolicitor{cfg: cfg, rib: rib, faces: faces, Out: out, In: in, stop: make(chan struct{})}
}

func (s *RouterSolicitor) String() string { return "autoconf-router" }

func (s *RouterSolicitor) Run() {
	name, _ := enc.NameFromStr(ForwardersPrefix)
	s.Out <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: &enc.Interest{NameV: name}}}

	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-s.In:
			if !ok {
				return
			}
			if msg.Packet.Content != nil {
				s.handleContent(msg.Packet.Content)
			}
		}
	}
}

func (s *RouterSolicitor) Stop() { close(s.stop) }

func (s *RouterSolicitor) handleContent(c *enc.Content) {
	reply, err := ParseRouterReply(c.ContentV)
	if err != nil {
		core.Log.Warn(s, "failed to parse router reply", "err", err)
		return
	}

	addr := strings.TrimPrefix(reply.ForwarderURI, "udp4://")
	f, err := face.NewUDPFace(addr)
	if err != nil {
		core.Log.Warn(s, "failed to dial forwarder", "addr", addr, "err", err)
		return
	}
	fid := s.faces.Add(f)

	expiry := optional.Some(time.Now().Add(s.cfg.RouteLifetime))
	for _, r := range reply.Routes {
		prefix, err := enc.NameFromStr(r.Prefix)
		if err != nil {
			continue
		}
		core.Log.Info(s, "adopting route", "prefix", r.Prefix, "distance", r.Distance+1)
		s.rib.Insert(prefix, fid, uint64(r.Distance+1), expiry)
	}
}
