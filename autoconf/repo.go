package autoconf

import (
	"strconv"
	"time"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/face"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/repo"
)

// RepoConfig configures a repository's autoconfiguration handshake (§4.7).
type RepoConfig struct {
	ServiceName        string
	Addr               string
	Port               int
	BroadcastAddr      string
	BroadcastPort      int
	SolicitationTimeout time.Duration
	SolicitationMaxRetry int
}

// RepoSolicitor runs the repo side of §4.7: it broadcasts
// /autoconfig/forwarders, creates a static face to whichever forwarder
// answers, and registers every advertised prefix. Grounded on the PiCN
// AutoconfigRepoLayer; its threading.Timer retry loop becomes one
// short-lived goroutine per attempt that waits on time.After, since this
// module has no process-wide timer registry to share.
type RepoSolicitor struct {
	cfg   RepoConfig
	repo  repo.Repository
	faces *face.Table

	Out chan<- fw.Message
	In  <-chan fw.Message

	// RepoOut connects to the repo.Server sitting above this layer: any
	// Interest that isn't part of the autoconfiguration handshake is
	// passed straight through, mirroring AutoconfigRepoLayer's
	// data_from_lower passthrough of anything outside the /autoconfig
	// prefix. repo.Server replies directly onto the same Out channel
	// this layer uses, so no return path back through this layer is
	// needed.
	RepoOut chan<- fw.Message

	stop chan struct{}
}

// NewRepoSolicitor wires a RepoSolicitor to the ICN layer's upstream queues
// (it speaks Interests/Content/Nack the same way any higher layer does,
// via fw.UpstreamFace) and to the repo.Server above it.
func NewRepoSolicitor(cfg RepoConfig, r repo.Repository, faces *face.Table, out chan<- fw.Message, in <-chan fw.Message, repoOut chan<- fw.Message) *RepoSolicitor {
	return &RepoSolicitor{cfg: cfg, repo: r, faces: faces, Out: out, In: in, RepoOut: repoOut, stop: make(chan struct{})}
}

func (s *RepoSolicitor) String() string { return "autoconf-repo" }

// Run solicits forwarders and then processes their replies/Nacks until
// Stop is called or solicitation is exhausted (§7: "fatal and terminates
// the process").
func (s *RepoSolicitor) Run() {
	s.solicit(s.cfg.SolicitationMaxRetry)
	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-s.In:
			if !ok {
				return
			}
			s.handle(msg)
		}
	}
}

func (s *RepoSolicitor) Stop() { close(s.stop) }

func (s *RepoSolicitor) solicit(retry int) {
	name, _ := enc.NameFromStr(ForwardersPrefix)
	core.Log.Info(s, "soliciting forwarders", "retry", retry)
	s.Out <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: &enc.Interest{NameV: name}}}

	if retry <= 1 {
		go func() {
			select {
			case <-time.After(s.cfg.SolicitationTimeout):
				core.Log.Fatal(s, "no forwarder solicitation received in time")
			case <-s.stop:
			}
		}()
		return
	}
	if s.cfg.SolicitationTimeout <= 0 {
		return
	}
	go func() {
		select {
		case <-time.After(s.cfg.SolicitationTimeout):
			s.solicit(retry - 1)
		case <-s.stop:
		}
	}()
}

func (s *RepoSolicitor) handle(msg fw.Message) {
	switch {
	case msg.Packet.Interest != nil:
		s.handleInterest(msg)
	case msg.Packet.Content != nil:
		s.handleContent(msg)
	case msg.Packet.Nack != nil:
		s.handleNack(msg.Packet.Nack)
	}
}

// handleInterest passes every Interest straight to the repo.Server above:
// the autoconfiguration handshake never receives Interests (only the
// Content/Nack replies to the ones it sends), so nothing here is ever
// autoconfig traffic.
func (s *RepoSolicitor) handleInterest(msg fw.Message) {
	if s.RepoOut != nil {
		s.RepoOut <- msg
	}
}

func (s *RepoSolicitor) handleContent(msg fw.Message) {
	c := msg.Packet.Content
	name := c.NameV.String()
	switch {
	case len(c.NameV) >= 2 && c.NameV[0].String() == "autoconfig" && c.NameV[1].String() == "forwarders":
		s.handleForwarders(c)
	case len(c.NameV) >= 2 && c.NameV[0].String() == "autoconfig" && c.NameV[1].String() == "service":
		s.handleServiceRegistration(c)
	default:
		core.Log.Debug(s, "passing unrelated content to repo server", "name", name)
		if s.RepoOut != nil {
			s.RepoOut <- msg
		}
	}
}

func (s *RepoSolicitor) handleForwarders(c *enc.Content) {
	reply, err := ParseRepoReply(c.ContentV)
	if err != nil {
		core.Log.Warn(s, "failed to parse forwarders reply", "err", err)
		return
	}
	core.Log.Info(s, "received forwarder info", "host", reply.Host, "port", reply.Port)

	f, err := face.NewUDPFace(reply.Host + ":" + strconv.Itoa(reply.Port))
	if err != nil {
		core.Log.Warn(s, "failed to dial forwarder", "err", err)
		return
	}
	fwdFid := s.faces.Add(f)

	for _, p := range reply.Prefix {
		prefix, err := enc.NameFromStr(p)
		if err != nil {
			continue
		}
		regName, err := enc.NameFromStr(ServicePrefix)
		if err != nil {
			continue
		}
		regName = regName.Append(enc.NewGenericComponent(s.cfg.Addr + ":" + strconv.Itoa(s.cfg.Port)))
		regName = regName.Append(prefix...)
		regName = regName.Append(enc.NewGenericComponent(s.cfg.ServiceName))

		core.Log.Info(s, "registering service", "name", regName.String())
		s.Out <- fw.Message{FaceId: fwdFid, Packet: enc.Packet{Interest: &enc.Interest{NameV: regName}}}
	}
}

func (s *RepoSolicitor) handleServiceRegistration(c *enc.Content) {
	if len(c.NameV) < 3 {
		return
	}
	adopted := c.NameV[3:]
	core.Log.Info(s, "service registration accepted", "prefix", adopted.String())
	s.repo.SetPrefix(adopted)
}

func (s *RepoSolicitor) handleNack(n *enc.Nack) {
	if len(n.NameV) >= 2 && n.NameV[0].String() == "autoconfig" && n.NameV[1].String() == "service" {
		core.Log.Error(s, "service registration declined", "reason", n.Reason.String())
	}
}
