package repo

import (
	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/fw"
)

// Server is the top-most application layer (§2's "repository/app layer"):
// it answers Interests the NFN layer passed straight through by looking
// them up in a Repository, Nacking misses. Grounded on the shape of the
// teacher's own layer goroutines (one inbound queue, one outbound queue,
// a close channel), since no retained PiCN source names this layer beyond
// the BaseRepository interface it serves through.
type Server struct {
	repo Repository

	In  <-chan fw.Message
	Out chan<- fw.Message

	close chan struct{}
}

// NewServer wires a Server to the queues one layer below it (either the
// NFN layer directly, or a RepoSolicitor passing through non-autoconfig
// traffic).
func NewServer(r Repository, in <-chan fw.Message, out chan<- fw.Message) *Server {
	return &Server{repo: r, In: in, Out: out, close: make(chan struct{})}
}

func (s *Server) String() string { return "repo-server" }

// Run is the layer's main loop (§5).
func (s *Server) Run() {
	for {
		select {
		case <-s.close:
			return
		case msg, ok := <-s.In:
			if !ok {
				return
			}
			s.handle(msg)
		}
	}
}

func (s *Server) Stop() { close(s.close) }

func (s *Server) handle(msg fw.Message) {
	i := msg.Packet.Interest
	if i == nil {
		core.Log.Debug(s, "dropping non-Interest traffic")
		return
	}

	content, ok := s.repo.Get(i.NameV)
	if !ok {
		s.Out <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Nack: &enc.Nack{
			Interest: i,
			NameV:    i.NameV,
			Reason:   enc.NackNoContent,
		}}}
		return
	}

	s.Out <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Content: &enc.Content{
		NameV:    i.NameV,
		ContentV: content,
	}}}
}
