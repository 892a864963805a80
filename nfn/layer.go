package nfn

import (
	"sync"

	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/table"
)

// Layer is the NFN layer (§4.6's "NFN layer's role"): it sits above the
// ICN layer, intercepts Interests whose final component is the Marker,
// and otherwise passes traffic through untouched to the repository layer
// above it.
type Layer struct {
	Cs        *table.Cs
	Fib       *table.Fib
	Executors ExecutorRegistry

	FromLower  <-chan fw.Message
	ToLower    chan<- fw.Message
	FromHigher <-chan fw.Message
	ToHigher   chan<- fw.Message

	mu sync.Mutex
	// rewrite maps a rewritten (remote-evaluation) name string to the
	// original NFN names awaiting its Content (§4.6 point 1).
	rewrite map[string][]enc.Name
	// requesterOf maps a sub-Interest name string an evaluator issued to
	// the original NFN name string that owns it.
	requesterOf map[string]string
	// pending maps an original NFN name string to the live evaluator
	// wiring serving it.
	pending map[string]*pendingEval

	close chan struct{}
}

type pendingEval struct {
	contentIn chan *enc.Content
	cancel    func()
}

// NewLayer constructs an NFN layer. executors may be nil/empty if no
// local computations are ever expected to run on this node (pure
// rewrite-and-forward deployments).
func NewLayer(cs *table.Cs, fib *table.Fib, executors ExecutorRegistry, fromLower, fromHigher <-chan fw.Message, toLower, toHigher chan<- fw.Message) *Layer {
	return &Layer{
		Cs:          cs,
		Fib:         fib,
		Executors:   executors,
		FromLower:   fromLower,
		ToLower:     toLower,
		FromHigher:  fromHigher,
		ToHigher:    toHigher,
		rewrite:     make(map[string][]enc.Name),
		requesterOf: make(map[string]string),
		pending:     make(map[string]*pendingEval),
		close:       make(chan struct{}),
	}
}

func (l *Layer) String() string { return "nfn-layer" }

// Run is the layer's main loop (§5).
func (l *Layer) Run() {
	for {
		select {
		case <-l.close:
			return
		case msg, ok := <-l.FromLower:
			if !ok {
				return
			}
			l.handleFromLower(msg)
		case msg, ok := <-l.FromHigher:
			if !ok {
				return
			}
			// Higher-originated traffic is transparent to this layer
			// (§9's pass-through resolution, generalized from the
			// routing layer to every intermediate layer).
			l.ToLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: msg.Packet}
		}
	}
}

// Stop cancels the layer and every evaluator it owns (§5).
func (l *Layer) Stop() {
	l.mu.Lock()
	for _, p := range l.pending {
		p.cancel()
	}
	l.mu.Unlock()
	close(l.close)
}

func (l *Layer) handleFromLower(msg fw.Message) {
	switch {
	case msg.Packet.Interest != nil:
		l.handleInterest(msg.Packet.Interest)
	case msg.Packet.Content != nil:
		l.handleContent(msg.Packet.Content)
	case msg.Packet.Nack != nil:
		l.handleNack(msg.Packet.Nack)
	default:
		core.Log.Debug(l, "dropping unparseable packet")
	}
}

func (l *Layer) handleInterest(i *enc.Interest) {
	name := i.NameV
	if !IsNfnInterest(name) {
		l.ToHigher <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: i}}
		return
	}

	nfnStr, _ := NetworkNameToNfnStr(name)
	ast, err := Parse(nfnStr)
	if err != nil {
		l.nackException(name)
		return
	}

	opt := NewToDataFirstOptimizer(l.Cs, l.Fib)
	if opt.ComputeFwd(ast) {
		rewrites := opt.Rewrite(ast)
		if len(rewrites) == 0 {
			l.nackException(name)
			return
		}
		for _, r := range rewrites {
			rn, err := NfnStrToNetworkName(r)
			if err != nil {
				continue
			}
			l.addRewrite(rn, name)
			l.ToLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: &enc.Interest{NameV: rn}}}
		}
		return
	}

	l.spawnEvaluator(name, ast)
}

// spawnEvaluator runs ast's compute_local evaluation (§4.6 point 2) in
// its own goroutine, pumping its sub-Interest requests down to the ICN
// layer until it produces a Result.
func (l *Layer) spawnEvaluator(name enc.Name, ast AST) {
	requestOut := make(chan enc.Name, 8)
	contentIn := make(chan *enc.Content, 8)
	ev := NewEvaluator(ast, l.Executors, requestOut, contentIn)

	key := name.String()
	l.mu.Lock()
	l.pending[key] = &pendingEval{contentIn: contentIn, cancel: ev.Stop}
	l.mu.Unlock()

	done := make(chan Result, 1)
	go func() { done <- ev.Run() }()

	go func() {
		for {
			select {
			case rn, ok := <-requestOut:
				if !ok {
					continue
				}
				l.mu.Lock()
				l.requesterOf[rn.String()] = key
				l.mu.Unlock()
				l.ToLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Interest: &enc.Interest{NameV: rn}}}
			case res := <-done:
				l.mu.Lock()
				delete(l.pending, key)
				l.mu.Unlock()
				if res.Err != nil {
					l.nackException(name)
					return
				}
				l.ToLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Content: &enc.Content{NameV: name, ContentV: res.Content}}}
				return
			case <-l.close:
				ev.Stop()
				return
			}
		}
	}()
}

func (l *Layer) handleContent(c *enc.Content) {
	key := c.NameV.String()

	l.mu.Lock()
	if origs, ok := l.rewrite[key]; ok {
		delete(l.rewrite, key)
		l.mu.Unlock()
		for _, orig := range origs {
			l.ToLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Content: &enc.Content{NameV: orig, ContentV: c.ContentV}}}
		}
		return
	}

	origKey, ok := l.requesterOf[key]
	if !ok {
		l.mu.Unlock()
		core.Log.Debug(l, "dropping content requested by no evaluator", "name", key)
		return
	}
	delete(l.requesterOf, key)
	p, hasPending := l.pending[origKey]
	l.mu.Unlock()

	if !hasPending {
		return
	}
	select {
	case p.contentIn <- c:
	case <-l.close:
	}
}

func (l *Layer) handleNack(n *enc.Nack) {
	key := n.NameV.String()

	l.mu.Lock()
	if origs, ok := l.rewrite[key]; ok {
		delete(l.rewrite, key)
		l.mu.Unlock()
		for _, orig := range origs {
			l.ToLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Nack: &enc.Nack{
				Interest: &enc.Interest{NameV: orig},
				NameV:    orig,
				Reason:   enc.NackCompParamUnavailable,
			}}}
		}
		return
	}

	origKey, ok := l.requesterOf[key]
	if ok {
		delete(l.requesterOf, key)
	}
	p, hasPending := l.pending[origKey]
	l.mu.Unlock()

	if ok && hasPending {
		p.cancel()
	}
}

func (l *Layer) addRewrite(rewritten enc.Name, original enc.Name) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := rewritten.String()
	l.rewrite[key] = append(l.rewrite[key], original)
}

func (l *Layer) nackException(name enc.Name) {
	l.ToLower <- fw.Message{FaceId: fw.UpstreamFace, Packet: enc.Packet{Nack: &enc.Nack{
		Interest: &enc.Interest{NameV: name},
		NameV:    name,
		Reason:   enc.NackCompException,
	}}}
}
