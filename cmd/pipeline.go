// Package cmd wires the layer pipeline together and exposes the cobra root
// command, mirroring the teacher's fw/cmd/cmd.go + fw/cmd/yanfd/main.go
// split between wiring and entry point.
package cmd

import (
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/usi-icn/nfnd/autoconf"
	"github.com/usi-icn/nfnd/core"
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/face"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/mgmt"
	"github.com/usi-icn/nfnd/nfn"
	"github.com/usi-icn/nfnd/repo"
	"github.com/usi-icn/nfnd/routing"
	"github.com/usi-icn/nfnd/types/optional"
)

// Pipeline owns the queues and layer tasks that make up one running node:
// face -> ICN -> NFN, with a routing/RIB side loop and a management
// server layered over the shared tables (§2, §5).
type Pipeline struct {
	cfg *core.Config

	Faces      *face.Table
	Forwarder  *fw.Forwarder
	NfnLayer   *nfn.Layer
	Rib        *routing.Root
	Repo       repo.Repository
	RepoServer *repo.Server
	Mgmt       *mgmt.Server

	ribAgeStop chan struct{}
	faceStop   chan struct{}
	solicitor  *autoconf.RepoSolicitor
	responder  *autoconf.ForwarderResponder
}

// NewPipeline constructs every layer and wires their channels together,
// without starting any goroutines (§5's "Stopping a layer cancels its main
// task" implies construction and starting are separate steps).
func NewPipeline(cfg *core.Config) *Pipeline {
	qc := cfg.Core.QueueCapacity
	if qc <= 0 {
		qc = 1024
	}

	// face <-> ICN
	faceToIcn := make(chan fw.Message, qc)
	icnToFace := make(chan fw.Message, qc)

	// ICN <-> NFN
	icnToNfn := make(chan fw.Message, qc)
	nfnToIcn := make(chan fw.Message, qc)

	// NFN <-> repository/app
	nfnToRepo := make(chan fw.Message, qc)
	repoToNfn := make(chan fw.Message, qc)

	faces := face.NewTable(faceToIcn, icnToFace)

	fwd := fw.NewForwarder(256, cfg.Core.PitLifetime, faceToIcn, nfnToIcn, icnToFace, icnToNfn)

	r := repo.NewMemRepo()
	nfnLayer := nfn.NewLayer(fwd.Cs, fwd.Fib, nfn.ExecutorRegistry{}, icnToNfn, repoToNfn, nfnToIcn, nfnToRepo)

	rib := routing.NewRoot()

	p := &Pipeline{
		cfg:        cfg,
		Faces:      faces,
		Forwarder:  fwd,
		NfnLayer:   nfnLayer,
		Rib:        rib,
		Repo:       r,
		ribAgeStop: make(chan struct{}),
		faceStop:   make(chan struct{}),
	}

	p.Mgmt = mgmt.NewServer(fwd.Fib, faces, r, nil)

	switch {
	case cfg.Autoconfig.Enabled:
		// repo.Server sits above the RepoSolicitor, which passes through
		// everything that isn't autoconfiguration handshake traffic.
		serverIn := make(chan fw.Message, qc)
		p.RepoServer = repo.NewServer(r, serverIn, repoToNfn)
		p.solicitor = autoconf.NewRepoSolicitor(autoconf.RepoConfig{
			ServiceName:          "nfnd",
			Addr:                 cfg.Autoconfig.Addr,
			Port:                 cfg.Autoconfig.Port,
			BroadcastAddr:        cfg.Autoconfig.BroadcastAddr,
			BroadcastPort:        cfg.Autoconfig.BroadcastPort,
			SolicitationTimeout:  cfg.Autoconfig.SolicitationEvery,
			SolicitationMaxRetry: cfg.Autoconfig.SolicitationTries,
		}, r, faces, repoToNfn, nfnToRepo, serverIn)
	case cfg.Autoconfig.Serve.Enabled:
		// A forwarder node: register the two well-known prefixes so
		// incoming solicitation/registration Interests route ToHigher
		// instead of being Nacked NoRoute, then wire the responder in
		// front of repo.Server the same way the solicitor is above.
		forwardersPrefix, _ := enc.NameFromStr(autoconf.ForwardersPrefix)
		servicePrefix, _ := enc.NameFromStr(autoconf.ServicePrefix)
		fwd.Fib.Add(forwardersPrefix, fw.UpstreamFace, true, optional.None[uint64]())
		fwd.Fib.Add(servicePrefix, fw.UpstreamFace, true, optional.None[uint64]())

		serverIn := make(chan fw.Message, qc)
		p.RepoServer = repo.NewServer(r, serverIn, repoToNfn)
		p.responder = autoconf.NewForwarderResponder(autoconf.ForwarderConfig{
			Host:     cfg.Autoconfig.Serve.Host,
			Port:     cfg.Autoconfig.Serve.Port,
			Prefixes: cfg.Autoconfig.Serve.Prefixes,
		}, fwd.Fib, faces, repoToNfn, nfnToRepo, serverIn)
	default:
		p.RepoServer = repo.NewServer(r, nfnToRepo, repoToNfn)
	}

	return p
}

func (p *Pipeline) String() string { return "pipeline" }

// Start launches every layer's main loop as its own goroutine.
func (p *Pipeline) Start() {
	go p.Faces.Run(p.faceStop)
	go p.Forwarder.Run()
	go p.NfnLayer.Run()
	go p.RepoServer.Run()
	go p.ageRib()
	p.dialStaticFaces()

	if p.Mgmt.Shutdown == nil {
		p.Mgmt.Shutdown = func() {
			p.Stop()
			os.Exit(0)
		}
	}
	if p.cfg.Core.MgmtAddr != "" {
		go p.Mgmt.ListenAndServe(p.cfg.Core.MgmtAddr)
	}
	if p.solicitor != nil {
		go p.solicitor.Run()
	}
	if p.responder != nil {
		go p.responder.Run()
	}
}

// Stop cancels every layer in reverse dependency order (§5's cancellation
// contract).
func (p *Pipeline) Stop() {
	close(p.ribAgeStop)
	close(p.faceStop)
	if p.solicitor != nil {
		p.solicitor.Stop()
	}
	if p.responder != nil {
		p.responder.Stop()
	}
	p.Mgmt.Close()
	p.RepoServer.Stop()
	p.NfnLayer.Stop()
	p.Forwarder.Stop()
}

// dialStaticFaces brings up every face listed in the config file's Faces
// block (§4.12), registering each with the shared face.Table the same way
// an autoconfiguration-discovered face is registered.
func (p *Pipeline) dialStaticFaces() {
	for _, fc := range p.cfg.Faces {
		switch fc.Kind {
		case "udp":
			f, err := face.NewUDPFace(fc.Addr)
			if err != nil {
				core.Log.Error(p, "failed to dial static udp face", "addr", fc.Addr, "err", err)
				continue
			}
			p.Faces.Add(f)
		case "ws":
			c, _, err := websocket.DefaultDialer.Dial(fc.Addr, nil)
			if err != nil {
				core.Log.Error(p, "failed to dial static ws face", "addr", fc.Addr, "err", err)
				continue
			}
			p.Faces.Add(face.NewWSFace(c))
		default:
			core.Log.Error(p, "unknown static face kind", "kind", fc.Kind, "addr", fc.Addr)
		}
	}
}

func (p *Pipeline) ageRib() {
	interval := p.cfg.Core.RibAgeInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ribAgeStop:
			return
		case now := <-ticker.C:
			p.Rib.Ageing(now)
			p.Rib.BuildFib(p.Forwarder.Fib)
		}
	}
}
