// Package peer wires the Chunk Store, Discovery Table, Assignment
// Planner, UDP Control Plane, and Stream Transport together for a
// single peer identity and orchestrates the per-file search lifecycle.
package peer

import (
	"fmt"
	"sync"
	"time"

	"github.com/tkavi/p2pflood/internal/config"
	"github.com/tkavi/p2pflood/internal/control"
	"github.com/tkavi/p2pflood/internal/discovery"
	"github.com/tkavi/p2pflood/internal/logging"
	"github.com/tkavi/p2pflood/internal/metadata"
	"github.com/tkavi/p2pflood/internal/planner"
	"github.com/tkavi/p2pflood/internal/store"
	"github.com/tkavi/p2pflood/internal/stream"
)

// StartupDelay is how long Start waits after binding sockets for
// neighbor peers to become reachable.
var StartupDelay = 5 * time.Second

// ResponseWindow is how long a search collects RESPONSE datagrams before
// planning and issuing REQUESTs.
var ResponseWindow = 10 * time.Second

// Peer is the coordinator for one peer identity: it owns the Chunk
// Store, Discovery Table, and both network servers for the process
// lifetime.
type Peer struct {
	identity *config.PeerIdentity
	root     string

	store  *store.Store
	disc   *discovery.Table
	ctl    *control.Server
	stream *stream.Server
	pusher *stream.Pusher
}

// New binds both sockets for identity and returns a Peer ready to
// Start. root is the shared directory holding config.txt, topologia.txt,
// metadata sidecars, and every peer's chunk subdirectory.
func New(root string, identity *config.PeerIdentity) (*Peer, error) {
	st, err := store.New(root, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("init chunk store: %w", err)
	}
	if err := st.ScanLocal(); err != nil {
		return nil, fmt.Errorf("scan local chunks: %w", err)
	}

	disc := discovery.New()
	st.OnAssembled(func(file string) {
		disc.Clear(file)
	})

	pusher := stream.NewPusher(st, identity.AdvertisedRate)

	streamAddr := fmt.Sprintf("%s:%d", identity.IP, identity.StreamPort)
	streamServer, err := stream.NewServer(streamAddr, st)
	if err != nil {
		return nil, fmt.Errorf("init stream transport: %w", err)
	}

	self := config.Endpoint{IP: identity.IP, Port: identity.ControlPort}
	ctl, err := control.New(self, identity.AdvertisedRate, identity.Neighbors, st, disc, pusher)
	if err != nil {
		streamServer.Close()
		return nil, fmt.Errorf("init control plane: %w", err)
	}

	return &Peer{
		identity: identity,
		root:     root,
		store:    st,
		disc:     disc,
		ctl:      ctl,
		stream:   streamServer,
		pusher:   pusher,
	}, nil
}

// Start serves both sockets bound by New, waits for neighbors to become
// reachable, then searches for every named file concurrently. It
// returns once every file's search has finished emitting its
// DISCOVERY/REQUEST traffic; the servers continue running in the
// background for the life of the process.
func (p *Peer) Start(files []string) error {
	go p.ctl.Serve()
	go p.stream.Serve()

	logging.Sugar.Infof("[peer %d] listening control=%s:%d stream=%s:%d, waiting %s for neighbors",
		p.identity.ID, p.identity.IP, p.identity.ControlPort, p.identity.IP, p.identity.StreamPort, StartupDelay)
	time.Sleep(StartupDelay)

	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			p.search(file)
		}(file)
	}
	wg.Wait()

	return nil
}

// search runs one file's full lifecycle: load its metadata, check
// whether it is already complete locally, flood for providers,
// collect responses, plan an assignment, and request the chosen
// chunks.
func (p *Peer) search(file string) {
	md, err := metadata.Load(p.root, file)
	if err != nil || md.IsSentinel() {
		logging.Sugar.Warnf("[peer %d] abandoning search for %s: %v", p.identity.ID, file, err)
		return
	}

	p.store.SetTotal(file, md.TotalChunks)
	p.disc.Init(file, md.TotalChunks)
	p.disc.OpenWindow(file)

	if done, err := p.store.Assemble(file); err != nil {
		logging.Sugar.Errorf("[peer %d] assemble %s failed: %v", p.identity.ID, file, err)
		return
	} else if done {
		logging.Sugar.Infof("[peer %d] %s already complete locally", p.identity.ID, file)
		return
	}

	logging.Sugar.Infof("[peer %d] flooding DISCOVERY for %s (chunks=%d ttl=%d)", p.identity.ID, file, md.TotalChunks, md.InitialTTL)
	p.ctl.FloodDiscovery(file, md.TotalChunks, md.InitialTTL)

	time.Sleep(ResponseWindow)
	p.disc.CloseWindow(file)

	snapshot := p.disc.Snapshot(file)
	plan := planner.Plan(snapshot)
	if len(plan) == 0 {
		logging.Sugar.Warnf("[peer %d] no providers found for any chunk of %s", p.identity.ID, file)
		return
	}

	targets := make(map[string]control.RequestTarget, len(plan))
	for key, assignment := range plan {
		targets[key] = control.RequestTarget{
			IP:     assignment.Provider.IP,
			Port:   assignment.Provider.Port,
			Chunks: assignment.Chunks,
		}
	}
	p.ctl.SendRequests(file, p.identity.StreamPort, targets)
	logging.Sugar.Infof("[peer %d] requested chunks of %s from %d provider(s)", p.identity.ID, file, len(targets))
}

// Status returns a short human-readable summary for the interactive
// shell's "status" command.
func (p *Peer) Status() string {
	return fmt.Sprintf("peer %d listening control=%s:%d stream=%s:%d rate=%d B/s, %d neighbor(s)",
		p.identity.ID, p.identity.IP, p.identity.ControlPort, p.identity.IP, p.identity.StreamPort,
		p.identity.AdvertisedRate, len(p.identity.Neighbors))
}

// Chunks returns the sorted set of locally available chunk indices for
// file, for the interactive shell's "chunks" command.
func (p *Peer) Chunks(file string) []int {
	return p.store.Available(file)
}

// Neighbors returns this peer's static neighbor endpoints, for the
// interactive shell's "peers" command.
func (p *Peer) Neighbors() []config.Endpoint {
	return p.identity.Neighbors
}

// Search re-issues a search for file from the interactive shell,
// blocking until emission completes.
func (p *Peer) Search(file string) {
	p.search(file)
}
