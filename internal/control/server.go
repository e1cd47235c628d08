// Package control implements the UDP control plane: the DISCOVERY
// flood that locates chunk providers, RESPONSE collection from those
// providers, and REQUEST dispatch to the ones chosen to serve.
package control

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tkavi/p2pflood/internal/config"
	"github.com/tkavi/p2pflood/internal/discovery"
	"github.com/tkavi/p2pflood/internal/logging"
	"github.com/tkavi/p2pflood/internal/workerpool"
	"go.uber.org/multierr"
)

// dispatchWorkers/dispatchQueue bound the number of concurrently
// running message handlers.
const (
	dispatchWorkers = 32
	dispatchQueue   = 256
)

// maxDatagramSize bounds both send and receive to a single UDP packet.
const maxDatagramSize = 1024

// InterSendInterval paces successive neighbor sends during a flood so
// amplification does not saturate the network instantly.
var InterSendInterval = time.Second

// ChunkStore is the subset of internal/store.Store the control plane
// needs to answer DISCOVERY and filter RESPONSE chunk lists.
type ChunkStore interface {
	HasChunk(file string, i int) bool
	Available(file string) []int
}

// Pusher opens an outbound stream connection to push the requested
// chunks; satisfied by internal/stream.Pusher. Kept as an interface so
// control does not import the stream package directly.
type Pusher interface {
	Push(addr string, file string, chunks []int) error
}

// Server is the UDP control-plane endpoint for one peer.
type Server struct {
	self      config.Endpoint
	rate      int64
	neighbors []config.Endpoint

	conn  *net.UDPConn
	store ChunkStore
	disc  *discovery.Table
	push  Pusher
	pool  *workerpool.Pool
}

// New binds a UDP socket at self's address and returns a control-plane
// Server ready to Serve.
func New(self config.Endpoint, advertisedRate int64, neighbors []config.Endpoint, store ChunkStore, disc *discovery.Table, push Pusher) (*Server, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(self.IP), Port: self.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind control socket %s: %w", self, err)
	}
	return &Server{
		self:      self,
		rate:      advertisedRate,
		neighbors: neighbors,
		conn:      conn,
		store:     store,
		disc:      disc,
		push:      push,
		pool:      workerpool.New(dispatchWorkers, dispatchQueue),
	}, nil
}

// Close releases the UDP socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

// Serve reads datagrams until the socket is closed, dispatching each to
// its own task on the bounded worker pool. It runs until process exit.
func (s *Server) Serve() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			logging.Sugar.Errorf("[control] read error: %v", err)
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		s.pool.Go(func() { s.dispatch(from, payload) })
	}
}

func (s *Server) dispatch(from *net.UDPAddr, payload []byte) {
	fields := strings.Fields(string(payload))
	if len(fields) == 0 {
		return
	}

	switch msgKind(fields[0]) {
	case kindDiscovery:
		msg, err := parseDiscovery(fields[1:])
		if err != nil {
			logging.Sugar.Warnf("[control] malformed DISCOVERY from %s: %v", from, err)
			return
		}
		s.handleDiscovery(from, msg)
	case kindResponse:
		msg, err := parseResponse(fields[1:])
		if err != nil {
			logging.Sugar.Warnf("[control] malformed RESPONSE from %s: %v", from, err)
			return
		}
		s.handleResponse(from, msg)
	case kindRequest:
		msg, err := parseRequest(fields[1:])
		if err != nil {
			logging.Sugar.Warnf("[control] malformed REQUEST from %s: %v", from, err)
			return
		}
		s.handleRequest(from, msg)
	default:
		logging.Sugar.Warnf("[control] unknown message token %q from %s", fields[0], from)
	}
}

// handleDiscovery answers a flood query with a RESPONSE if the local
// store holds any chunk of the file, then re-floods to neighbors with a
// decremented TTL.
func (s *Server) handleDiscovery(from *net.UDPAddr, msg discoveryMsg) {
	if msg.OriginIP == s.self.IP && msg.OriginPort == s.self.Port {
		// Self-loop suppression: the flood returned to its origin.
		return
	}

	if have := s.store.Available(msg.File); len(have) > 0 {
		resp := responseMsg{File: msg.File, Rate: s.rate, ChunkID: have}
		origin := &net.UDPAddr{IP: net.ParseIP(msg.OriginIP), Port: msg.OriginPort}
		if err := s.send(origin, resp.encode()); err != nil {
			logging.Sugar.Errorf("[control] send RESPONSE to %s failed: %v", origin, err)
		}
	}

	if msg.TTL > 0 {
		s.flood(msg.File, msg.TotalChunks, msg.TTL-1, msg.OriginIP, msg.OriginPort)
	}
}

// handleResponse records the sender's claimed chunks if file's response
// window is still open; otherwise the message is dropped. A RESPONSE
// that arrives after the window closes is a lost opportunity, not an
// error: the search has already moved on to planning.
func (s *Server) handleResponse(from *net.UDPAddr, msg responseMsg) {
	if !s.disc.WindowOpen(msg.File) {
		logging.Sugar.Infof("[control] dropping RESPONSE for %s from %s: window closed", msg.File, from)
		return
	}

	var toRecord []int
	for _, c := range msg.ChunkID {
		if !s.store.HasChunk(msg.File, c) {
			toRecord = append(toRecord, c)
		}
	}
	if len(toRecord) == 0 {
		return
	}

	provider := discovery.ProviderRecord{IP: from.IP.String(), Port: from.Port, Rate: msg.Rate}
	if errs := s.disc.Record(msg.File, toRecord, provider); len(errs) > 0 {
		logging.Sugar.Warnf("[control] RESPONSE from %s for %s: %v", from, msg.File, multierr.Combine(errs...))
	}
}

// handleRequest delegates to the Stream Transport to push the requested
// chunks to the requester's (ip, stream_port).
func (s *Server) handleRequest(from *net.UDPAddr, msg requestMsg) {
	addr := fmt.Sprintf("%s:%d", from.IP.String(), msg.StreamPort)
	if err := s.push.Push(addr, msg.File, msg.ChunkID); err != nil {
		logging.Sugar.Errorf("[control] push to %s for %s failed: %v", addr, msg.File, err)
	}
}

// FloodDiscovery emits a DISCOVERY with ttl=initialTTL and origin=self
// to every neighbor, pacing sends by InterSendInterval.
func (s *Server) FloodDiscovery(file string, totalChunks, initialTTL int) {
	s.flood(file, totalChunks, initialTTL, s.self.IP, s.self.Port)
}

func (s *Server) flood(file string, totalChunks, ttl int, originIP string, originPort int) {
	msg := discoveryMsg{File: file, TotalChunks: totalChunks, TTL: ttl, OriginIP: originIP, OriginPort: originPort}
	encoded := msg.encode()

	var errs error
	for i, nb := range s.neighbors {
		addr := &net.UDPAddr{IP: net.ParseIP(nb.IP), Port: nb.Port}
		if err := s.send(addr, encoded); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("neighbor %s: %w", nb, err))
		}
		if i != len(s.neighbors)-1 {
			time.Sleep(InterSendInterval)
		}
	}
	if errs != nil {
		logging.Sugar.Warnf("[control] flood of %s had send failures: %v", file, errs)
	}
}

// SendRequests emits one REQUEST datagram per provider in plan, each
// listing all chunks assigned to that provider.
func (s *Server) SendRequests(file string, streamPort int, plan map[string]RequestTarget) {
	for _, target := range plan {
		msg := requestMsg{File: file, StreamPort: streamPort, ChunkID: target.Chunks}
		addr := &net.UDPAddr{IP: net.ParseIP(target.IP), Port: target.Port}
		if err := s.send(addr, msg.encode()); err != nil {
			logging.Sugar.Errorf("[control] send REQUEST to %s failed: %v", addr, err)
		}
	}
}

// RequestTarget is the minimal shape SendRequests needs; internal/peer
// builds this from the planner's Assignment to avoid a direct
// control->planner dependency.
type RequestTarget struct {
	IP     string
	Port   int
	Chunks []int
}

func (s *Server) send(addr *net.UDPAddr, payload string) error {
	if len(payload) > maxDatagramSize {
		return fmt.Errorf("payload of %d bytes exceeds %d byte datagram cap", len(payload), maxDatagramSize)
	}
	_, err := s.conn.WriteToUDP([]byte(payload), addr)
	return err
}
