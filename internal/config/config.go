// Package config loads the static peer roster and neighbor topology that
// p2pflood reads at startup. Both files are plain comma/colon-separated
// text, kept out of the core engine per the spec's external-interfaces
// boundary.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Endpoint is a bare (ip, port) pair, used both for control-plane
// neighbor addresses and for provider records.
type Endpoint struct {
	IP   string
	Port int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// PeerIdentity is the immutable identity of one peer in the roster,
// created once at startup from config.txt + topologia.txt.
type PeerIdentity struct {
	ID             int
	IP             string
	ControlPort    int
	StreamPort     int
	AdvertisedRate int64
	Neighbors      []Endpoint
}

// Roster is the parsed, joined view of config.txt and topologia.txt.
type Roster struct {
	peers map[int]*PeerIdentity
}

// Peer returns the identity for id, or false if id is absent from the
// roster (config.txt, topologia.txt, or both).
func (r *Roster) Peer(id int) (*PeerIdentity, bool) {
	p, ok := r.peers[id]
	return p, ok
}

// IDs returns every peer ID known to the roster, unordered.
func (r *Roster) IDs() []int {
	ids := make([]int, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	return ids
}

// streamPortOffset keeps the stream transport's listening port out of
// the control plane's: every peer's stream port is its control port
// plus 1000, so one config.txt line fully determines both sockets.
const streamPortOffset = 1000

// Load reads <root>/config.txt and <root>/topologia.txt and returns the
// joined roster. Both files must be present; a peer ID present in one
// but not the other fails the load, since a peer the engine can't
// fully resolve can't safely start up.
func Load(root string) (*Roster, error) {
	peers, err := loadConfig(filepath.Join(root, "config.txt"))
	if err != nil {
		return nil, fmt.Errorf("load config.txt: %w", err)
	}

	neighbors, err := loadTopology(filepath.Join(root, "topologia.txt"))
	if err != nil {
		return nil, fmt.Errorf("load topologia.txt: %w", err)
	}

	for id := range peers {
		if _, ok := neighbors[id]; !ok {
			return nil, fmt.Errorf("config.txt lists peer %d absent from topologia.txt", id)
		}
	}

	for id, nbIDs := range neighbors {
		p, ok := peers[id]
		if !ok {
			return nil, fmt.Errorf("topologia.txt references peer %d absent from config.txt", id)
		}
		for _, nbID := range nbIDs {
			nb, ok := peers[nbID]
			if !ok {
				return nil, fmt.Errorf("peer %d lists unknown neighbor %d", id, nbID)
			}
			p.Neighbors = append(p.Neighbors, Endpoint{IP: nb.IP, Port: nb.ControlPort})
		}
	}

	return &Roster{peers: peers}, nil
}

// loadConfig parses lines of the form "<id>: <ip>, <control_port>, <advertised_rate>".
func loadConfig(path string) (map[int]*PeerIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	peers := make(map[int]*PeerIdentity)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		idPart, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("config.txt line %d: missing ':'", lineNo)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("config.txt line %d: bad peer id: %w", lineNo, err)
		}

		fields := strings.Split(rest, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("config.txt line %d: expected 3 fields, got %d", lineNo, len(fields))
		}
		ip := strings.TrimSpace(fields[0])
		controlPort, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("config.txt line %d: bad control port: %w", lineNo, err)
		}
		rate, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config.txt line %d: bad advertised rate: %w", lineNo, err)
		}

		peers[id] = &PeerIdentity{
			ID:             id,
			IP:             ip,
			ControlPort:    controlPort,
			StreamPort:     controlPort + streamPortOffset,
			AdvertisedRate: rate,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return peers, nil
}

// loadTopology parses lines of the form "<id>: <neighbor_id>[, <neighbor_id>]*".
func loadTopology(path string) (map[int][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	neighbors := make(map[int][]int)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		idPart, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("topologia.txt line %d: missing ':'", lineNo)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("topologia.txt line %d: bad peer id: %w", lineNo, err)
		}

		var ids []int
		for _, tok := range strings.Split(rest, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			nb, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("topologia.txt line %d: bad neighbor id %q: %w", lineNo, tok, err)
			}
			ids = append(ids, nb)
		}
		neighbors[id] = ids
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return neighbors, nil
}
