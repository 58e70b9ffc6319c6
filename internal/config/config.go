package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid")

// Peer represents a peer node in the cluster.
type Peer struct {
	ID   string
	Addr string
}

// Config holds the node configuration.
type Config struct {
	NodeID     string
	ListenAddr string
	Peers      []Peer

	// DataPath is the SQLite database file. Empty keeps data in memory.
	DataPath string

	// R and W are the default read and write quorums. Zero means majority.
	R int
	W int

	// MaxOffset bounds how far ahead of local time a remote clock may be.
	// Zero disables the check.
	MaxOffset time.Duration

	// RequestTimeout bounds each replica RPC.
	RequestTimeout time.Duration

	// MetricsAddr serves Prometheus metrics when set.
	MetricsAddr string
}

// ParsePeers parses a comma-separated list of peers in the format:
// "id1=addr1,id2=addr2,id3=addr3"
func ParsePeers(peersStr string) ([]Peer, error) {
	if peersStr == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected id=addr)", part)
		}

		id := strings.TrimSpace(kv[0])
		addr := strings.TrimSpace(kv[1])

		if id == "" || addr == "" {
			return nil, fmt.Errorf("peer ID and address cannot be empty: %s", part)
		}

		peers = append(peers, Peer{
			ID:   id,
			Addr: addr,
		})
	}

	return peers, nil
}

// Replicas returns self followed by every distinct peer. Every key is
// replicated to all of them.
func (c *Config) Replicas() []Peer {
	nodes := make([]Peer, 0, len(c.Peers)+1)
	seen := make(map[string]bool, len(c.Peers)+1)

	nodes = append(nodes, Peer{ID: c.NodeID, Addr: c.ListenAddr})
	seen[c.NodeID] = true

	for _, peer := range c.Peers {
		// Skip self if it appears in peers list
		if seen[peer.ID] {
			continue
		}
		seen[peer.ID] = true
		nodes = append(nodes, peer)
	}

	return nodes
}

// Validate checks that the configuration describes a usable node.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("%w: node ID is required", ErrInvalidConfig)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}

	addrs := map[string]string{c.NodeID: c.ListenAddr}
	for _, peer := range c.Peers {
		if addr, ok := addrs[peer.ID]; ok && addr != peer.Addr {
			return fmt.Errorf("%w: peer %s has conflicting addresses %s and %s", ErrInvalidConfig, peer.ID, addr, peer.Addr)
		}
		addrs[peer.ID] = peer.Addr
	}

	n := len(c.Replicas())
	if c.R < 0 || c.R > n {
		return fmt.Errorf("%w: read quorum %d out of range for %d replicas", ErrInvalidConfig, c.R, n)
	}
	if c.W < 0 || c.W > n {
		return fmt.Errorf("%w: write quorum %d out of range for %d replicas", ErrInvalidConfig, c.W, n)
	}
	if c.MaxOffset < 0 {
		return fmt.Errorf("%w: max offset must not be negative", ErrInvalidConfig)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}
