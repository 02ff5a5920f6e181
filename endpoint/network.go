// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var errDuplicateChain = errors.New("endpoint already registered for chain")

// Network connects the endpoints of all simulated chains. An endpoint may
// send to its own chain.
type Network struct {
	mu        sync.RWMutex
	endpoints map[uint16]*Endpoint
}

func NewNetwork() *Network {
	return &Network{endpoints: make(map[uint16]*Endpoint)}
}

// Register makes e the destination of packets for its chain
func (n *Network) Register(e *Endpoint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.endpoints[e.ChainID()]; ok {
		return fmt.Errorf("%w: %d", errDuplicateChain, e.ChainID())
	}
	n.endpoints[e.ChainID()] = e
	return nil
}

// Endpoint returns the endpoint of chainID
func (n *Network) Endpoint(chainID uint16) (*Endpoint, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.endpoints[chainID]
	return e, ok
}

// Endpoints returns every registered endpoint ordered by chain id
func (n *Network) Endpoints() []*Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(n.endpoints))
	out := make([]*Endpoint, len(ids))
	for i, id := range ids {
		out[i] = n.endpoints[id]
	}
	return out
}

// Pending returns the number of packets waiting for delivery network-wide
func (n *Network) Pending() int {
	total := 0
	for _, e := range n.Endpoints() {
		total += e.Pending()
	}
	return total
}

// Flush delivers every pending packet, including packets sent by the
// receivers while flushing. It returns the number of packets delivered.
func (n *Network) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		delivered := 0
		for _, e := range n.Endpoints() {
			count, err := e.Flush(ctx)
			delivered += count
			if err != nil {
				return total + delivered, err
			}
		}
		total += delivered
		if delivered == 0 {
			return total, nil
		}
	}
}
