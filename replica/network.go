package replica

import (
	"context"

	"github.com/renproject/phi"

	"github.com/bftlab/tendermint/process"
	"github.com/bftlab/tendermint/value"
)

// Network is an in-memory group of Replicas wired together by a shared
// Transport, standing in for a real network connection. It plays the role
// the teacher's top-level hyperdrive.Hyperdrive plays for its Replica set,
// minus sharding (out of scope here): construct one, Start it, and the
// Replicas run consensus amongst themselves until the context is cancelled.
type Network struct {
	replicas []*Replica
}

// NewNetwork constructs a Network of len(proposers) Replicas, one per Pid in
// [0, len(proposers)), every one driven by the same validator and
// committers[i]. ctx bounds both message delivery and every Replica's Run
// loop.
func NewNetwork(ctx context.Context, opts Options, proposers []value.Proposer, validator value.Validator, committers []process.Committer) *Network {
	n := len(proposers)
	if len(committers) != n {
		panic("invariant violation: proposers and committers must have the same length")
	}

	replicas := make([]*Replica, n)
	transport := NewTransport(ctx, replicas)

	for i := 0; i < n; i++ {
		replicas[i] = New(opts, process.Pid(i), n, proposers[i], validator, transport, committers[i])
	}

	return &Network{replicas: replicas}
}

// Start runs every Replica in the Network concurrently until ctx is done.
func (net *Network) Start(ctx context.Context) {
	phi.ParForAll(net.replicas, func(i int) {
		net.replicas[i].Run(ctx)
	})
}

// Replica returns the Replica at Pid i.
func (net *Network) Replica(i process.Pid) *Replica {
	return net.replicas[i]
}
