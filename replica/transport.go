package replica

import (
	"context"

	co "github.com/republicprotocol/co-go"

	"github.com/bftlab/tendermint/process"
)

// Transport is the Transport Facade of spec §4.4: it delivers every
// broadcast Propose/Prevote/Precommit to every Replica in a group,
// including the sender itself, fanning delivery out across all peers
// concurrently (mirroring the teacher's use of a parallel-for helper to
// drive its replica set, e.g. hyperdrive.go's phi.ParForAll over a
// Shard-keyed replica map).
type Transport struct {
	ctx   context.Context
	peers []*Replica
}

// NewTransport returns a Transport that fans out to every Replica in peers.
// ctx bounds how long a full Replica's event queue is allowed to block
// delivery; once ctx is done, undelivered broadcasts are dropped.
func NewTransport(ctx context.Context, peers []*Replica) *Transport {
	return &Transport{ctx: ctx, peers: peers}
}

// BroadcastPropose implements process.Broadcaster.
func (t *Transport) BroadcastPropose(m process.Propose) {
	t.broadcast(m)
}

// BroadcastPrevote implements process.Broadcaster.
func (t *Transport) BroadcastPrevote(m process.Prevote) {
	t.broadcast(m)
}

// BroadcastPrecommit implements process.Broadcaster.
func (t *Transport) BroadcastPrecommit(m process.Precommit) {
	t.broadcast(m)
}

func (t *Transport) broadcast(e process.Event) {
	co.ParForAll(t.peers, func(i int) {
		t.peers[i].Enqueue(t.ctx, e)
	})
}
