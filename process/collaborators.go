package process

import "github.com/bftlab/tendermint/value"

// A Timer schedules the three kinds of timeout described in spec §4.3. A
// Process calls Arm* whenever it needs to be woken up if nothing else
// happens first; it never calls Disarm itself on individual keys — it calls
// DisarmAll whenever a round starts or a height commits, per spec §4.1.
type Timer interface {
	ArmPropose(h Height, r Round)
	ArmPrevote(h Height, r Round)
	ArmPrecommit(h Height, r Round)
	DisarmAll()
}

// A Broadcaster delivers a Process's outbound messages to every peer,
// including itself (spec §4.4, the Transport Facade). The Process only ever
// calls Broadcast; per-peer FIFO and self-enqueue are the Broadcaster's
// responsibility.
type Broadcaster interface {
	BroadcastPropose(Propose)
	BroadcastPrevote(Prevote)
	BroadcastPrecommit(Precommit)
}

// A Committer is notified when a Value is decided at a Height.
type Committer interface {
	Commit(Height, value.Value)
}
