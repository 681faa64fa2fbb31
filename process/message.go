package process

import (
	"fmt"

	"github.com/bftlab/tendermint/value"
)

// An Event is anything that can be delivered to a Process: one of the three
// message kinds, or one of the three timeout kinds. This is the tagged
// variant the source's class-checking `isinstance` dispatch becomes in Go —
// spec §9's re-architecture point "Polymorphic events".
type Event interface {
	// Height is the Event's target Height.
	Height() Height
	isEvent()
}

// Propose is sent by the proposer of (Height, Round) to suggest a decision
// Value. ValidRound is InvalidRound ("fresh") unless Value previously
// reached a prevote quorum in an earlier round, in which case it names that
// round.
type Propose struct {
	H          Height
	R          Round
	Value      value.Value
	ValidRound Round
	From       Pid
}

// Height implements Event.
func (p Propose) Height() Height { return p.H }
func (Propose) isEvent()         {}

// String implements fmt.Stringer.
func (p Propose) String() string {
	return fmt.Sprintf("<PROPOSAL h=%d r=%d v=%v vr=%d from=%d>", p.H, p.R, p.Value, p.ValidRound, p.From)
}

// Prevote is a vote for id(v), or value.NilID for ⊥.
type Prevote struct {
	H    Height
	R    Round
	IDV  value.ID
	From Pid
}

// Height implements Event.
func (p Prevote) Height() Height { return p.H }
func (Prevote) isEvent()         {}

// String implements fmt.Stringer.
func (p Prevote) String() string {
	return fmt.Sprintf("<PREVOTE h=%d r=%d idv=%v from=%d>", p.H, p.R, p.IDV, p.From)
}

// Precommit is a vote for the locked value's id(v), or value.NilID for ⊥.
type Precommit struct {
	H    Height
	R    Round
	IDV  value.ID
	From Pid
}

// Height implements Event.
func (p Precommit) Height() Height { return p.H }
func (Precommit) isEvent()         {}

// String implements fmt.Stringer.
func (p Precommit) String() string {
	return fmt.Sprintf("<PRECOMMIT h=%d r=%d idv=%v from=%d>", p.H, p.R, p.IDV, p.From)
}

// ProposeTimeout fires when a replica has waited too long for a proposer's
// value in (H, R).
type ProposeTimeout struct {
	H Height
	R Round
}

// Height implements Event.
func (t ProposeTimeout) Height() Height { return t.H }
func (ProposeTimeout) isEvent()         {}

// PrevoteTimeout fires when a replica has waited too long to resolve
// prevoting in (H, R).
type PrevoteTimeout struct {
	H Height
	R Round
}

// Height implements Event.
func (t PrevoteTimeout) Height() Height { return t.H }
func (PrevoteTimeout) isEvent()         {}

// PrecommitTimeout fires when a replica has waited too long to resolve
// precommitting in (H, R), after which it advances to the next round.
type PrecommitTimeout struct {
	H Height
	R Round
}

// Height implements Event.
func (t PrecommitTimeout) Height() Height { return t.H }
func (PrecommitTimeout) isEvent()         {}
