// Package testutil provides randomised values and mock collaborators for
// testing package process, mirroring the shape of the teacher's
// process/processutil helpers (inferred from process_test.go's usage, since
// the helper package itself was not present in the retrieval pack).
package testutil

import (
	"math/rand"

	"github.com/bftlab/tendermint/process"
	"github.com/bftlab/tendermint/value"
)

// RandomHeight returns a pseudo-random, non-negative Height.
func RandomHeight(r *rand.Rand) process.Height {
	return process.Height(r.Int63n(1000))
}

// RandomRound returns a pseudo-random Round, occasionally InvalidRound.
func RandomRound(r *rand.Rand) process.Round {
	if r.Intn(10) == 0 {
		return process.InvalidRound
	}
	return process.Round(r.Int63n(100))
}

// RandomStep returns a pseudo-random Step.
func RandomStep(r *rand.Rand) process.Step {
	switch r.Intn(3) {
	case 0:
		return process.Proposing
	case 1:
		return process.Prevoting
	default:
		return process.Precommitting
	}
}

// RandomValue returns a pseudo-random, non-nil Value.
func RandomValue(r *rand.Rand) value.Value {
	buf := make([]byte, 32)
	r.Read(buf)
	return value.New(buf)
}

// RandomPid returns a pseudo-random Pid in [0, n).
func RandomPid(r *rand.Rand, n int) process.Pid {
	return process.Pid(r.Int63n(int64(n)))
}

// MockProposer always proposes the same Value.
type MockProposer struct {
	MockValue value.Value
}

// Propose implements value.Proposer.
func (m MockProposer) Propose() value.Value {
	return m.MockValue
}

// AcceptAll is a value.Validator that considers every Value valid, including
// value.Nil.
var AcceptAll = value.ValidatorFunc(func(value.Value) bool { return true })

// RejectAll is a value.Validator that considers every Value invalid.
var RejectAll = value.ValidatorFunc(func(value.Value) bool { return false })

// BroadcasterCallbacks adapts a set of optional callback functions into a
// process.Broadcaster, so a test can assert on only the messages it cares
// about. A nil callback silently drops the corresponding broadcast.
type BroadcasterCallbacks struct {
	BroadcastProposeCallback   func(process.Propose)
	BroadcastPrevoteCallback   func(process.Prevote)
	BroadcastPrecommitCallback func(process.Precommit)
}

// BroadcastPropose implements process.Broadcaster.
func (b BroadcasterCallbacks) BroadcastPropose(m process.Propose) {
	if b.BroadcastProposeCallback != nil {
		b.BroadcastProposeCallback(m)
	}
}

// BroadcastPrevote implements process.Broadcaster.
func (b BroadcasterCallbacks) BroadcastPrevote(m process.Prevote) {
	if b.BroadcastPrevoteCallback != nil {
		b.BroadcastPrevoteCallback(m)
	}
}

// BroadcastPrecommit implements process.Broadcaster.
func (b BroadcasterCallbacks) BroadcastPrecommit(m process.Precommit) {
	if b.BroadcastPrecommitCallback != nil {
		b.BroadcastPrecommitCallback(m)
	}
}

// MockTimer hands every call to its optional callback instead of actually
// scheduling anything, so tests can assert a timeout was requested without
// sleeping for it. A nil callback ignores the call.
type MockTimer struct {
	ArmProposeCallback   func(process.Height, process.Round)
	ArmPrevoteCallback   func(process.Height, process.Round)
	ArmPrecommitCallback func(process.Height, process.Round)
	DisarmAllCallback    func()
}

// ArmPropose implements process.Timer.
func (t MockTimer) ArmPropose(h process.Height, r process.Round) {
	if t.ArmProposeCallback != nil {
		t.ArmProposeCallback(h, r)
	}
}

// ArmPrevote implements process.Timer.
func (t MockTimer) ArmPrevote(h process.Height, r process.Round) {
	if t.ArmPrevoteCallback != nil {
		t.ArmPrevoteCallback(h, r)
	}
}

// ArmPrecommit implements process.Timer.
func (t MockTimer) ArmPrecommit(h process.Height, r process.Round) {
	if t.ArmPrecommitCallback != nil {
		t.ArmPrecommitCallback(h, r)
	}
}

// DisarmAll implements process.Timer.
func (t MockTimer) DisarmAll() {
	if t.DisarmAllCallback != nil {
		t.DisarmAllCallback()
	}
}

// MockCommitter records every committed Value, in order.
type MockCommitter struct {
	Commits []value.Value
}

// Commit implements process.Committer.
func (c *MockCommitter) Commit(h process.Height, v value.Value) {
	c.Commits = append(c.Commits, v)
}
