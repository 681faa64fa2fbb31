// Package process implements the per-replica Tendermint consensus state
// machine described by "The latest gossip of BFT consensus" (Buchman et
// al., https://arxiv.org/pdf/1807.04938.pdf), restricted and adapted to the
// scope of this repository's core: a fixed validator set, unit voting power,
// and no message authentication (see the module's SPEC_FULL.md for the full
// list of non-goals).
package process

import (
	"fmt"

	"github.com/bftlab/tendermint/value"
	"github.com/sirupsen/logrus"
)

// OnceFlag guarantees that a trigger rule fires at most once per Round, for
// the three rules spec §3 calls out as one-shot (firstPrevote,
// firstPrecommit, locked).
type OnceFlag uint8

// The three one-shot conditions, as a bitmask so a single map entry can
// track all three, mirroring the teacher's process.OnceFlag.
const (
	onceFlagLocked                = OnceFlag(1)
	onceFlagTimeoutPrevoteArmed   = OnceFlag(2)
	onceFlagTimeoutPrecommitArmed = OnceFlag(4)
)

// Process is the consensus state machine for a single replica. It is not
// safe for concurrent use: spec §5 requires all state mutation and rule
// evaluation to happen on one single-threaded actor (see package replica for
// the event-queue wrapper that provides that).
type Process struct {
	logger logrus.FieldLogger
	cfg    Config
	whoami Pid

	scheduler   Scheduler
	proposer    value.Proposer
	validator   value.Validator
	timer       Timer
	broadcaster Broadcaster
	committer   Committer

	CurrentHeight Height
	CurrentRound  Round
	CurrentStep   Step

	LockedValue value.Value
	LockedRound Round
	ValidValue  value.Value
	ValidRound  Round

	Decisions []value.Value

	log       *VoteLog
	onceFlags map[Round]OnceFlag
}

// New returns a Process at Height 0, Round 0, Step Proposing, with no locked
// or valid value, ready to have Start called on it.
func New(
	logger logrus.FieldLogger,
	whoami Pid,
	cfg Config,
	scheduler Scheduler,
	proposer value.Proposer,
	validator value.Validator,
	timer Timer,
	broadcaster Broadcaster,
	committer Committer,
) *Process {
	cfg.Validate()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Process{
		logger: logger,
		cfg:    cfg,
		whoami: whoami,

		scheduler:   scheduler,
		proposer:    proposer,
		validator:   validator,
		timer:       timer,
		broadcaster: broadcaster,
		committer:   committer,

		CurrentHeight: 0,
		CurrentRound:  0,
		CurrentStep:   Proposing,

		LockedValue: value.Nil,
		LockedRound: InvalidRound,
		ValidValue:  value.Nil,
		ValidRound:  InvalidRound,

		Decisions: nil,

		log:       NewVoteLog(0),
		onceFlags: map[Round]OnceFlag{},
	}
}

// Start begins the Process at round 0 of its current height. Spec §4.1,
// "upon start do StartRound(0)".
func (p *Process) Start() {
	p.StartRound(0)
}

// StartRound implements spec §4.1's startRound(r):
//  1. disarm all timers
//  2. round <- r, step <- propose
//  3. if we are the proposer, broadcast a Propose (validValue if set, else a
//     fresh value from the external producer)
//  4. else arm the propose timeout
func (p *Process) StartRound(round Round) {
	p.timer.DisarmAll()

	p.CurrentRound = round
	p.CurrentStep = Proposing

	proposer := p.scheduler.Schedule(p.CurrentHeight, p.CurrentRound)
	if proposer != p.whoami {
		p.timer.ArmPropose(p.CurrentHeight, p.CurrentRound)
		return
	}

	v := p.ValidValue
	if v.IsNil() {
		v = p.proposer.Propose()
	}
	propose := Propose{
		H:          p.CurrentHeight,
		R:          p.CurrentRound,
		Value:      v,
		ValidRound: p.ValidRound,
		From:       p.whoami,
	}
	p.logger.Infof("replica %d proposing %v at height %d round %d", p.whoami, v, p.CurrentHeight, p.CurrentRound)
	p.broadcaster.BroadcastPropose(propose)

	// No rule is re-evaluated here: our own Propose reaches the log only when
	// the Broadcaster delivers it back through Process.Propose, like any
	// other replica's message.
}

// Propose notifies the Process that m has been received, including when m
// is this Process's own broadcast Propose delivered back to itself (spec
// §4.1, "A replica that is itself the proposer delivers its own PROPOSAL to
// its own queue").
func (p *Process) Propose(m Propose) {
	if m.H != p.CurrentHeight {
		p.logger.Debugf("replica %d dropping propose for height %d, at height %d", p.whoami, m.H, p.CurrentHeight)
		return
	}
	proposer := p.scheduler.Schedule(m.H, m.R)
	inserted := p.log.AddPropose(m, proposer)
	if !inserted {
		return
	}

	p.trySkipToFutureRound(m.R)
	p.tryCommitUponSufficientPrecommits(m.R)
	p.tryPrecommitUponSufficientPrevotes()
	p.tryPrevoteUponPropose()
	p.tryPrevoteUponSufficientPrevotes()
}

// Prevote notifies the Process that m has been received.
func (p *Process) Prevote(m Prevote) {
	if m.H != p.CurrentHeight {
		p.logger.Debugf("replica %d dropping prevote for height %d, at height %d", p.whoami, m.H, p.CurrentHeight)
		return
	}
	if !p.log.AddPrevote(m) {
		return
	}

	p.trySkipToFutureRound(m.R)
	p.tryTimeoutPrevoteUponSufficientPrevotes()
	p.tryPrecommitUponSufficientPrevotes()
	p.tryPrecommitNilUponSufficientPrevotes()
	p.tryPrevoteUponSufficientPrevotes()
}

// Precommit notifies the Process that m has been received.
func (p *Process) Precommit(m Precommit) {
	if m.H != p.CurrentHeight {
		p.logger.Debugf("replica %d dropping precommit for height %d, at height %d", p.whoami, m.H, p.CurrentHeight)
		return
	}
	if !p.log.AddPrecommit(m) {
		return
	}

	p.trySkipToFutureRound(m.R)
	p.tryTimeoutPrecommitUponSufficientPrecommits()
	p.tryCommitUponSufficientPrecommits(m.R)
}

// OnTimeoutPropose implements spec §4.1's onTimeoutPropose(h', r'): if still
// at (h', r') and still proposing, vote nil and move to prevoting.
func (p *Process) OnTimeoutPropose(h Height, r Round) {
	if h == p.CurrentHeight && r == p.CurrentRound && p.CurrentStep == Proposing {
		p.broadcastNilPrevote()
	}
}

// OnTimeoutPrevote implements spec §4.1's onTimeoutPrevote(h', r'): if still
// at (h', r') and still prevoting, vote nil and move to precommitting.
func (p *Process) OnTimeoutPrevote(h Height, r Round) {
	if h == p.CurrentHeight && r == p.CurrentRound && p.CurrentStep == Prevoting {
		p.broadcastNilPrecommit()
	}
}

// OnTimeoutPrecommit implements spec §4.1's onTimeoutPrecommit(h', r'): if
// still at (h', r'), regardless of step, move to the next round.
func (p *Process) OnTimeoutPrecommit(h Height, r Round) {
	if h == p.CurrentHeight && r == p.CurrentRound {
		p.StartRound(r + 1)
	}
}

// R1 (spec §4.1): a fresh Propose (ValidRound == InvalidRound) from the
// round's proposer, while still proposing.
func (p *Process) tryPrevoteUponPropose() {
	if p.CurrentStep != Proposing {
		return
	}
	m, ok := p.log.Propose(p.CurrentRound)
	if !ok || m.ValidRound != InvalidRound {
		return
	}

	if p.validator.Valid(m.Value) && (p.LockedRound == InvalidRound || p.LockedValue.Equal(m.Value)) {
		p.broadcaster.BroadcastPrevote(Prevote{H: p.CurrentHeight, R: p.CurrentRound, IDV: m.Value.ID(), From: p.whoami})
	} else {
		p.broadcaster.BroadcastPrevote(Prevote{H: p.CurrentHeight, R: p.CurrentRound, IDV: value.NilID, From: p.whoami})
	}
	p.stepToPrevoting()
}

// R2 (spec §4.1): a Propose carrying a prior valid round vr, with 2f+1
// prevotes for that value already logged in round vr, while still proposing.
func (p *Process) tryPrevoteUponSufficientPrevotes() {
	if p.CurrentStep != Proposing {
		return
	}
	m, ok := p.log.Propose(p.CurrentRound)
	if !ok || m.ValidRound == InvalidRound || m.ValidRound >= p.CurrentRound {
		return
	}
	if p.log.NumPrevotesFor(m.ValidRound, m.Value.ID()) < p.cfg.Quorum() {
		return
	}

	if p.validator.Valid(m.Value) && (p.LockedRound <= m.ValidRound || p.LockedValue.Equal(m.Value)) {
		p.broadcaster.BroadcastPrevote(Prevote{H: p.CurrentHeight, R: p.CurrentRound, IDV: m.Value.ID(), From: p.whoami})
	} else {
		p.broadcaster.BroadcastPrevote(Prevote{H: p.CurrentHeight, R: p.CurrentRound, IDV: value.NilID, From: p.whoami})
	}
	p.stepToPrevoting()
}

// R3 (spec §4.1): the first time 2f+1 prevotes (any mixture of values) are
// seen while prevoting, arm the prevote timeout. One-shot per round.
func (p *Process) tryTimeoutPrevoteUponSufficientPrevotes() {
	if p.checkOnceFlag(p.CurrentRound, onceFlagTimeoutPrevoteArmed) {
		return
	}
	if p.CurrentStep != Prevoting {
		return
	}
	if p.log.NumPrevotes(p.CurrentRound) < p.cfg.Quorum() {
		return
	}
	p.timer.ArmPrevote(p.CurrentHeight, p.CurrentRound)
	p.setOnceFlag(p.CurrentRound, onceFlagTimeoutPrevoteArmed)
}

// R4 (spec §4.1, "Lock"): a valid Propose from the round's proposer with
// 2f+1 matching prevotes, while prevoting or precommitting, taking effect at
// most once per round. If still prevoting, locks the value and precommits it;
// regardless, records it as the new validValue/validRound.
func (p *Process) tryPrecommitUponSufficientPrevotes() {
	if p.checkOnceFlag(p.CurrentRound, onceFlagLocked) {
		return
	}
	if p.CurrentStep != Prevoting && p.CurrentStep != Precommitting {
		return
	}
	m, ok := p.log.Propose(p.CurrentRound)
	if !ok {
		return
	}
	if !p.validator.Valid(m.Value) {
		return
	}
	if p.log.NumPrevotesFor(p.CurrentRound, m.Value.ID()) < p.cfg.Quorum() {
		return
	}

	if p.CurrentStep == Prevoting {
		p.LockedValue = m.Value
		p.LockedRound = p.CurrentRound
		p.broadcaster.BroadcastPrecommit(Precommit{H: p.CurrentHeight, R: p.CurrentRound, IDV: m.Value.ID(), From: p.whoami})
		p.stepToPrecommitting()
	}
	p.ValidValue = m.Value
	p.ValidRound = p.CurrentRound
	p.setOnceFlag(p.CurrentRound, onceFlagLocked)
}

// R5 (spec §4.1): 2f+1 prevotes for nil while prevoting moves straight to a
// nil precommit; the round has failed to agree on a value.
func (p *Process) tryPrecommitNilUponSufficientPrevotes() {
	if p.CurrentStep != Prevoting {
		return
	}
	if p.log.NumPrevotesFor(p.CurrentRound, value.NilID) < p.cfg.Quorum() {
		return
	}
	p.broadcastNilPrecommit()
}

// R6 (spec §4.1): the first time 2f+1 precommits (any mixture) are seen in
// this round, arm the precommit timeout. One-shot per round.
func (p *Process) tryTimeoutPrecommitUponSufficientPrecommits() {
	if p.checkOnceFlag(p.CurrentRound, onceFlagTimeoutPrecommitArmed) {
		return
	}
	if p.log.NumPrecommits(p.CurrentRound) < p.cfg.Quorum() {
		return
	}
	p.timer.ArmPrecommit(p.CurrentHeight, p.CurrentRound)
	p.setOnceFlag(p.CurrentRound, onceFlagTimeoutPrecommitArmed)
}

// R7 (spec §4.1, "Commit"): round's Propose matches LockedValue and has
// 2f+1 matching precommits, and this height has not already been decided.
// The LockedValue match is spec-literal, not incidental: §4.1 requires "a
// PROPOSAL m with m.value = lockedValue", and the original source looks the
// proposal up keyed on the replica's own lockedValue_p
// (tendermint/app.py's commit caller), not merely on round. Because a
// height can only ever be decided once (the rule increments CurrentHeight
// as part of committing), this rule is naturally idempotent without an
// explicit decided-heights lookup.
func (p *Process) tryCommitUponSufficientPrecommits(round Round) {
	m, ok := p.log.Propose(round)
	if !ok {
		return
	}
	if !m.Value.Equal(p.LockedValue) {
		return
	}
	if p.log.NumPrecommitsFor(round, m.Value.ID()) < p.cfg.Quorum() {
		return
	}
	p.commit(m.Value)
}

// Catch-up rule (spec §9, decision D.3): f+1 messages of any kind seen in a
// round greater than CurrentRound means at least one correct replica is
// already there, so we should be too. Grounded on the teacher's
// trySkipToFutureRound / the source's acknowledged-but-unimplemented L55.
func (p *Process) trySkipToFutureRound(round Round) {
	if round <= p.CurrentRound {
		return
	}
	if p.log.MsgCount(round) < p.cfg.FPlus1() {
		return
	}
	p.StartRound(round)
}

// commit implements spec §4.1's commit(v): append v, assert the height
// bookkeeping invariant, then reset all per-height state and start height+1
// at round 0.
func (p *Process) commit(v value.Value) {
	p.timer.DisarmAll()

	p.Decisions = append(p.Decisions, v)
	if Height(len(p.Decisions)-1) != p.CurrentHeight {
		panic(fmt.Errorf("invariant violation: len(decisions)-1=%d != currentHeight=%d", len(p.Decisions)-1, p.CurrentHeight))
	}
	p.logger.Infof("replica %d committing %v at height %d", p.whoami, v, p.CurrentHeight)

	if p.committer != nil {
		p.committer.Commit(p.CurrentHeight, v)
	}

	p.CurrentHeight++
	p.CurrentRound = 0
	p.LockedValue = value.Nil
	p.LockedRound = InvalidRound
	p.ValidValue = value.Nil
	p.ValidRound = InvalidRound
	p.log = NewVoteLog(p.CurrentHeight)
	p.onceFlags = map[Round]OnceFlag{}

	p.StartRound(0)
}

func (p *Process) broadcastNilPrevote() {
	p.broadcaster.BroadcastPrevote(Prevote{H: p.CurrentHeight, R: p.CurrentRound, IDV: value.NilID, From: p.whoami})
	p.stepToPrevoting()
}

func (p *Process) broadcastNilPrecommit() {
	p.broadcaster.BroadcastPrecommit(Precommit{H: p.CurrentHeight, R: p.CurrentRound, IDV: value.NilID, From: p.whoami})
	p.stepToPrecommitting()
}

// stepToPrevoting moves to the Prevoting step and immediately retries the
// rules that Step change could newly satisfy, matching the teacher's
// stepToPrevoting.
func (p *Process) stepToPrevoting() {
	p.CurrentStep = Prevoting
	p.tryPrecommitUponSufficientPrevotes()
	p.tryPrecommitNilUponSufficientPrevotes()
	p.tryTimeoutPrevoteUponSufficientPrevotes()
}

// stepToPrecommitting moves to the Precommitting step and immediately
// retries the rule that Step change could newly satisfy.
func (p *Process) stepToPrecommitting() {
	p.CurrentStep = Precommitting
	p.tryPrecommitUponSufficientPrevotes()
}

func (p *Process) checkOnceFlag(round Round, flag OnceFlag) bool {
	return p.onceFlags[round]&flag == flag
}

func (p *Process) setOnceFlag(round Round, flag OnceFlag) {
	p.onceFlags[round] |= flag
}
