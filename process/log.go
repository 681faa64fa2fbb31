package process

import "github.com/bftlab/tendermint/value"

// VoteLog is the per-height message tally a Process consults to decide
// whether a trigger rule's quorum condition holds. It is rebuilt on every
// commit (spec §3, "Vote Log: ... the log is reset on each decision").
//
// Spec §9 lists three MUSTs for a correct implementation, all implemented
// here:
//
//	(a) reject messages whose Height doesn't match the log's Height;
//	(b) index votes by (round, sender) with set semantics, so a Byzantine
//	    replica voting twice in one round only ever counts once;
//	(c) store a Propose only when it comes from that round's proposer.
//
// Proposals themselves are indexed by value, not by round, per spec §4.2.
//
// Proposals from earlier rounds at this Height are retained (not cleared on
// round change), because R2 mines a proposal's ValidRound against earlier
// prevote rounds — spec §9, "Log lifetime across rounds".
type VoteLog struct {
	height Height

	// proposes is indexed by value, not by round, per spec §4.2's
	// add_proposal(m)/proposal(v) contract: "Proposals are indexed by value
	// so lookups by value are O(1)." A later Propose for the same value
	// overwrites the earlier one, matching spec §4.1's tie-break ("duplicate
	// proposals for the same value overwrite").
	proposes map[value.ID]Propose
	// roundPropose maps a round to the value last proposed in it, so R1/R2/
	// R4/R7 can still ask "what did the round's proposer propose" without
	// scanning every entry in proposes.
	roundPropose map[Round]value.ID

	prevotes   map[Round]map[Pid]Prevote
	precommits map[Round]map[Pid]Precommit
}

// NewVoteLog returns an empty VoteLog scoped to the given Height.
func NewVoteLog(height Height) *VoteLog {
	return &VoteLog{
		height:       height,
		proposes:     map[value.ID]Propose{},
		roundPropose: map[Round]value.ID{},
		prevotes:     map[Round]map[Pid]Prevote{},
		precommits:   map[Round]map[Pid]Precommit{},
	}
}

// Height returns the Height this log is scoped to.
func (l *VoteLog) Height() Height {
	return l.height
}

// AddPropose implements spec §4.2's add_proposal(m): stores m indexed by
// m.Value, overwriting any earlier Propose logged for that same value.
// Rejected (false) if m.H doesn't match the log's Height or m isn't from
// round m.R's proposer.
func (l *VoteLog) AddPropose(m Propose, proposer Pid) bool {
	if m.H != l.height {
		return false
	}
	if m.From != proposer {
		return false
	}
	id := m.Value.ID()
	l.proposes[id] = m
	l.roundPropose[m.R] = id
	return true
}

// Propose returns the Propose logged for round, if any — the per-round
// convenience lookup R1/R2/R4/R7 need, built on top of ProposalFor. If a
// later round's Propose for the same value has overwritten it, round has no
// Propose any more.
func (l *VoteLog) Propose(round Round) (Propose, bool) {
	id, ok := l.roundPropose[round]
	if !ok {
		return Propose{}, false
	}
	m, ok := l.ProposalFor(id)
	if !ok || m.R != round {
		return Propose{}, false
	}
	return m, true
}

// ProposalFor implements spec §4.2's proposal(v): return the PROPOSAL
// stored under v, or absent.
func (l *VoteLog) ProposalFor(id value.ID) (Propose, bool) {
	m, ok := l.proposes[id]
	return m, ok
}

// Proposals implements spec §4.2's proposals(): enumerate every PROPOSAL
// currently stored, in no particular order.
func (l *VoteLog) Proposals() []Propose {
	out := make([]Propose, 0, len(l.proposes))
	for _, m := range l.proposes {
		out = append(out, m)
	}
	return out
}

// AddPrevote stores m if it is the first Prevote seen from m.From in m.R,
// and m.H matches the log's Height. Returns whether it was inserted.
func (l *VoteLog) AddPrevote(m Prevote) bool {
	if m.H != l.height {
		return false
	}
	bucket, ok := l.prevotes[m.R]
	if !ok {
		bucket = map[Pid]Prevote{}
		l.prevotes[m.R] = bucket
	}
	if _, ok := bucket[m.From]; ok {
		return false
	}
	bucket[m.From] = m
	return true
}

// AddPrecommit stores m if it is the first Precommit seen from m.From in
// m.R, and m.H matches the log's Height. Returns whether it was inserted.
func (l *VoteLog) AddPrecommit(m Precommit) bool {
	if m.H != l.height {
		return false
	}
	bucket, ok := l.precommits[m.R]
	if !ok {
		bucket = map[Pid]Precommit{}
		l.precommits[m.R] = bucket
	}
	if _, ok := bucket[m.From]; ok {
		return false
	}
	bucket[m.From] = m
	return true
}

// NumPrevotes returns the total number of distinct-sender prevotes received
// in round, for any value.
func (l *VoteLog) NumPrevotes(round Round) int {
	return len(l.prevotes[round])
}

// NumPrevotesFor returns the number of distinct-sender prevotes received in
// round for id (which may be value.NilID).
func (l *VoteLog) NumPrevotesFor(round Round, id value.ID) int {
	n := 0
	for _, m := range l.prevotes[round] {
		if m.IDV == id {
			n++
		}
	}
	return n
}

// NumPrecommits returns the total number of distinct-sender precommits
// received in round, for any value.
func (l *VoteLog) NumPrecommits(round Round) int {
	return len(l.precommits[round])
}

// NumPrecommitsFor returns the number of distinct-sender precommits received
// in round for id (which may be value.NilID).
func (l *VoteLog) NumPrecommitsFor(round Round, id value.ID) int {
	n := 0
	for _, m := range l.precommits[round] {
		if m.IDV == id {
			n++
		}
	}
	return n
}

// MsgCount returns the number of distinct messages of any kind (propose +
// prevote + precommit) seen at round, used by the skip-ahead rule (R8/L55)
// to detect that f+1 correct replicas are already in a future round.
func (l *VoteLog) MsgCount(round Round) int {
	n := len(l.prevotes[round]) + len(l.precommits[round])
	if _, ok := l.roundPropose[round]; ok {
		n++
	}
	return n
}
