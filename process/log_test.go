package process_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/bftlab/tendermint/process"
	"github.com/bftlab/tendermint/process/testutil"
	"github.com/bftlab/tendermint/value"
)

func randSrc() *rand.Rand {
	return rand.New(rand.NewSource(GinkgoRandomSeed()))
}

var _ = Describe("VoteLog", func() {
	It("rejects messages for a different height", func() {
		log := process.NewVoteLog(5)
		Expect(log.AddPropose(process.Propose{H: 4, R: 0, From: 0}, 0)).To(BeFalse())
		Expect(log.AddPrevote(process.Prevote{H: 4, R: 0, From: 0})).To(BeFalse())
		Expect(log.AddPrecommit(process.Precommit{H: 4, R: 0, From: 0})).To(BeFalse())
	})

	It("only stores a Propose from the round's proposer", func() {
		log := process.NewVoteLog(0)
		Expect(log.AddPropose(process.Propose{H: 0, R: 0, From: 1}, 0)).To(BeFalse())
		Expect(log.AddPropose(process.Propose{H: 0, R: 0, From: 0}, 0)).To(BeTrue())
	})

	It("indexes proposals by value, overwriting a duplicate for the same value", func() {
		log := process.NewVoteLog(0)
		v := testutil.RandomValue(randSrc())
		first := process.Propose{H: 0, R: 0, Value: v, ValidRound: process.InvalidRound, From: 0}
		Expect(log.AddPropose(first, 0)).To(BeTrue())
		second := process.Propose{H: 0, R: 0, Value: v, ValidRound: 3, From: 0}
		Expect(log.AddPropose(second, 0)).To(BeTrue())

		got, ok := log.Propose(0)
		Expect(ok).To(BeTrue())
		Expect(got.ValidRound).To(Equal(process.Round(3)))

		byValue, ok := log.ProposalFor(v.ID())
		Expect(ok).To(BeTrue())
		Expect(byValue.ValidRound).To(Equal(process.Round(3)))
	})

	It("replaces the round's lookup when a new round proposes the same value", func() {
		log := process.NewVoteLog(0)
		v := testutil.RandomValue(randSrc())
		Expect(log.AddPropose(process.Propose{H: 0, R: 0, Value: v, From: 0}, 0)).To(BeTrue())
		Expect(log.AddPropose(process.Propose{H: 0, R: 1, Value: v, From: 1}, 1)).To(BeTrue())

		_, ok := log.Propose(0)
		Expect(ok).To(BeFalse())
		byValue, ok := log.ProposalFor(v.ID())
		Expect(ok).To(BeTrue())
		Expect(byValue.R).To(Equal(process.Round(1)))

		atRoundOne, ok := log.Propose(1)
		Expect(ok).To(BeTrue())
		Expect(atRoundOne.R).To(Equal(process.Round(1)))
	})

	It("enumerates every logged proposal via Proposals", func() {
		log := process.NewVoteLog(0)
		a := testutil.RandomValue(randSrc())
		b := testutil.RandomValue(randSrc())
		Expect(log.AddPropose(process.Propose{H: 0, R: 0, Value: a, From: 0}, 0)).To(BeTrue())
		Expect(log.AddPropose(process.Propose{H: 0, R: 1, Value: b, From: 1}, 1)).To(BeTrue())

		proposals := log.Proposals()
		Expect(proposals).To(HaveLen(2))
		ids := map[value.ID]bool{}
		for _, m := range proposals {
			ids[m.Value.ID()] = true
		}
		Expect(ids[a.ID()]).To(BeTrue())
		Expect(ids[b.ID()]).To(BeTrue())
	})

	It("deduplicates votes by (round, sender)", func() {
		log := process.NewVoteLog(0)
		Expect(log.AddPrevote(process.Prevote{H: 0, R: 0, IDV: value.NilID, From: 2})).To(BeTrue())
		Expect(log.AddPrevote(process.Prevote{H: 0, R: 0, IDV: value.NilID, From: 2})).To(BeFalse())
		Expect(log.NumPrevotes(0)).To(Equal(1))
	})

	It("tallies votes for a specific value separately from the total", func() {
		log := process.NewVoteLog(0)
		v := testutil.RandomValue(randSrc())
		log.AddPrecommit(process.Precommit{H: 0, R: 0, IDV: v.ID(), From: 0})
		log.AddPrecommit(process.Precommit{H: 0, R: 0, IDV: value.NilID, From: 1})
		Expect(log.NumPrecommits(0)).To(Equal(2))
		Expect(log.NumPrecommitsFor(0, v.ID())).To(Equal(1))
		Expect(log.NumPrecommitsFor(0, value.NilID)).To(Equal(1))
	})

	It("counts proposes, prevotes and precommits together for MsgCount", func() {
		log := process.NewVoteLog(0)
		log.AddPropose(process.Propose{H: 0, R: 1, From: 0}, 0)
		log.AddPrevote(process.Prevote{H: 0, R: 1, From: 1})
		log.AddPrecommit(process.Precommit{H: 0, R: 1, From: 2})
		Expect(log.MsgCount(1)).To(Equal(3))
	})
})
