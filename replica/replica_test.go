package replica_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/bftlab/tendermint/process"
	"github.com/bftlab/tendermint/replica"
	"github.com/bftlab/tendermint/value"
)

type fixedProposer struct {
	v value.Value
}

func (p fixedProposer) Propose() value.Value { return p.v }

type recordingCommitter struct {
	commits chan value.Value
}

func newRecordingCommitter() *recordingCommitter {
	return &recordingCommitter{commits: make(chan value.Value, 16)}
}

func (c *recordingCommitter) Commit(h process.Height, v value.Value) {
	c.commits <- v
}

var _ = Describe("Replica", func() {
	It("drives a small network of replicas to agree on the same first value", func() {
		const n = 4 // f = 1, 3f+1 = 4

		val := value.New([]byte("the only value anyone will ever propose"))
		proposers := make([]value.Proposer, n)
		committers := make([]process.Committer, n)
		recorders := make([]*recordingCommitter, n)
		for i := 0; i < n; i++ {
			proposers[i] = fixedProposer{v: val}
			rec := newRecordingCommitter()
			recorders[i] = rec
			committers[i] = rec
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		opts := replica.Options{
			TimerBase: 50 * time.Millisecond,
			TimerStep: 10 * time.Millisecond,
		}
		net := replica.NewNetwork(ctx, opts, proposers, value.ValidatorFunc(func(value.Value) bool { return true }), committers)

		done := make(chan struct{})
		go func() {
			net.Start(ctx)
			close(done)
		}()

		for i := 0; i < n; i++ {
			Eventually(recorders[i].commits, time.Second).Should(Receive(Equal(val)))
		}

		cancel()
		Eventually(done, time.Second).Should(BeClosed())
	})
})
