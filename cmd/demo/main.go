// Command demo runs an in-memory network of replicas reaching consensus on
// a sequence of values, mirroring the illustrative n-node simulation in the
// original Python demo (demo.py): spawn n participants sharing one
// in-process transport and watch them agree, height after height.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bftlab/tendermint/process"
	"github.com/bftlab/tendermint/replica"
	"github.com/bftlab/tendermint/value"
)

func main() {
	n := flag.Int("n", 10, "number of replicas (must satisfy n > 3f)")
	heights := flag.Int("heights", 5, "number of heights to run before exiting")
	flag.Parse()

	logger := logrus.StandardLogger()
	logger.SetLevel(logrus.InfoLevel)

	proposers := make([]value.Proposer, *n)
	committers := make([]process.Committer, *n)
	printers := make([]*heightPrinter, *n)
	for i := 0; i < *n; i++ {
		proposers[i] = randomProposer{id: i}
		printer := &heightPrinter{id: i, done: make(chan struct{}, 1), target: *heights}
		printers[i] = printer
		committers[i] = printer
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := replica.Options{
		Logger:    logger,
		TimerBase: 300 * time.Millisecond,
		TimerStep: 50 * time.Millisecond,
	}
	net := replica.NewNetwork(ctx, opts, proposers, value.ValidatorFunc(func(value.Value) bool { return true }), committers)

	go net.Start(ctx)

	for _, printer := range printers {
		<-printer.done
	}
	cancel()
}

// randomProposer mints a fresh, random Value whenever the Process needs one,
// standing in for the original demo's getValue() (tendermint/utils.py).
type randomProposer struct {
	id int
}

func (p randomProposer) Propose() value.Value {
	buf := make([]byte, 8)
	rand.Read(buf)
	return value.New(buf)
}

// heightPrinter logs every decision and signals done once target heights
// have been committed, so the demo has a natural stopping point instead of
// running forever like the Python demo's unbounded thread loop.
type heightPrinter struct {
	id     int
	target int
	count  int
	done   chan struct{}
}

func (p *heightPrinter) Commit(h process.Height, v value.Value) {
	fmt.Printf("replica %d decided height=%d value=%v\n", p.id, h, v)
	p.count++
	if p.count >= p.target {
		select {
		case p.done <- struct{}{}:
		default:
		}
	}
}
