// Package replica wires a process.Process into a runnable actor: the single
// inbound event queue and Transport Facade described in spec §4.4/§5, built
// by adapting the teacher's replica.Replica message-handling loop (the
// per-type channel design in the pre-module hyperdrive snapshot) onto a
// single tagged process.Event channel.
package replica

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bftlab/tendermint/process"
	"github.com/bftlab/tendermint/timer"
	"github.com/bftlab/tendermint/value"
)

// A Replica runs one process.Process as a single-threaded actor: every
// Event, whether a received message or a fired timeout, passes through one
// channel and is handled strictly in arrival order, per spec §5's
// single-consumer requirement.
type Replica struct {
	opts   Options
	whoami process.Pid

	proc  *process.Process
	timer *timer.LinearTimer

	events chan process.Event
}

// New constructs a Replica for whoami among signatoryCount total replicas,
// wiring a fresh process.Process and timer.LinearTimer together. broadcaster
// and committer are supplied by the caller (typically a Network, for an
// in-memory demo, or a real network transport).
func New(
	opts Options,
	whoami process.Pid,
	signatoryCount int,
	proposer value.Proposer,
	validator value.Validator,
	broadcaster process.Broadcaster,
	committer process.Committer,
) *Replica {
	opts.setZerosToDefaults()

	f := (signatoryCount - 1) / 3
	cfg := process.Config{N: signatoryCount, F: f}
	cfg.Validate()

	events := make(chan process.Event, opts.EventQueueCapacity)

	t := timer.NewLinearTimer(
		timer.DefaultOptions().WithBase(opts.TimerBase).WithStep(opts.TimerStep),
		func(e process.Event) {
			select {
			case events <- e:
			default:
				opts.Logger.Warnf("replica %d: event queue full, dropping timeout %v", whoami, e)
			}
		},
	)

	scheduler := process.NewRoundRobin(signatoryCount)
	proc := process.New(
		loggerForReplica(opts.Logger, whoami),
		whoami,
		cfg,
		scheduler,
		proposer,
		validator,
		t,
		broadcaster,
		committer,
	)

	return &Replica{
		opts:   opts,
		whoami: whoami,
		proc:   proc,
		timer:  t,
		events: events,
	}
}

func loggerForReplica(logger logrus.FieldLogger, whoami process.Pid) logrus.FieldLogger {
	return logger.WithField("replica", whoami)
}

// Enqueue delivers e onto the Replica's event queue, blocking until there is
// room or ctx is done. Used both by a Transport delivering a remote message
// and by the Replica's own self-delivery of its broadcasts.
func (r *Replica) Enqueue(ctx context.Context, e process.Event) {
	select {
	case <-ctx.Done():
	case r.events <- e:
	}
}

// CurrentHeight reports the Height the underlying Process is at.
func (r *Replica) CurrentHeight() process.Height {
	return r.proc.CurrentHeight
}

// Decisions returns every Value the underlying Process has committed so
// far, in order.
func (r *Replica) Decisions() []value.Value {
	return r.proc.Decisions
}

// Run starts the Process and then services events until ctx is done.
func (r *Replica) Run(ctx context.Context) {
	if r.opts.StartDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.opts.StartDelay):
		}
	}

	r.proc.Start()

	for {
		select {
		case <-ctx.Done():
			r.timer.DisarmAll()
			return

		case e := <-r.events:
			r.handle(e)
		}
	}
}

// handle dispatches one Event onto the underlying Process. An unrecognised
// Event is a recoverable anomaly per spec §7 ("Unknown event: logged and
// discarded; no state change"), not a fatal condition — Event is sealed via
// an unexported method so this can only happen by a future Event variant
// being added here without a matching case, not by outside misuse.
func (r *Replica) handle(e process.Event) {
	switch m := e.(type) {
	case process.Propose:
		r.proc.Propose(m)
	case process.Prevote:
		r.proc.Prevote(m)
	case process.Precommit:
		r.proc.Precommit(m)
	case process.ProposeTimeout:
		r.proc.OnTimeoutPropose(m.H, m.R)
	case process.PrevoteTimeout:
		r.proc.OnTimeoutPrevote(m.H, m.R)
	case process.PrecommitTimeout:
		r.proc.OnTimeoutPrecommit(m.H, m.R)
	default:
		r.opts.Logger.Warnf("replica %d: dropping unrecognised event type %T", r.whoami, e)
	}
}
