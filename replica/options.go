package replica

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bftlab/tendermint/timer"
)

// Options parameterises a Replica's ambient behaviour: logging and the
// timeout schedule. Mirrors the teacher's replica.Options/setZerosToDefaults
// pattern, trimmed to what this core needs (no signing backoff, since
// message authentication is out of scope here).
type Options struct {
	Logger logrus.FieldLogger

	// TimerBase and TimerStep parameterise the Timer Service's linear
	// schedule, delay(round) = TimerBase + round*TimerStep.
	TimerBase time.Duration
	TimerStep time.Duration

	// EventQueueCapacity bounds how many undelivered Events (messages and
	// fired timeouts) a Replica will buffer. Once it is full, a Run goroutine
	// delivering a message blocks, and a fired timeout is dropped.
	EventQueueCapacity int

	// StartDelay, if set, is how long Run waits before starting the
	// underlying Process. Zero by default, so tests pay no cost; a demo can
	// set it to stagger replicas the way the original Python demo staggered
	// its per-node threads.
	StartDelay time.Duration
}

func (opts *Options) setZerosToDefaults() {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.TimerBase == time.Duration(0) {
		opts.TimerBase = timer.DefaultOptions().Base
	}
	if opts.TimerStep == time.Duration(0) {
		opts.TimerStep = timer.DefaultOptions().Step
	}
	if opts.EventQueueCapacity == 0 {
		opts.EventQueueCapacity = 128
	}
}
