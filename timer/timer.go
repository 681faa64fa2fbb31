// Package timer implements the Timer Service described in spec §4.3: one
// arm/disarm-able timeout per (kind, height, round), delivered as an Event
// back onto the owning Process's queue when it fires.
package timer

import (
	"sync"
	"time"

	"github.com/bftlab/tendermint/process"
)

// Options configures a LinearTimer's delay schedule: delay(round) =
// Base + round*Step, matching spec §4.3's "timeoutPropose(r) = 6 + r" with
// Base and Step as the configurable constants.
type Options struct {
	Base time.Duration
	Step time.Duration
}

// DefaultOptions returns the schedule spec §4.3 specifies literally:
// 6 second base, 1 second growth per round.
func DefaultOptions() Options {
	return Options{
		Base: 6 * time.Second,
		Step: 1 * time.Second,
	}
}

// WithBase returns a copy of opts with Base set.
func (opts Options) WithBase(base time.Duration) Options {
	opts.Base = base
	return opts
}

// WithStep returns a copy of opts with Step set.
func (opts Options) WithStep(step time.Duration) Options {
	opts.Step = step
	return opts
}

func (opts Options) delay(round process.Round) time.Duration {
	return opts.Base + time.Duration(round)*opts.Step
}

// A Timer schedules the three timeout kinds. Arming is idempotent per
// (kind, height, round): re-arming the same key while already armed has no
// additional effect, and disarming makes any in-flight firing a no-op from
// the Timer's perspective (the Process's own (h, round, step) guards are
// what ultimately make stale firings harmless, per spec §4.3).
type Timer interface {
	ArmPropose(h process.Height, r process.Round)
	ArmPrevote(h process.Height, r process.Round)
	ArmPrecommit(h process.Height, r process.Round)
	DisarmAll()
}

type key struct {
	kind string
	h    process.Height
	r    process.Round
}

// LinearTimer is the Timer Service: for each kind it holds at most one
// outstanding firing, keyed by (kind, height, round), and delivers the fired
// Event onto deliver. Disarming clears the local bookkeeping; a goroutine
// that is already past its sleep when disarmed still delivers, but the
// Process's step/round/height guards (spec §4.1's timeout handlers) make
// that delivery a no-op. This mirrors spec §9's re-architecture note: "a
// cleaner design is a single timer service per replica keyed by
// (kind, h, round)".
type LinearTimer struct {
	opts    Options
	deliver func(process.Event)
	mu      sync.Mutex
	armed   map[key]bool
}

// NewLinearTimer returns a Timer that delivers fired timeouts to deliver.
func NewLinearTimer(opts Options, deliver func(process.Event)) *LinearTimer {
	return &LinearTimer{
		opts:    opts,
		deliver: deliver,
		armed:   map[key]bool{},
	}
}

// ArmPropose implements Timer.
func (t *LinearTimer) ArmPropose(h process.Height, r process.Round) {
	t.arm(key{"propose", h, r}, r, func() process.Event { return process.ProposeTimeout{H: h, R: r} })
}

// ArmPrevote implements Timer.
func (t *LinearTimer) ArmPrevote(h process.Height, r process.Round) {
	t.arm(key{"prevote", h, r}, r, func() process.Event { return process.PrevoteTimeout{H: h, R: r} })
}

// ArmPrecommit implements Timer.
func (t *LinearTimer) ArmPrecommit(h process.Height, r process.Round) {
	t.arm(key{"precommit", h, r}, r, func() process.Event { return process.PrecommitTimeout{H: h, R: r} })
}

func (t *LinearTimer) arm(k key, round process.Round, mk func() process.Event) {
	t.mu.Lock()
	if t.armed[k] {
		t.mu.Unlock()
		return
	}
	t.armed[k] = true
	t.mu.Unlock()

	delay := t.opts.delay(round)
	go func() {
		time.Sleep(delay)
		t.mu.Lock()
		stillArmed := t.armed[k]
		t.mu.Unlock()
		if !stillArmed {
			return
		}
		t.deliver(mk())
	}()
}

// DisarmAll clears every armed key. Called on every round start and commit,
// per spec §4.1 step 1 of startRound and step 1 of commit.
func (t *LinearTimer) DisarmAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = map[key]bool{}
}
