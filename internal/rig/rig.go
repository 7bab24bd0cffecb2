// Package rig is the procedural animation rig: it owns the avatar pose and,
// once per frame, resolves targets from the latest signals and smooths the
// pose toward them.
package rig

import (
	"math/rand"
	"time"

	"github.com/normanking/novaavatar/internal/signals"
)

// Source supplies the latest signals. *signals.Handle implements it.
type Source interface {
	Snapshot() signals.Snapshot
}

// Rig is confined to the goroutine that calls Step.
type Rig struct {
	src      Source
	clock    Clock
	rates    Rates
	maxStep  time.Duration
	resolver *Resolver

	pose    Pose
	targets Targets
	input   signals.Snapshot
	last    time.Time
	started bool
}

type Option func(*options)

type options struct {
	clock Clock
	rng   *rand.Rand
}

// WithClock replaces the system clock, typically with a FakeClock in tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRand fixes the random source used for blink and saccade timing.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

func New(src Source, cfg Config, opts ...Option) *Rig {
	o := options{clock: SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Rig{
		src:      src,
		clock:    o.clock,
		rates:    cfg.Rates,
		maxStep:  cfg.Tuning.MaxStep,
		resolver: NewResolver(cfg.Tuning, o.rng),
		pose:     DefaultPose(),
	}
}

// Step runs one frame: read signals, resolve targets, integrate. The frame
// delta is clamped to the configured max step.
func (r *Rig) Step() Pose {
	now := r.clock.Now()

	var dt time.Duration
	if r.started {
		dt = now.Sub(r.last)
	}
	r.started = true
	r.last = now
	if dt < 0 {
		dt = 0
	}
	if r.maxStep > 0 && dt > r.maxStep {
		dt = r.maxStep
	}

	r.input = r.src.Snapshot()
	r.targets = r.resolver.Resolve(r.input, now)
	r.pose = Integrate(r.pose, r.targets, dt, r.rates)
	return r.pose
}

// Pose returns a copy of the current pose.
func (r *Rig) Pose() Pose {
	return r.pose
}

// Targets returns the targets resolved on the last Step.
func (r *Rig) Targets() Targets {
	return r.targets
}

// Input returns the signals the last Step resolved against.
func (r *Rig) Input() signals.Snapshot {
	return r.input
}
