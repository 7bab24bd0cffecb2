package rig

import (
	"math/rand"
	"time"

	"github.com/normanking/novaavatar/internal/signals"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

const frame = time.Second / 60

func newTestResolver(seed int64) *Resolver {
	return NewResolver(DefaultTuning(), rand.New(rand.NewSource(seed)))
}

func newTestRig(h *signals.Handle) (*Rig, *FakeClock) {
	clock := NewFakeClock(epoch)
	r := New(h, DefaultConfig(), WithClock(clock), WithRand(rand.New(rand.NewSource(7))))
	return r, clock
}

// run steps the rig for d of simulated time at 60 Hz and calls fn after each frame.
func run(r *Rig, clock *FakeClock, d time.Duration, fn func(Pose)) Pose {
	var p Pose
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		clock.Advance(frame)
		p = r.Step()
		if fn != nil {
			fn(p)
		}
	}
	return p
}

func nova(g signals.Gesture, e signals.Expression, w signals.WakeState) *signals.NovaSignal {
	return &signals.NovaSignal{Gesture: g, FacialExpression: e, WakeState: w}
}
