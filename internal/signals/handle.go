package signals

import (
	"math"
	"sync/atomic"
)

// Snapshot is a consistent-enough view of the latest signals for one frame.
// Nova is nil until the first signal arrives.
type Snapshot struct {
	State    InteractionState
	Loudness float64
	Nova     *NovaSignal
}

// Handle is the single-slot handoff between producers (audio callbacks,
// network session) and the frame consumer. Each write overwrites the previous
// value; nothing is queued.
type Handle struct {
	state    atomic.Int32
	loudness atomic.Uint64
	nova     atomic.Pointer[NovaSignal]
}

// NewHandle returns a handle in the locked state with no signal.
func NewHandle() *Handle {
	return &Handle{}
}

// OnLoudnessSample stores the latest amplitude estimate. Negative and NaN
// values are stored as 0.
func (h *Handle) OnLoudnessSample(level float64) {
	if math.IsNaN(level) || level < 0 {
		level = 0
	}
	h.loudness.Store(math.Float64bits(level))
}

// OnNovaSignal replaces the latest structured signal.
func (h *Handle) OnNovaSignal(sig NovaSignal) {
	n := sig.Normalized()
	h.nova.Store(&n)
}

// OnInteractionStateChange stores the latest session state.
func (h *Handle) OnInteractionStateChange(state InteractionState) {
	h.state.Store(int32(state))
}

// ClearNovaSignal drops the retained signal.
func (h *Handle) ClearNovaSignal() {
	h.nova.Store(nil)
}

// State returns the latest session state.
func (h *Handle) State() InteractionState {
	return InteractionState(h.state.Load())
}

// Loudness returns the latest amplitude estimate.
func (h *Handle) Loudness() float64 {
	return math.Float64frombits(h.loudness.Load())
}

// Snapshot reads every slot once.
func (h *Handle) Snapshot() Snapshot {
	return Snapshot{
		State:    h.State(),
		Loudness: h.Loudness(),
		Nova:     h.nova.Load(),
	}
}
