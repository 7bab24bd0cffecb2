package signals

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_DefaultSnapshot(t *testing.T) {
	h := NewHandle()
	snap := h.Snapshot()

	assert.Equal(t, StateLocked, snap.State)
	assert.Zero(t, snap.Loudness)
	assert.Nil(t, snap.Nova)
}

func TestHandle_LatestValueWins(t *testing.T) {
	h := NewHandle()

	h.OnLoudnessSample(12)
	h.OnLoudnessSample(55)
	h.OnInteractionStateChange(StateAuthorized)
	h.OnInteractionStateChange(StateSpeaking)
	h.OnNovaSignal(NovaSignal{Speech: "first", Gesture: GestureWave})
	h.OnNovaSignal(NovaSignal{Speech: "second", FacialExpression: ExpressionHappy})

	snap := h.Snapshot()
	assert.Equal(t, 55.0, snap.Loudness)
	assert.Equal(t, StateSpeaking, snap.State)
	require.NotNil(t, snap.Nova)
	assert.Equal(t, "second", snap.Nova.Speech)
	// no partial merge: the wave from the first signal is gone
	assert.Equal(t, GestureIdle, snap.Nova.Gesture)
	assert.Equal(t, ExpressionHappy, snap.Nova.FacialExpression)
}

func TestHandle_SanitizesLoudness(t *testing.T) {
	h := NewHandle()

	h.OnLoudnessSample(-4)
	assert.Zero(t, h.Loudness())

	h.OnLoudnessSample(math.NaN())
	assert.Zero(t, h.Loudness())
}

func TestHandle_NormalizesUntrustedSignal(t *testing.T) {
	h := NewHandle()
	h.OnNovaSignal(NovaSignal{FacialExpression: "smug", Gesture: "moonwalk", WakeState: "dozing"})

	snap := h.Snapshot()
	require.NotNil(t, snap.Nova)
	assert.Equal(t, ExpressionNeutral, snap.Nova.FacialExpression)
	assert.Equal(t, GestureIdle, snap.Nova.Gesture)
	assert.Equal(t, WakeAwake, snap.Nova.WakeState)
	assert.Equal(t, PostureStanding, snap.Nova.Posture)

	h.ClearNovaSignal()
	assert.Nil(t, h.Snapshot().Nova)
}

func TestHandle_ConcurrentProducers(t *testing.T) {
	h := NewHandle()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h.OnLoudnessSample(float64(j))
				h.OnInteractionStateChange(InteractionState(j % 5))
				h.OnNovaSignal(NovaSignal{Speech: "x", Gesture: GestureScan})
				_ = h.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	snap := h.Snapshot()
	assert.GreaterOrEqual(t, snap.Loudness, 0.0)
	require.NotNil(t, snap.Nova)
	assert.Equal(t, GestureScan, snap.Nova.Gesture)
}

func TestParseInteractionState(t *testing.T) {
	tests := []struct {
		in   string
		want InteractionState
		ok   bool
	}{
		{"locked", StateLocked, true},
		{"CONNECTING", StateConnecting, true},
		{" authorized ", StateAuthorized, true},
		{"Listening", StateListening, true},
		{"SPEAKING", StateSpeaking, true},
		{"SCANNING", StateLocked, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseInteractionState(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNovaSignal_Asleep(t *testing.T) {
	var none *NovaSignal
	assert.False(t, none.Asleep())
	assert.True(t, (&NovaSignal{WakeState: WakeSleep}).Asleep())
	assert.True(t, (&NovaSignal{WakeState: "SLEEP"}).Asleep())
	assert.False(t, (&NovaSignal{Gesture: GestureSleep}).Asleep())
}
