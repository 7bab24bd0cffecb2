package rig

import (
	"testing"
	"time"

	"github.com/normanking/novaavatar/internal/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRig_FirstStepKeepsRestPose(t *testing.T) {
	h := signals.NewHandle()
	h.OnNovaSignal(*nova(signals.GestureWave, signals.ExpressionHappy, signals.WakeAwake))
	r, _ := newTestRig(h)

	p := r.Step()
	rest := DefaultPose()

	assert.Equal(t, rest.RightShoulder, p.RightShoulder)
	assert.Equal(t, rest.Smile, p.Smile)
	assert.Equal(t, rest.Glow, p.Glow)
}

func TestRig_SpeakingOpensMouthWithoutOvershoot(t *testing.T) {
	h := signals.NewHandle()
	h.OnInteractionStateChange(signals.StateSpeaking)
	h.OnLoudnessSample(40)
	r, clock := newTestRig(h)

	r.Step()
	require.Equal(t, 15.0, r.Targets().MouthHeight)

	prev := 0.0
	p := run(r, clock, 2*time.Second, func(p Pose) {
		require.GreaterOrEqual(t, p.MouthHeight, prev)
		require.LessOrEqual(t, p.MouthHeight, 15.0)
		prev = p.MouthHeight
	})
	assert.InDelta(t, 15, p.MouthHeight, 0.01)
	assert.InDelta(t, 1, p.Glow, 0.01)
}

func TestRig_SleepSettlesHeadAndEyes(t *testing.T) {
	h := signals.NewHandle()
	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureWave, WakeState: signals.WakeSleep})
	r, clock := newTestRig(h)

	p := run(r, clock, 10*time.Second, func(p Pose) {
		require.Equal(t, 0.0, p.EyeOpen)
	})

	assert.InDelta(t, 15, p.HeadNod, 0.1)
	assert.InDelta(t, 5, p.HeadTilt, 0.1)
	assert.InDelta(t, 10, p.LeftShoulder, 0.1)
	assert.InDelta(t, -10, p.RightShoulder, 0.1)
	assert.InDelta(t, 0.1, p.Glow, 0.01)
	assert.InDelta(t, 0, p.PupilX, 1e-9)
}

func TestRig_WaveRaisesRightArm(t *testing.T) {
	h := signals.NewHandle()
	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureWave})
	r, clock := newTestRig(h)

	r.Step()
	tg := r.Targets()
	assert.Equal(t, -140.0, tg.RightShoulder)
	assert.Equal(t, -20.0, tg.RightElbow)
	assert.Equal(t, 0.0, tg.LeftShoulder)
	assert.Equal(t, 0.0, tg.LeftElbow)

	p := run(r, clock, 5*time.Second, nil)
	assert.InDelta(t, -140, p.RightShoulder, 0.5)
	assert.InDelta(t, -20, p.RightElbow, 0.5)
	assert.InDelta(t, 0, p.LeftShoulder, 0.5)
}

func TestRig_LatestSignalReplacesPrevious(t *testing.T) {
	h := signals.NewHandle()
	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureWave, FacialExpression: signals.ExpressionHappy})
	r, clock := newTestRig(h)
	run(r, clock, time.Second, nil)

	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureScan})
	run(r, clock, frame, nil)

	tg := r.Targets()
	assert.Equal(t, -30.0, tg.LeftShoulder)
	assert.Equal(t, 0.0, tg.Smile, "expression is not merged from the older signal")
}

func TestRig_ClampsLongFrames(t *testing.T) {
	h := signals.NewHandle()
	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureWave})
	r, clock := newTestRig(h)
	r.Step()

	clock.Advance(500 * time.Millisecond)
	p := r.Step()

	// a 100ms step at rate 0.04 covers 1-(0.96^6) of the distance
	assert.InDelta(t, -140*(1-0.782757789696), p.RightShoulder, 1e-4)
}

func TestRig_ClockRegressionIsHarmless(t *testing.T) {
	h := signals.NewHandle()
	r, clock := newTestRig(h)
	before := run(r, clock, time.Second, nil)

	clock.Set(epoch)
	p := r.Step()

	assert.Equal(t, before.RightShoulder, p.RightShoulder)
	assert.Equal(t, before.Time, p.Time)
	assert.Equal(t, 1.0, p.EyeOpen)
}
