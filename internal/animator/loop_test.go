package animator

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/normanking/novaavatar/internal/bus"
	"github.com/normanking/novaavatar/internal/render"
	"github.com/normanking/novaavatar/internal/rig"
	"github.com/normanking/novaavatar/internal/signals"
)

func newLoop(t *testing.T, opts ...Option) (*Loop, *signals.Handle, *rig.FakeClock) {
	t.Helper()
	h := signals.NewHandle()
	clock := rig.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	r := rig.New(h, rig.DefaultConfig(), rig.WithClock(clock), rig.WithRand(rand.New(rand.NewSource(1))))
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return New(r, render.NewRenderer(render.DefaultTheme()), opts...), h, clock
}

func TestTick_PublishesLatestFrame(t *testing.T) {
	l, h, clock := newLoop(t)
	assert.Nil(t, l.Latest())

	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureWave})
	first := l.Tick()
	clock.Advance(time.Second / 60)
	second := l.Tick()

	assert.Equal(t, uint64(1), first.Seq)
	assert.Same(t, second, l.Latest())
	assert.Equal(t, uint64(2), l.Latest().Seq)
	assert.Equal(t, signals.GestureWave, second.Signals.Nova.Gesture)
	assert.NotEmpty(t, second.Render.SVG)
	assert.Less(t, second.Pose.RightShoulder, 0.0)
	assert.Equal(t, uint64(2), l.Stats().Frames)
}

func TestTick_WithoutRenderer(t *testing.T) {
	h := signals.NewHandle()
	r := rig.New(h, rig.DefaultConfig(), rig.WithClock(rig.NewFakeClock(time.Unix(0, 0))))
	l := New(r, nil)

	f := l.Tick()
	assert.Empty(t, f.Render.SVG)
	assert.Equal(t, 1.0, f.Pose.EyeOpen)
}

type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recorder) handle(e bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []bus.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bus.EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestTick_PublishesTransitions(t *testing.T) {
	eb := bus.NewEventBus()
	rec := &recorder{}
	eb.SubscribeMultiple([]bus.EventType{
		bus.EventTypeWakeChanged,
		bus.EventTypeGestureChanged,
		bus.EventTypeExpressionChanged,
		bus.EventTypeSpeakingChanged,
	}, rec.handle)

	l, h, clock := newLoop(t, WithBus(eb))
	step := func() {
		clock.Advance(time.Second / 60)
		l.Tick()
	}

	step()
	eb.Wait()
	assert.Empty(t, rec.types(), "the first frame only records the inputs")

	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureSleep, WakeState: signals.WakeSleep})
	step()
	step()
	eb.Wait()
	assert.ElementsMatch(t, []bus.EventType{bus.EventTypeWakeChanged, bus.EventTypeGestureChanged}, rec.types())

	h.OnInteractionStateChange(signals.StateSpeaking)
	h.OnNovaSignal(signals.NovaSignal{Gesture: signals.GestureSleep, FacialExpression: signals.ExpressionHappy})
	step()
	eb.Wait()
	assert.ElementsMatch(t, []bus.EventType{
		bus.EventTypeWakeChanged, bus.EventTypeGestureChanged,
		bus.EventTypeWakeChanged, bus.EventTypeExpressionChanged, bus.EventTypeSpeakingChanged,
	}, rec.types())
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	l, _, _ := newLoop(t, WithFPS(200))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Stats().Frames >= 5 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	frames := l.Stats().Frames
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frames, l.Stats().Frames, "no frames after Run returns")
	assert.Equal(t, frames, l.Latest().Seq)
}

func TestStats(t *testing.T) {
	l, _, _ := newLoop(t)
	for i := 0; i < 3; i++ {
		l.Tick()
	}

	s := l.Stats()
	assert.Equal(t, uint64(3), s.Frames)
	assert.GreaterOrEqual(t, s.MaxTick, s.LastTick)
	assert.Positive(t, s.MeanTick)
}
