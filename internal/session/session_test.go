package session

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/novaavatar/internal/bus"
	"github.com/normanking/novaavatar/internal/signals"
)

func newSession(t *testing.T) (*Session, *signals.Handle) {
	t.Helper()
	h := signals.NewHandle()
	return New(DefaultConfig(), h, nil, zerolog.Nop()), h
}

func authorize(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Connect())
	require.NoError(t, s.Opened())
}

func TestLifecycle(t *testing.T) {
	s, h := newSession(t)
	assert.Equal(t, signals.StateLocked, h.State())
	assert.Empty(t, s.ID())

	require.NoError(t, s.Connect())
	assert.Equal(t, signals.StateConnecting, h.State())
	assert.NotEmpty(t, s.ID())

	require.NoError(t, s.Opened())
	assert.Equal(t, signals.StateAuthorized, h.State())

	s.Closed()
	assert.Equal(t, signals.StateLocked, h.State())
	assert.Empty(t, s.ID())
}

func TestInvalidTransitions(t *testing.T) {
	s, _ := newSession(t)

	assert.ErrorIs(t, s.Opened(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Listen(true), ErrInvalidTransition)

	authorize(t, s)
	assert.ErrorIs(t, s.Connect(), ErrInvalidTransition)
}

func TestSpeakingHysteresis(t *testing.T) {
	s, h := newSession(t)
	authorize(t, s)

	steps := []struct {
		level float64
		want  signals.InteractionState
	}{
		{15, signals.StateAuthorized},
		{20, signals.StateAuthorized},
		{21, signals.StateSpeaking},
		{12, signals.StateSpeaking},
		{10, signals.StateSpeaking},
		{9.9, signals.StateAuthorized},
		{15, signals.StateAuthorized},
	}
	for i, st := range steps {
		s.Loudness(st.level)
		assert.Equal(t, st.want, s.State(), "step %d level %v", i, st.level)
		assert.Equal(t, st.level, h.Loudness())
	}
}

func TestLoudnessIgnoredBeforeAuthorization(t *testing.T) {
	s, h := newSession(t)
	s.Loudness(80)
	assert.Equal(t, signals.StateLocked, s.State())
	assert.Equal(t, 80.0, h.Loudness())
}

func TestListen(t *testing.T) {
	s, _ := newSession(t)
	authorize(t, s)

	require.NoError(t, s.Listen(true))
	assert.Equal(t, signals.StateListening, s.State())

	// loud output while listening does not start speaking
	s.Loudness(90)
	assert.Equal(t, signals.StateListening, s.State())

	require.NoError(t, s.Listen(false))
	assert.Equal(t, signals.StateAuthorized, s.State())
	assert.NoError(t, s.Listen(false))
}

func TestInterrupted(t *testing.T) {
	s, h := newSession(t)
	authorize(t, s)
	s.Loudness(50)
	require.Equal(t, signals.StateSpeaking, s.State())

	s.Interrupted()
	assert.Equal(t, signals.StateAuthorized, s.State())
	assert.Zero(t, h.Loudness())
}

func TestForce(t *testing.T) {
	s, h := newSession(t)
	s.Force(signals.StateSpeaking)
	assert.Equal(t, signals.StateSpeaking, h.State())
	assert.NotEmpty(t, s.ID())

	s.Force(signals.StateLocked)
	assert.Empty(t, s.ID())
}

func TestPublishesTransitions(t *testing.T) {
	eb := bus.NewEventBus()
	var mu sync.Mutex
	var got []string
	eb.Subscribe(bus.EventTypeStateChanged, func(e bus.Event) {
		mu.Lock()
		got = append(got, e.Data["to"].(string))
		mu.Unlock()
	})

	s := New(DefaultConfig(), signals.NewHandle(), eb, zerolog.Nop())
	require.NoError(t, s.Connect())
	require.NoError(t, s.Opened())
	eb.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"connecting", "authorized"}, got)
}
