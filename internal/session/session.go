// Package session owns the interaction lifecycle: connecting to the signal
// producer, authorization, and speaking detection from output loudness.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/novaavatar/internal/bus"
	"github.com/normanking/novaavatar/internal/signals"
)

var ErrInvalidTransition = errors.New("invalid session transition")

// Sink receives every state change and loudness sample. *signals.Handle
// implements it.
type Sink interface {
	OnInteractionStateChange(signals.InteractionState)
	OnLoudnessSample(float64)
}

type Config struct {
	SpeakOn  float64 // Authorized -> Speaking above this level
	SpeakOff float64 // Speaking -> Authorized below this level
}

func DefaultConfig() Config {
	return Config{SpeakOn: 20, SpeakOff: 10}
}

type Session struct {
	cfg  Config
	sink Sink
	bus  *bus.EventBus
	log  zerolog.Logger

	mu    sync.Mutex
	state signals.InteractionState
	id    string
}

// New returns a locked session. eb may be nil.
func New(cfg Config, sink Sink, eb *bus.EventBus, log zerolog.Logger) *Session {
	s := &Session{cfg: cfg, sink: sink, bus: eb, log: log}
	sink.OnInteractionStateChange(signals.StateLocked)
	return s
}

func (s *Session) State() signals.InteractionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID identifies the current connection. It is empty while locked.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Connect starts a connection attempt from the locked state.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != signals.StateLocked {
		return fmt.Errorf("%w: connect from %s", ErrInvalidTransition, s.state)
	}
	s.id = uuid.NewString()
	s.setLocked(signals.StateConnecting, "connect")
	return nil
}

// Opened marks the connection authorized.
func (s *Session) Opened() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != signals.StateConnecting {
		return fmt.Errorf("%w: open from %s", ErrInvalidTransition, s.state)
	}
	s.setLocked(signals.StateAuthorized, "opened")
	return nil
}

// Listen toggles the listening state while the avatar is not speaking.
func (s *Session) Listen(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case on && s.state == signals.StateAuthorized:
		s.setLocked(signals.StateListening, "listen")
	case !on && s.state == signals.StateListening:
		s.setLocked(signals.StateAuthorized, "listen_end")
	case on && s.state == signals.StateListening, !on && s.state == signals.StateAuthorized:
	default:
		return fmt.Errorf("%w: listen=%t from %s", ErrInvalidTransition, on, s.state)
	}
	return nil
}

// Loudness forwards an output loudness sample and applies the speaking
// hysteresis. Samples arriving while locked or connecting are still forwarded.
func (s *Session) Loudness(level float64) {
	s.sink.OnLoudnessSample(level)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == signals.StateAuthorized && level > s.cfg.SpeakOn:
		s.setLocked(signals.StateSpeaking, "loudness")
	case s.state == signals.StateSpeaking && level < s.cfg.SpeakOff:
		s.setLocked(signals.StateAuthorized, "loudness")
	}
}

// Interrupted stops speaking immediately, as when the producer cuts its
// output short.
func (s *Session) Interrupted() {
	s.sink.OnLoudnessSample(0)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == signals.StateSpeaking {
		s.setLocked(signals.StateAuthorized, "interrupted")
	}
	s.publish(bus.EventTypeInterrupted, map[string]any{"session_id": s.id})
}

// Closed returns to the locked state from anywhere.
func (s *Session) Closed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.OnLoudnessSample(0)
	s.setLocked(signals.StateLocked, "closed")
	s.id = ""
}

// Force applies a state reported by the producer without checking the
// transition.
func (s *Session) Force(state signals.InteractionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == signals.StateLocked {
		s.id = ""
	} else if s.id == "" {
		s.id = uuid.NewString()
	}
	s.setLocked(state, "forced")
}

func (s *Session) setLocked(next signals.InteractionState, reason string) {
	if next == s.state {
		return
	}
	prev := s.state
	s.state = next
	s.sink.OnInteractionStateChange(next)

	s.log.Debug().
		Str("from", prev.String()).
		Str("to", next.String()).
		Str("reason", reason).
		Msg("session state changed")

	s.publish(bus.EventTypeStateChanged, map[string]any{
		"from":       prev.String(),
		"to":         next.String(),
		"reason":     reason,
		"session_id": s.id,
	})
}

func (s *Session) publish(t bus.EventType, data map[string]any) {
	if s.bus != nil {
		s.bus.Publish(bus.Event{Type: t, Data: data})
	}
}
