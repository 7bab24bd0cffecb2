// Package animator drives a rig at a fixed frame rate, renders every frame
// and publishes the newest one for readers on other goroutines.
package animator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/novaavatar/internal/bus"
	"github.com/normanking/novaavatar/internal/render"
	"github.com/normanking/novaavatar/internal/rig"
	"github.com/normanking/novaavatar/internal/signals"
)

// Frame is what the loop publishes after each tick.
type Frame struct {
	Seq     uint64           `json:"seq"`
	At      time.Time        `json:"at"`
	Pose    rig.Pose         `json:"pose"`
	Signals signals.Snapshot `json:"-"`
	Render  render.Frame     `json:"render"`
}

// Stats describes the loop's recent timing.
type Stats struct {
	Frames    uint64        `json:"frames"`
	LastTick  time.Duration `json:"lastTick"`
	MaxTick   time.Duration `json:"maxTick"`
	MeanTick  time.Duration `json:"meanTick"`
	FPS       float64       `json:"fps"`
	StartedAt time.Time     `json:"startedAt"`
}

type Loop struct {
	rig      *rig.Rig
	renderer *render.Renderer
	bus      *bus.EventBus
	log      zerolog.Logger
	interval time.Duration

	latest atomic.Pointer[Frame]
	seq    uint64

	// last observed discrete inputs, owned by the loop goroutine
	seen     bool
	asleep   bool
	gesture  signals.Gesture
	expr     signals.Expression
	speaking bool

	mu        sync.Mutex
	stats     Stats
	totalTick time.Duration
	fpsWindow time.Time
	fpsFrames int
}

type Option func(*Loop)

// WithBus publishes wake, gesture, expression and speaking transitions.
func WithBus(b *bus.EventBus) Option {
	return func(l *Loop) { l.bus = b }
}

func WithLogger(log zerolog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithFPS sets the tick rate. Non-positive values keep the default of 60.
func WithFPS(fps int) Option {
	return func(l *Loop) {
		if fps > 0 {
			l.interval = time.Second / time.Duration(fps)
		}
	}
}

// New builds a loop around r. A nil renderer publishes poses only.
func New(r *rig.Rig, renderer *render.Renderer, opts ...Option) *Loop {
	l := &Loop{
		rig:      r,
		renderer: renderer,
		log:      zerolog.Nop(),
		interval: time.Second / 60,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run ticks until ctx is done. No frame is produced after it returns.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.mu.Lock()
	l.stats.StartedAt = time.Now()
	l.mu.Unlock()

	l.log.Info().Dur("interval", l.interval).Msg("animator started")
	defer l.log.Info().Msg("animator stopped")

	l.Tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			l.Tick()
		}
	}
}

// Tick runs one frame synchronously and publishes it. Only one goroutine may
// call Tick at a time; Run does so.
func (l *Loop) Tick() *Frame {
	start := time.Now()

	pose := l.rig.Step()
	in := l.rig.Input()

	l.seq++
	f := &Frame{
		Seq:     l.seq,
		At:      start,
		Pose:    pose,
		Signals: in,
	}
	if l.renderer != nil {
		f.Render = l.renderer.Render(pose)
	}
	l.latest.Store(f)

	l.observe(in)
	l.record(start, time.Since(start))
	return f
}

// Latest returns the newest frame, or nil before the first tick.
func (l *Loop) Latest() *Frame {
	return l.latest.Load()
}

func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loop) record(start time.Time, took time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := &l.stats
	s.Frames++
	s.LastTick = took
	if took > s.MaxTick {
		s.MaxTick = took
	}
	l.totalTick += took
	s.MeanTick = l.totalTick / time.Duration(s.Frames)

	if l.fpsWindow.IsZero() {
		l.fpsWindow = start
	}
	l.fpsFrames++
	if elapsed := start.Sub(l.fpsWindow); elapsed >= time.Second {
		s.FPS = float64(l.fpsFrames) / elapsed.Seconds()
		l.fpsWindow = start
		l.fpsFrames = 0
	}
}

// observe publishes changes in the discrete inputs. The first frame only
// records them.
func (l *Loop) observe(in signals.Snapshot) {
	asleep := in.Nova.Asleep()
	gesture, expr := signals.GestureIdle, signals.ExpressionNeutral
	if in.Nova != nil {
		gesture, expr = in.Nova.Gesture, in.Nova.FacialExpression
	}
	speaking := in.State == signals.StateSpeaking

	if !l.seen {
		l.seen = true
		l.asleep, l.gesture, l.expr, l.speaking = asleep, gesture, expr, speaking
		return
	}

	if asleep != l.asleep {
		l.asleep = asleep
		wake := signals.WakeAwake
		if asleep {
			wake = signals.WakeSleep
		}
		l.log.Info().Str("wake_state", string(wake)).Msg("wake state changed")
		l.publish(bus.EventTypeWakeChanged, map[string]any{"wake_state": string(wake)})
	}
	if gesture != l.gesture {
		l.log.Debug().Str("from", string(l.gesture)).Str("to", string(gesture)).Msg("gesture changed")
		l.publish(bus.EventTypeGestureChanged, map[string]any{"from": string(l.gesture), "to": string(gesture)})
		l.gesture = gesture
	}
	if expr != l.expr {
		l.log.Debug().Str("from", string(l.expr)).Str("to", string(expr)).Msg("expression changed")
		l.publish(bus.EventTypeExpressionChanged, map[string]any{"from": string(l.expr), "to": string(expr)})
		l.expr = expr
	}
	if speaking != l.speaking {
		l.speaking = speaking
		l.publish(bus.EventTypeSpeakingChanged, map[string]any{"speaking": speaking})
	}
}

func (l *Loop) publish(t bus.EventType, data map[string]any) {
	if l.bus != nil {
		l.bus.Publish(bus.Event{Type: t, Data: data})
	}
}
