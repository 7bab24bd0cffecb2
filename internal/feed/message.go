// Package feed connects to an upstream signal producer over a websocket and
// applies its messages to the session, the signal handle and the loudness
// meter.
package feed

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/normanking/novaavatar/internal/audio"
	"github.com/normanking/novaavatar/internal/bus"
	"github.com/normanking/novaavatar/internal/session"
	"github.com/normanking/novaavatar/internal/signals"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrNotConnected   = errors.New("not connected")
)

// Message types exchanged with the producer.
const (
	TypeStatus      = "status"
	TypeLoudness    = "loudness"
	TypeAudio       = "audio"
	TypeTranscript  = "transcript"
	TypeNova        = "nova"
	TypeInterrupted = "interrupted"
	TypeListening   = "listening"
	TypeError       = "error"
	TypeHello       = "hello"
)

// Message is the envelope of every feed message. Nova signal fields sit at
// the top level next to type.
type Message struct {
	Type string `json:"type"`

	State    string   `json:"state,omitempty"`
	Level    *float64 `json:"level,omitempty"`
	Data     string   `json:"data,omitempty"` // base64 PCM16
	Text     string   `json:"text,omitempty"`
	On       *bool    `json:"on,omitempty"`
	Message  string   `json:"message,omitempty"`
	ClientID string   `json:"client_id,omitempty"`

	*signals.NovaSignal
}

func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

// Classifier turns transcript text into a signal.
type Classifier interface {
	Classify(text string) signals.NovaSignal
}

// Cleaner strips filler from transcript text. ok is false when nothing is
// left worth classifying.
type Cleaner interface {
	Clean(text string) (cleaned string, ok bool)
}

// Dispatcher applies decoded messages. It is shared by the feed client and
// the stage server's signal endpoints.
type Dispatcher struct {
	Session    *session.Session
	Handle     *signals.Handle
	Meter      *audio.Meter
	Classifier Classifier
	Filter     Cleaner // optional
	Bus        *bus.EventBus
	Log        zerolog.Logger
}

// Apply routes one message. Malformed payloads return an error and change
// nothing.
func (d *Dispatcher) Apply(msg Message) error {
	switch msg.Type {
	case TypeStatus:
		state, ok := signals.ParseInteractionState(msg.State)
		if !ok {
			return fmt.Errorf("status: unknown state %q", msg.State)
		}
		d.Session.Force(state)

	case TypeLoudness:
		if msg.Level == nil {
			return fmt.Errorf("loudness: missing level")
		}
		d.Session.Loudness(*msg.Level)

	case TypeAudio:
		pcm, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		level, err := d.Meter.ProcessPCM16(pcm)
		if err != nil {
			d.Log.Debug().Err(err).Int("bytes", len(pcm)).Msg("audio chunk truncated")
		}
		d.Session.Loudness(level)

	case TypeTranscript:
		text := msg.Text
		if d.Filter != nil {
			var ok bool
			if text, ok = d.Filter.Clean(text); !ok {
				return nil
			}
		}
		if text == "" {
			return nil
		}
		sig := d.Classifier.Classify(text)
		d.Handle.OnNovaSignal(sig)
		d.publish(bus.EventTypeTranscript, map[string]any{
			"text":       text,
			"expression": string(sig.FacialExpression),
			"gesture":    string(sig.Gesture),
		})

	case TypeNova:
		if msg.NovaSignal == nil {
			return fmt.Errorf("nova: empty signal")
		}
		d.Handle.OnNovaSignal(*msg.NovaSignal)

	case TypeInterrupted:
		d.Meter.Reset()
		d.Session.Interrupted()

	case TypeListening:
		on := msg.On == nil || *msg.On
		return d.Session.Listen(on)

	case TypeError:
		d.Log.Warn().Str("message", msg.Message).Msg("producer error")
		d.publish(bus.EventTypeError, map[string]any{"message": msg.Message})

	case TypeHello:

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return nil
}

func (d *Dispatcher) publish(t bus.EventType, data map[string]any) {
	if d.Bus != nil {
		d.Bus.Publish(bus.Event{Type: t, Data: data})
	}
}
