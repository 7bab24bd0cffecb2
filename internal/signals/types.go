// Package signals defines the discrete inputs that drive the avatar rig and
// the single-slot handoff producers use to deliver them.
package signals

import "strings"

// InteractionState is the session lifecycle phase reported by the transport.
type InteractionState int32

const (
	StateLocked InteractionState = iota
	StateConnecting
	StateAuthorized
	StateListening
	StateSpeaking
)

var stateNames = [...]string{"locked", "connecting", "authorized", "listening", "speaking"}

func (s InteractionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ParseInteractionState accepts the lower or upper case state name.
func ParseInteractionState(name string) (InteractionState, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stateNames {
		if n == name {
			return InteractionState(i), true
		}
	}
	return StateLocked, false
}

// MarshalText implements encoding.TextMarshaler.
func (s InteractionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode as locked.
func (s *InteractionState) UnmarshalText(b []byte) error {
	*s, _ = ParseInteractionState(string(b))
	return nil
}

// Expression is the facial expression inferred for an utterance.
type Expression string

const (
	ExpressionNeutral  Expression = "neutral"
	ExpressionHappy    Expression = "happy"
	ExpressionSad      Expression = "sad"
	ExpressionCurious  Expression = "curious"
	ExpressionThinking Expression = "thinking"
	ExpressionSurprise Expression = "surprise"
)

// ParseExpression maps untrusted input to a known expression, neutral otherwise.
func ParseExpression(s string) Expression {
	switch e := Expression(strings.ToLower(strings.TrimSpace(s))); e {
	case ExpressionHappy, ExpressionSad, ExpressionCurious, ExpressionThinking, ExpressionSurprise:
		return e
	default:
		return ExpressionNeutral
	}
}

// Gesture is the body gesture inferred for an utterance.
type Gesture string

const (
	GestureIdle       Gesture = "idle"
	GestureWave       Gesture = "wave"
	GestureWorking    Gesture = "working"
	GestureScan       Gesture = "scan"
	GestureExplaining Gesture = "explaining"
	GestureListening  Gesture = "listening"
	GestureSleep      Gesture = "sleep"
)

// ParseGesture maps untrusted input to a known gesture, idle otherwise.
func ParseGesture(s string) Gesture {
	switch g := Gesture(strings.ToLower(strings.TrimSpace(s))); g {
	case GestureWave, GestureWorking, GestureScan, GestureExplaining, GestureListening, GestureSleep:
		return g
	default:
		return GestureIdle
	}
}

// WakeState distinguishes the sleeping posture from the active one.
type WakeState string

const (
	WakeAwake WakeState = "awake"
	WakeSleep WakeState = "sleep"
)

// ParseWakeState maps untrusted input to a wake state, awake otherwise.
func ParseWakeState(s string) WakeState {
	if WakeState(strings.ToLower(strings.TrimSpace(s))) == WakeSleep {
		return WakeSleep
	}
	return WakeAwake
}

// Posture is carried through from the remote service; the rig does not use it.
type Posture string

const (
	PostureStanding Posture = "standing"
	PostureLeaning  Posture = "leaning"
	PostureRelaxed  Posture = "relaxed"
)

// NovaSignal is the structured record produced once per classified utterance.
// A received signal replaces the previous one entirely.
type NovaSignal struct {
	Speech           string     `json:"speech"`
	FacialExpression Expression `json:"facial_expression"`
	Gesture          Gesture    `json:"gesture"`
	Posture          Posture    `json:"posture,omitempty"`
	Action           string     `json:"action,omitempty"`
	WakeState        WakeState  `json:"wake_state"`
	MediaInstruction string     `json:"media_instruction,omitempty"`
	TaskInstruction  string     `json:"task_instruction,omitempty"`
}

// Normalized returns a copy with every enum field validated.
func (s NovaSignal) Normalized() NovaSignal {
	s.FacialExpression = ParseExpression(string(s.FacialExpression))
	s.Gesture = ParseGesture(string(s.Gesture))
	s.WakeState = ParseWakeState(string(s.WakeState))
	switch s.Posture {
	case PostureStanding, PostureLeaning, PostureRelaxed:
	default:
		s.Posture = PostureStanding
	}
	return s
}

// Asleep reports whether the signal puts the avatar to sleep.
func (s *NovaSignal) Asleep() bool {
	return s != nil && ParseWakeState(string(s.WakeState)) == WakeSleep
}
