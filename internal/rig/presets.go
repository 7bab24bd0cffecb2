package rig

import (
	"math"

	"github.com/normanking/novaavatar/internal/signals"
)

// GesturePreset is a fixed tuple of joint-angle targets with an optional
// head bias. ShoulderSway adds sin/cos motion to the shoulders; TurnSway
// swings the head left and right at TurnSwayRate rad/s.
type GesturePreset struct {
	Name signals.Gesture

	LeftShoulder  float64
	LeftElbow     float64
	RightShoulder float64
	RightElbow    float64

	HeadTilt float64
	HeadNod  float64

	ShoulderSway float64
	TurnSway     float64
	TurnSwayRate float64
}

var (
	PresetIdle = GesturePreset{
		Name:          signals.GestureIdle,
		LeftShoulder:  5,
		RightShoulder: -5,
		ShoulderSway:  2,
	}

	// hand up
	PresetWave = GesturePreset{
		Name:          signals.GestureWave,
		RightShoulder: -140,
		RightElbow:    -20,
		HeadTilt:      5,
	}

	// hand to chin
	PresetWorking = GesturePreset{
		Name:          signals.GestureWorking,
		RightShoulder: -70,
		RightElbow:    -110,
		HeadTilt:      -5,
	}

	// hands forward
	PresetScan = GesturePreset{
		Name:          signals.GestureScan,
		LeftShoulder:  -30,
		LeftElbow:     -40,
		RightShoulder: 30,
		RightElbow:    40,
	}

	// hands open
	PresetExplaining = GesturePreset{
		Name:          signals.GestureExplaining,
		LeftShoulder:  30,
		LeftElbow:     -20,
		RightShoulder: -30,
		RightElbow:    20,
	}

	// lean in
	PresetListening = GesturePreset{
		Name:         signals.GestureListening,
		HeadNod:      -5,
		TurnSway:     5,
		TurnSwayRate: 0.5,
	}

	// bowed head, drooped shoulders
	PresetSleep = GesturePreset{
		Name:          signals.GestureSleep,
		LeftShoulder:  10,
		RightShoulder: -10,
		HeadTilt:      5,
		HeadNod:       15,
	}
)

// PresetFor returns the preset for an awake gesture. Unknown gestures and the
// sleep gesture without a sleep wake state resolve to idle.
func PresetFor(g signals.Gesture) GesturePreset {
	switch g {
	case signals.GestureWave:
		return PresetWave
	case signals.GestureWorking:
		return PresetWorking
	case signals.GestureScan:
		return PresetScan
	case signals.GestureExplaining:
		return PresetExplaining
	case signals.GestureListening:
		return PresetListening
	default:
		return PresetIdle
	}
}

// Joints holds the limb and head targets a preset resolves to at time t.
type Joints struct {
	LeftShoulder  float64
	LeftElbow     float64
	RightShoulder float64
	RightElbow    float64
	HeadTilt      float64
	HeadNod       float64
	HeadTurn      float64
}

func (p GesturePreset) At(t float64) Joints {
	j := Joints{
		LeftShoulder:  p.LeftShoulder,
		LeftElbow:     p.LeftElbow,
		RightShoulder: p.RightShoulder,
		RightElbow:    p.RightElbow,
		HeadTilt:      p.HeadTilt,
		HeadNod:       p.HeadNod,
	}
	if p.ShoulderSway != 0 {
		j.LeftShoulder += math.Sin(t) * p.ShoulderSway
		j.RightShoulder += math.Cos(t) * p.ShoulderSway
	}
	if p.TurnSway != 0 {
		j.HeadTurn = math.Sin(t*p.TurnSwayRate) * p.TurnSway
	}
	return j
}

// FacePreset is the brow/smile/squint contribution of an expression. Negative
// brow values raise the brows.
type FacePreset struct {
	Name     signals.Expression
	Brow     float64
	Smile    float64
	Squint   float64
	HeadTilt float64
}

var (
	FaceNeutral  = FacePreset{Name: signals.ExpressionNeutral}
	FaceSurprise = FacePreset{Name: signals.ExpressionSurprise, Brow: -10, Squint: -0.2}
	FaceThinking = FacePreset{Name: signals.ExpressionThinking, Brow: 5, Squint: 0.4}
	FaceHappy    = FacePreset{Name: signals.ExpressionHappy, Smile: 1, Squint: 0.2}
	FaceSad      = FacePreset{Name: signals.ExpressionSad, Brow: 8, Smile: -0.5}
	FaceCurious  = FacePreset{Name: signals.ExpressionCurious, Brow: -5, HeadTilt: 5}
)

// FaceFor returns the face preset for an expression, neutral when unknown.
func FaceFor(e signals.Expression) FacePreset {
	switch e {
	case signals.ExpressionSurprise:
		return FaceSurprise
	case signals.ExpressionThinking:
		return FaceThinking
	case signals.ExpressionHappy:
		return FaceHappy
	case signals.ExpressionSad:
		return FaceSad
	case signals.ExpressionCurious:
		return FaceCurious
	default:
		return FaceNeutral
	}
}
