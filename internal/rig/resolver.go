package rig

import (
	"math"
	"math/rand"
	"time"

	"github.com/normanking/novaavatar/internal/signals"
)

// Resolver computes the per-frame target of every continuous pose field from
// the latest signals and its own timer schedule. It never reads the pose.
type Resolver struct {
	tuning Tuning
	rng    *rand.Rand
	sched  schedule
}

func NewResolver(tuning Tuning, rng *rand.Rand) *Resolver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{tuning: tuning, rng: rng}
}

// Resolve returns this frame's targets. Sleep overrides gesture and
// expression; unknown enum values resolve as idle and neutral.
func (r *Resolver) Resolve(in signals.Snapshot, now time.Time) Targets {
	tn := &r.tuning

	asleep := in.Nova.Asleep()
	gesture := signals.GestureIdle
	expression := signals.ExpressionNeutral
	if in.Nova != nil {
		gesture = signals.ParseGesture(string(in.Nova.Gesture))
		expression = signals.ParseExpression(string(in.Nova.FacialExpression))
	}
	speaking := in.State == signals.StateSpeaking
	centered := in.State == signals.StateListening || in.State == signals.StateAuthorized

	s := &r.sched
	step := s.advance(now, tn, r.rng)
	s.sleep(asleep, now, tn, r.rng)

	breathRate, floatRate := tn.BreathRate, tn.FloatRate
	if speaking {
		breathRate = tn.SpeakingBreathRate
	}
	if asleep {
		breathRate *= tn.SleepRateFactor
		floatRate *= tn.SleepRateFactor
	}
	s.advancePhases(step, breathRate, floatRate)

	var t Targets
	t.Time = s.elapsed

	var joints Joints
	face := FaceNeutral
	if asleep {
		joints = PresetSleep.At(s.elapsed)
		t.EyeOpen = 0
	} else {
		joints = PresetFor(gesture).At(s.elapsed)
		face = FaceFor(expression)
		t.EyeOpen = 1
		t.Blink = s.blink(now, tn, r.rng)
		s.saccade(now, centered, tn, r.rng)
	}

	t.LeftShoulder = joints.LeftShoulder
	t.LeftElbow = joints.LeftElbow
	t.RightShoulder = joints.RightShoulder
	t.RightElbow = joints.RightElbow
	t.HeadTilt = joints.HeadTilt + face.HeadTilt
	t.HeadNod = joints.HeadNod

	t.GazeX, t.GazeY = s.gazeX, s.gazeY
	if centered {
		t.GazeX, t.GazeY = 0, 0
	}
	t.HeadTurn = joints.HeadTurn + t.GazeX*tn.HeadFollowGain

	twitch := 0.0
	if !asleep {
		twitch = s.microTwitch(now, tn, r.rng)
	}
	t.BrowLeft = face.Brow + twitch
	t.BrowRight = face.Brow
	t.Smile = face.Smile
	t.EyeSquint = face.Squint

	intensity := loudnessIntensity(in.Loudness, tn.LoudnessFullScale)
	if speaking {
		t.MouthHeight = intensity * tn.MouthOpenGain
		t.MouthWidth = intensity * tn.MouthWidthGain
	}
	t.MouthWidth += face.Smile * tn.SmileWidthGain

	if asleep {
		t.Glow = tn.SleepGlow
	} else {
		t.Glow = tn.GlowBase + intensity*tn.GlowGain
	}

	t.Breath = math.Sin(s.breathPhase) * 0.05
	t.FloatY = math.Sin(s.floatPhase) * 8
	t.HairSway = math.Sin(s.elapsed*1.2)*2 - t.HeadTurn*0.3

	t.BreathPhase = s.breathPhase
	t.NextBlinkAt = s.nextBlink
	t.NextSaccadeAt = s.nextSaccade
	t.SaccadeX, t.SaccadeY = s.gazeX, s.gazeY

	return t
}

// loudnessIntensity maps a loudness sample to a lip-sync intensity in [0,1].
func loudnessIntensity(level, fullScale float64) float64 {
	if fullScale <= 0 || math.IsNaN(level) || level <= 0 {
		return 0
	}
	return math.Min(1, level/fullScale)
}
