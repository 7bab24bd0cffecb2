package rig

import "time"

// Tuning holds the resolver's schedule and gain constants.
type Tuning struct {
	BlinkDuration time.Duration
	BlinkGapMin   time.Duration
	BlinkGapMax   time.Duration

	SaccadeGapMin time.Duration
	SaccadeGapMax time.Duration
	SaccadeRangeX float64 // gaze x is drawn from [-SaccadeRangeX, SaccadeRangeX]
	SaccadeRangeY float64

	TwitchInterval  time.Duration
	TwitchAmplitude float64

	// StallGap is the largest clock step treated as continuous time. Larger
	// forward jumps and any backward jump re-arm every timer.
	StallGap time.Duration
	MaxStep  time.Duration

	BreathRate         float64 // rad/s
	SpeakingBreathRate float64
	FloatRate          float64
	SleepRateFactor    float64

	LoudnessFullScale float64 // loudness at which lip sync saturates
	MouthOpenGain     float64
	MouthWidthGain    float64
	SmileWidthGain    float64
	HeadFollowGain    float64 // degrees of head turn per unit of gaze x

	GlowBase  float64
	GlowGain  float64
	SleepGlow float64
}

func DefaultTuning() Tuning {
	return Tuning{
		BlinkDuration: 150 * time.Millisecond,
		BlinkGapMin:   2 * time.Second,
		BlinkGapMax:   6 * time.Second,

		SaccadeGapMin: 1 * time.Second,
		SaccadeGapMax: 4 * time.Second,
		SaccadeRangeX: 0.75,
		SaccadeRangeY: 0.25,

		TwitchInterval:  500 * time.Millisecond,
		TwitchAmplitude: 1,

		StallGap: time.Second,
		MaxStep:  100 * time.Millisecond,

		BreathRate:         2,
		SpeakingBreathRate: 3,
		FloatRate:          1.5,
		SleepRateFactor:    0.2,

		LoudnessFullScale: 40,
		MouthOpenGain:     15,
		MouthWidthGain:    5,
		SmileWidthGain:    2,
		HeadFollowGain:    10,

		GlowBase:  0.5,
		GlowGain:  0.5,
		SleepGlow: 0.1,
	}
}

// Rates are the per-channel smoothing constants, expressed as the fraction of
// the remaining distance covered in one FrameRef.
type Rates struct {
	FrameRef time.Duration

	Limb       float64
	Head       float64
	Gaze       float64
	Face       float64
	MouthOpen  float64
	MouthWidth float64
	Glow       float64
	Breath     float64
	Hair       float64
	Float      float64
}

func DefaultRates() Rates {
	return Rates{
		FrameRef:   time.Second / 60,
		Limb:       0.04,
		Head:       0.05,
		Gaze:       0.15,
		Face:       0.1,
		MouthOpen:  0.3,
		MouthWidth: 0.1,
		Glow:       0.1,
		Breath:     0.05,
		Hair:       0.05,
		Float:      0.03,
	}
}

// Config bundles everything a Rig needs besides its signal source.
type Config struct {
	Tuning Tuning
	Rates  Rates
}

func DefaultConfig() Config {
	return Config{
		Tuning: DefaultTuning(),
		Rates:  DefaultRates(),
	}
}
