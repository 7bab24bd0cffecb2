package rig

import "time"

// Pose is the full simulation state of the avatar. Angles are in degrees.
type Pose struct {
	Time float64 `json:"time"` // seconds of simulated time since the rig started

	HeadTilt float64 `json:"headTilt"`
	HeadTurn float64 `json:"headTurn"`
	HeadNod  float64 `json:"headNod"`

	LeftShoulder  float64 `json:"leftShoulder"`
	LeftElbow     float64 `json:"leftElbow"`
	RightShoulder float64 `json:"rightShoulder"`
	RightElbow    float64 `json:"rightElbow"`

	EyeOpen     float64 `json:"eyeOpen"`
	EyeSquint   float64 `json:"eyeSquint"`
	PupilX      float64 `json:"pupilX"`
	PupilY      float64 `json:"pupilY"`
	BrowLeft    float64 `json:"browLeft"`
	BrowRight   float64 `json:"browRight"`
	MouthWidth  float64 `json:"mouthWidth"`
	MouthHeight float64 `json:"mouthHeight"`
	Smile       float64 `json:"smile"`

	BreathPhase float64 `json:"breathPhase"`
	Breath      float64 `json:"breath"`
	HairSway    float64 `json:"hairSway"`
	Glow        float64 `json:"glow"`
	FloatY      float64 `json:"floatY"`

	NextBlinkAt   time.Time `json:"nextBlinkAt"`
	NextSaccadeAt time.Time `json:"nextSaccadeAt"`
	SaccadeX      float64   `json:"saccadeX"`
	SaccadeY      float64   `json:"saccadeY"`
}

// DefaultPose is the rest pose a new rig starts from: eyes open, half glow.
func DefaultPose() Pose {
	return Pose{
		EyeOpen: 1,
		Glow:    0.5,
	}
}

// Targets are the values each continuous pose field is smoothed toward on
// the current frame, plus the schedule state mirrored into the pose.
type Targets struct {
	HeadTilt float64
	HeadTurn float64
	HeadNod  float64

	LeftShoulder  float64
	LeftElbow     float64
	RightShoulder float64
	RightElbow    float64

	// EyeOpen is 1 when awake and 0 when asleep. Blink is the closure of an
	// in-flight blink pulse in [0,1]; the lid aperture is EyeOpen*(1-Blink).
	EyeOpen float64
	Blink   float64

	EyeSquint   float64
	GazeX       float64
	GazeY       float64
	BrowLeft    float64
	BrowRight   float64
	Smile       float64
	MouthWidth  float64
	MouthHeight float64

	Breath   float64
	HairSway float64
	Glow     float64
	FloatY   float64

	Time          float64
	BreathPhase   float64
	NextBlinkAt   time.Time
	NextSaccadeAt time.Time
	SaccadeX      float64
	SaccadeY      float64
}

// Aperture is the eyelid opening the targets call for this frame.
func (t Targets) Aperture() float64 {
	return t.EyeOpen * (1 - t.Blink)
}
