package rig

import (
	"math"
	"time"
)

// Integrate advances every continuous field of p one step of length dt toward
// t and returns the new pose. The eyelid aperture is assigned directly. A zero
// dt returns the continuous fields unchanged.
func Integrate(p Pose, t Targets, dt time.Duration, r Rates) Pose {
	limb := smoothing(r.Limb, dt, r.FrameRef)
	head := smoothing(r.Head, dt, r.FrameRef)
	gaze := smoothing(r.Gaze, dt, r.FrameRef)
	face := smoothing(r.Face, dt, r.FrameRef)

	p.LeftShoulder = lerp(p.LeftShoulder, t.LeftShoulder, limb)
	p.LeftElbow = lerp(p.LeftElbow, t.LeftElbow, limb)
	p.RightShoulder = lerp(p.RightShoulder, t.RightShoulder, limb)
	p.RightElbow = lerp(p.RightElbow, t.RightElbow, limb)

	p.HeadTilt = lerp(p.HeadTilt, t.HeadTilt, head)
	p.HeadNod = lerp(p.HeadNod, t.HeadNod, head)
	p.HeadTurn = lerp(p.HeadTurn, t.HeadTurn, head)

	p.PupilX = lerp(p.PupilX, t.GazeX, gaze)
	p.PupilY = lerp(p.PupilY, t.GazeY, gaze)

	p.BrowLeft = lerp(p.BrowLeft, t.BrowLeft, face)
	p.BrowRight = lerp(p.BrowRight, t.BrowRight, face)
	p.Smile = lerp(p.Smile, t.Smile, face)
	p.EyeSquint = lerp(p.EyeSquint, t.EyeSquint, face)

	p.MouthHeight = lerp(p.MouthHeight, t.MouthHeight, smoothing(r.MouthOpen, dt, r.FrameRef))
	p.MouthWidth = lerp(p.MouthWidth, t.MouthWidth, smoothing(r.MouthWidth, dt, r.FrameRef))
	p.Glow = lerp(p.Glow, t.Glow, smoothing(r.Glow, dt, r.FrameRef))

	p.Breath = lerp(p.Breath, t.Breath, smoothing(r.Breath, dt, r.FrameRef))
	p.HairSway = lerp(p.HairSway, t.HairSway, smoothing(r.Hair, dt, r.FrameRef))
	p.FloatY = lerp(p.FloatY, t.FloatY, smoothing(r.Float, dt, r.FrameRef))

	p.EyeOpen = t.Aperture()

	p.Time = t.Time
	p.BreathPhase = t.BreathPhase
	p.NextBlinkAt = t.NextBlinkAt
	p.NextSaccadeAt = t.NextSaccadeAt
	p.SaccadeX = t.SaccadeX
	p.SaccadeY = t.SaccadeY

	return p
}

// smoothing converts a per-reference-frame rate into the fraction to cover
// over dt, so motion looks the same at any refresh rate.
func smoothing(rate float64, dt, frameRef time.Duration) float64 {
	switch {
	case dt <= 0 || rate <= 0:
		return 0
	case rate >= 1:
		return 1
	case frameRef <= 0:
		return rate
	}
	return 1 - math.Pow(1-rate, float64(dt)/float64(frameRef))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// StepsToConverge is the number of reference frames exponential smoothing at
// rate needs to shrink an error of 1 below eps.
func StepsToConverge(rate, eps float64) int {
	if rate <= 0 || eps <= 0 || eps >= 1 {
		return 0
	}
	if rate >= 1 {
		return 1
	}
	return int(math.Ceil(math.Log(eps) / math.Log(1-rate)))
}
