package rig

import (
	"math"
	"math/rand"
	"time"
)

// schedule is the timer state behind blinks, saccades, brow twitches and the
// breathing/float phases. It only moves forward with the clock.
type schedule struct {
	started bool
	last    time.Time
	elapsed float64

	breathPhase float64
	floatPhase  float64

	blinking   bool
	blinkStart time.Time
	nextBlink  time.Time

	nextSaccade time.Time
	gazeX       float64
	gazeY       float64

	nextTwitch time.Time
	twitch     float64

	asleep bool
}

// advance moves the schedule to now and returns the continuous time step in
// seconds. A regressed clock or a jump beyond the stall gap re-arms every
// timer and yields a zero step.
func (s *schedule) advance(now time.Time, tn *Tuning, rng *rand.Rand) float64 {
	if !s.started {
		s.started = true
		s.last = now
		s.rearm(now, tn, rng)
		s.nextSaccade = now
		return 0
	}

	gap := now.Sub(s.last)
	s.last = now
	if gap < 0 || gap > tn.StallGap {
		s.rearm(now, tn, rng)
		return 0
	}
	if tn.MaxStep > 0 && gap > tn.MaxStep {
		gap = tn.MaxStep
	}
	step := gap.Seconds()
	s.elapsed += step
	return step
}

func (s *schedule) rearm(now time.Time, tn *Tuning, rng *rand.Rand) {
	s.blinking = false
	s.nextBlink = now.Add(randomDuration(rng, tn.BlinkGapMin, tn.BlinkGapMax))
	s.nextSaccade = now.Add(randomDuration(rng, tn.SaccadeGapMin, tn.SaccadeGapMax))
	s.nextTwitch = now.Add(tn.TwitchInterval)
}

func (s *schedule) advancePhases(step, breathRate, floatRate float64) {
	s.breathPhase = math.Mod(s.breathPhase+breathRate*step, 2*math.Pi)
	s.floatPhase = math.Mod(s.floatPhase+floatRate*step, 2*math.Pi)
}

// blink returns the closure of the current blink pulse in [0,1].
func (s *schedule) blink(now time.Time, tn *Tuning, rng *rand.Rand) float64 {
	if !s.blinking {
		if now.Before(s.nextBlink) {
			return 0
		}
		s.blinking = true
		s.blinkStart = now
	}

	p := float64(now.Sub(s.blinkStart)) / float64(tn.BlinkDuration)
	if tn.BlinkDuration <= 0 || p >= 1 {
		s.blinking = false
		s.nextBlink = now.Add(randomDuration(rng, tn.BlinkGapMin, tn.BlinkGapMax))
		return 0
	}
	return math.Sin(p * math.Pi)
}

// saccade picks a new gaze target once the interval has elapsed. While
// centered the new target is the center.
func (s *schedule) saccade(now time.Time, centered bool, tn *Tuning, rng *rand.Rand) {
	if now.Before(s.nextSaccade) {
		return
	}
	if centered {
		s.gazeX, s.gazeY = 0, 0
	} else {
		s.gazeX = (rng.Float64()*2 - 1) * tn.SaccadeRangeX
		s.gazeY = (rng.Float64()*2 - 1) * tn.SaccadeRangeY
	}
	s.nextSaccade = now.Add(randomDuration(rng, tn.SaccadeGapMin, tn.SaccadeGapMax))
}

func (s *schedule) microTwitch(now time.Time, tn *Tuning, rng *rand.Rand) float64 {
	if !now.Before(s.nextTwitch) {
		s.twitch = (rng.Float64()*2 - 1) * tn.TwitchAmplitude
		s.nextTwitch = now.Add(tn.TwitchInterval)
	}
	return s.twitch
}

// sleep parks the timers while asleep and re-arms them relative to now on
// waking, so a long nap never replays a backlog of blinks.
func (s *schedule) sleep(asleep bool, now time.Time, tn *Tuning, rng *rand.Rand) {
	if asleep == s.asleep {
		return
	}
	s.asleep = asleep
	if asleep {
		s.blinking = false
		s.twitch = 0
		return
	}
	s.rearm(now, tn, rng)
}

func randomDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Float64()*float64(max-min))
}
