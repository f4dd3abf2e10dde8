package engine

import (
	"math"

	"github.com/soluna-audio/soluna"
)

const (
	// voiceEpsilon is the amplitude below which a voice is not worth
	// scheduling at all; skipping inaudible voices keeps long-running
	// sessions from accumulating near-silent live resources.
	voiceEpsilon = 0.001

	// attackTime is the length of the linear attack ramp, in seconds.
	attackTime = 0.01

	// decayFraction is the portion of a step's duration over which the
	// envelope decays exponentially toward envFloor.
	decayFraction = 0.8

	// envFloor is the near-zero level the decay ramps toward.
	envFloor = 0.001

	// releaseMargin is how long after the decay completes a voice is kept
	// before it is released, in seconds.
	releaseMargin = 0.1
)

// voice is one sound-producing unit: an oscillator with a two-stage
// amplitude envelope and a bounded lifetime measured on the sample clock.
type voice struct {
	freq float64
	wave soluna.Waveform
	amp  float64

	start     int64 // first audible sample, includes the phase offset
	attackEnd int64
	end       int64 // release point; the voice is removed past this

	level     float64 // current decay level, starts at amp
	decayCoef float64 // per-sample multiplier of the exponential decay
	phase     float64
}

// render returns the voice's sample at the given clock position and advances
// its oscillator and envelope state.
func (v *voice) render(clock int64) float64 {
	if clock < v.start {
		return 0
	}
	var env float64
	if clock < v.attackEnd {
		env = v.amp * float64(clock-v.start) / float64(v.attackEnd-v.start)
	} else {
		v.level *= v.decayCoef
		env = v.level
	}
	out := oscSample(v.wave, v.phase) * env
	v.phase += v.freq / soluna.SampleRate
	if v.phase >= 1 {
		v.phase--
	}
	return out
}

func (v *voice) finished(clock int64) bool {
	return clock >= v.end
}

func oscSample(w soluna.Waveform, phase float64) float64 {
	switch w {
	case soluna.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case soluna.Sawtooth:
		return 2*phase - 1
	case soluna.Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// triggerStep builds the voices of one step, anchored at the given time on
// the audio clock. The step notification mark is added unconditionally, even
// for disabled steps, so the transport position stays observable whether or
// not sound occurs. Disabled steps and steps with non-positive gain schedule
// zero voices. Each layer is scheduled independently: one unusable layer
// never prevents the others from sounding.
func (s *synth) triggerStep(step int, when float64, scene *soluna.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addMarkLocked(int64(when*soluna.SampleRate), step)
	if step < 0 || step >= len(scene.Steps) {
		return
	}
	st := &scene.Steps[step]
	if !st.Enabled || st.StepGain <= 0 {
		return
	}
	dur := soluna.StepDuration(scene.Tempo)
	if dur <= 0 {
		return
	}
	for i := range scene.HarmonicLayers {
		l := &scene.HarmonicLayers[i]
		if l.Gain <= 0 {
			continue
		}
		amp := st.StepGain * l.Gain * l.Gate(step)
		if math.IsNaN(amp) || math.IsInf(amp, 0) || amp <= voiceEpsilon {
			continue
		}
		freq := st.BaseFrequency * l.Ratio
		if math.IsNaN(freq) || freq <= 0 || freq >= soluna.SampleRate/2 {
			continue
		}
		start := int64((when + st.PhaseOffset(l.ID)*dur) * soluna.SampleRate)
		attack := int64(attackTime * soluna.SampleRate)
		if attack < 1 {
			attack = 1
		}
		decay := decayFraction * dur * soluna.SampleRate
		if decay < 1 {
			decay = 1
		}
		s.nextID++
		s.voices[s.nextID] = &voice{
			freq:      freq,
			wave:      l.Waveform,
			amp:       amp,
			start:     start,
			attackEnd: start + attack,
			end:       start + attack + int64(decay) + int64(releaseMargin*soluna.SampleRate),
			level:     amp,
			decayCoef: math.Pow(envFloor/amp, 1/decay),
		}
	}
}
