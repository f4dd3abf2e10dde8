// Package engine implements the real-time core of the soluna sequencer: a
// synth graph rendering the currently live voices, a look-ahead scheduler
// converting scene snapshots into precisely timed voice triggers, and the
// Engine facade tying them to an audio backend.
package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/soluna-audio/soluna"
)

// schumannFreq is the carrier frequency of the global amplitude modulation
// bus, the fundamental Schumann resonance.
const schumannFreq = 7.83

// gainSmoothingTime is the time constant of the master gain smoothing, so
// that whole-scene replacements do not step the gain audibly.
const gainSmoothingTime = 0.1

type (
	// synth is the audio graph: it owns the live voices, the master gain
	// stage, the Schumann modulation bus and the analyzer tap, and renders
	// them into the backend's pull buffers. The rendered-sample count is
	// the audio clock the scheduler runs against.
	//
	// The voice set is mutated from the scheduler goroutine (triggers,
	// forced stops) and the render goroutine (natural completions), so all
	// access goes through mu. Natural completion and forced stop converge
	// on the same removal path.
	synth struct {
		mu     sync.Mutex
		voices map[uint64]*voice
		nextID uint64

		// marks are pending step notifications, ordered by sample time.
		// When rendering crosses a mark, its step index is sent to steps,
		// so notifications coincide with the step's audible onset.
		marks []stepMark
		steps chan int

		clock atomic.Int64 // samples rendered since creation

		gain       float64
		gainTarget float64
		gainAlpha  float64

		schumannDepth float64
		schumannPhase float64

		analyzer *Analyzer
	}

	stepMark struct {
		sample int64
		step   int
	}
)

func newSynth() *synth {
	return &synth{
		voices:    make(map[uint64]*voice),
		steps:     make(chan int, 64),
		gainAlpha: 1 - math.Exp(-1/(gainSmoothingTime*soluna.SampleRate)),
		analyzer:  newAnalyzer(),
	}
}

// Now returns the audio clock in seconds: the number of samples rendered so
// far divided by the sample rate. Safe to call from any goroutine.
func (s *synth) Now() float64 {
	return float64(s.clock.Load()) / soluna.SampleRate
}

// ReadAudio implements soluna.AudioSource. It always fills the whole buffer;
// silence is a valid, frequent output.
func (s *synth) ReadAudio(buf soluna.AudioBuffer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clock := s.clock.Load()
	for i := range buf {
		for len(s.marks) > 0 && s.marks[0].sample <= clock {
			trySend(s.steps, s.marks[0].step)
			s.marks = s.marks[1:]
		}
		var sum float64
		for id, v := range s.voices {
			sum += v.render(clock)
			if v.finished(clock) {
				s.removeVoiceLocked(id)
			}
		}
		s.gain += (s.gainTarget - s.gain) * s.gainAlpha
		sum *= s.gain * s.schumannNext()
		out := float32(sum)
		buf[i] = [2]float32{out, out}
		clock++
	}
	s.clock.Store(clock)
	s.analyzer.push(buf)
	return len(buf), nil
}

// schumannNext advances the modulation bus by one sample and returns the
// amplitude multiplier, in [1-depth, 1]. Depth 0 bypasses the bus.
func (s *synth) schumannNext() float64 {
	if s.schumannDepth <= 0 {
		return 1
	}
	m := 1 - s.schumannDepth*(0.5-0.5*math.Sin(2*math.Pi*s.schumannPhase))
	s.schumannPhase += schumannFreq / soluna.SampleRate
	if s.schumannPhase >= 1 {
		s.schumannPhase--
	}
	return m
}

func (s *synth) setGainTarget(gain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		return
	}
	s.gainTarget = gain
}

func (s *synth) setSchumannDepth(depth float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(depth) || math.IsInf(depth, 0) {
		return
	}
	s.schumannDepth = depth
}

// stopAll force-terminates every live voice and drops the pending step
// notifications. This is the immediate, non-graceful cancellation used by
// the scheduler's stop; it shares the removal path with natural completion.
func (s *synth) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.voices {
		s.removeVoiceLocked(id)
	}
	s.marks = nil
}

func (s *synth) removeVoiceLocked(id uint64) {
	delete(s.voices, id)
}

func (s *synth) liveVoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

func (s *synth) addMarkLocked(sample int64, step int) {
	i := len(s.marks)
	for i > 0 && s.marks[i-1].sample > sample {
		i--
	}
	s.marks = append(s.marks, stepMark{})
	copy(s.marks[i+1:], s.marks[i:])
	s.marks[i] = stepMark{sample: sample, step: step}
}

// drainSteps discards step notifications queued from a previous run, so a
// fresh start does not replay stale indices to the new callback.
func (s *synth) drainSteps() {
	for {
		select {
		case <-s.steps:
		default:
			return
		}
	}
}

// trySend is a helper function to send a value to a channel if it is not
// full. It is guaranteed to be non-blocking. Returns true if the value was
// sent, false otherwise.
func trySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
