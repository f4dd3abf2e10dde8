package engine

import (
	"errors"
	"math"

	"github.com/soluna-audio/soluna"
)

// RenderScene renders the given number of full 16-step cycles of the scene
// offline, through the same synth graph the realtime engine uses, and
// returns the stereo buffer. The buffer has exactly the nominal length of
// the cycles (cycles * 16 * stepDuration seconds); decay tails of the last
// step are cut at the nominal end.
func RenderScene(scene soluna.Scene, cycles int) (soluna.AudioBuffer, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	if cycles < 1 {
		return nil, errors.New("cycles should be > 0")
	}
	s := newSynth()
	s.setGainTarget(scene.MasterGain)
	s.setSchumannDepth(scene.SchumannDepth)
	s.mu.Lock()
	s.gain = scene.MasterGain // offline renders should not fade in
	s.mu.Unlock()

	snapshot := scene.Copy()
	dur := soluna.StepDuration(snapshot.Tempo)
	t := 0.0
	for i := 0; i < soluna.NumSteps*cycles; i++ {
		s.triggerStep(i%soluna.NumSteps, t, &snapshot)
		t += dur
	}

	frames := int(math.Round(t * soluna.SampleRate))
	buffer := make(soluna.AudioBuffer, 0, frames)
	chunk := make(soluna.AudioBuffer, 1024)
	for len(buffer) < frames {
		n := frames - len(buffer)
		if n > len(chunk) {
			n = len(chunk)
		}
		if _, err := s.ReadAudio(chunk[:n]); err != nil {
			return nil, err
		}
		buffer = append(buffer, chunk[:n]...)
	}
	return buffer, nil
}
