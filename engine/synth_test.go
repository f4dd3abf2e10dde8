package engine

import (
	"math"
	"testing"

	"github.com/soluna-audio/soluna"
)

func TestClockAdvancesBySamplesRendered(t *testing.T) {
	s := newSynth()
	if s.Now() != 0 {
		t.Fatalf("fresh synth clock should be 0, got %v", s.Now())
	}
	buf := make(soluna.AudioBuffer, 100)
	if n, err := s.ReadAudio(buf); n != 100 || err != nil {
		t.Fatalf("ReadAudio returned (%v, %v)", n, err)
	}
	expected := 100.0 / soluna.SampleRate
	if s.Now() != expected {
		t.Errorf("clock is %v, expected %v", s.Now(), expected)
	}
}

func TestStepMarkFiresAtItsSample(t *testing.T) {
	s := newSynth()
	s.mu.Lock()
	s.addMarkLocked(50, 3)
	s.mu.Unlock()
	s.ReadAudio(make(soluna.AudioBuffer, 50))
	select {
	case step := <-s.steps:
		t.Fatalf("mark fired early with step %v", step)
	default:
	}
	s.ReadAudio(make(soluna.AudioBuffer, 1))
	select {
	case step := <-s.steps:
		if step != 3 {
			t.Errorf("got step %v, expected 3", step)
		}
	default:
		t.Fatalf("mark did not fire at its sample")
	}
}

func TestMarksStaySorted(t *testing.T) {
	s := newSynth()
	s.mu.Lock()
	s.addMarkLocked(300, 2)
	s.addMarkLocked(100, 0)
	s.addMarkLocked(200, 1)
	s.mu.Unlock()
	s.ReadAudio(make(soluna.AudioBuffer, 301))
	for expected := 0; expected < 3; expected++ {
		select {
		case step := <-s.steps:
			if step != expected {
				t.Fatalf("got step %v, expected %v", step, expected)
			}
		default:
			t.Fatalf("mark %v did not fire", expected)
		}
	}
}

func TestTriggerStepCreatesOneVoicePerAudibleLayer(t *testing.T) {
	s := newSynth()
	scene := soluna.DefaultScene()
	s.triggerStep(0, 0, &scene)
	if got := s.liveVoiceCount(); got != len(scene.HarmonicLayers) {
		t.Errorf("got %v voices, expected %v", got, len(scene.HarmonicLayers))
	}
}

func TestTriggerStepSkipsGatedOutLayers(t *testing.T) {
	s := newSynth()
	scene := soluna.DefaultScene()
	// the shimmer layer's pattern is 0 at odd steps
	s.triggerStep(1, 0, &scene)
	if got := s.liveVoiceCount(); got != 3 {
		t.Errorf("got %v voices, expected 3", got)
	}
}

func TestTriggerStepDisabledAddsMarkButNoVoices(t *testing.T) {
	s := newSynth()
	scene := soluna.DefaultScene()
	scene.Steps[0].Enabled = false
	s.triggerStep(0, 0, &scene)
	if got := s.liveVoiceCount(); got != 0 {
		t.Errorf("got %v voices, expected none", got)
	}
	s.mu.Lock()
	marks := len(s.marks)
	s.mu.Unlock()
	if marks != 1 {
		t.Errorf("got %v marks, expected 1; disabled steps still notify", marks)
	}
}

func TestTriggerStepSkipsInaudibleAndUnplayable(t *testing.T) {
	scene := soluna.DefaultScene()
	tests := []struct {
		name   string
		mutate func(s *soluna.Scene)
	}{
		{"zero step gain", func(s *soluna.Scene) {
			for i := range s.Steps {
				s.Steps[i].StepGain = 0
			}
		}},
		{"amplitude under epsilon", func(s *soluna.Scene) {
			for i := range s.HarmonicLayers {
				s.HarmonicLayers[i].Gain = 0.0005
			}
		}},
		{"frequency above nyquist", func(s *soluna.Scene) {
			for i := range s.Steps {
				s.Steps[i].BaseFrequency = 30000
			}
		}},
		{"nan base frequency", func(s *soluna.Scene) {
			for i := range s.Steps {
				s.Steps[i].BaseFrequency = math.NaN()
			}
		}},
	}
	for _, c := range tests {
		s := newSynth()
		mutated := scene.Copy()
		c.mutate(&mutated)
		s.triggerStep(0, 0, &mutated)
		if got := s.liveVoiceCount(); got != 0 {
			t.Errorf("%s: got %v voices, expected none", c.name, got)
		}
	}
}

func TestTriggerStepAppliesPhaseOffset(t *testing.T) {
	s := newSynth()
	scene := soluna.DefaultScene()
	scene.HarmonicLayers = scene.HarmonicLayers[:1] // just the fundamental
	scene.Steps[0].PhaseOffsets = map[string]float64{"fundamental": 0.5}
	s.triggerStep(0, 0, &scene)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.voices) != 1 {
		t.Fatalf("got %v voices, expected 1", len(s.voices))
	}
	dur := soluna.StepDuration(scene.Tempo)
	expected := int64(0.5 * dur * soluna.SampleRate)
	for _, v := range s.voices {
		if v.start != expected {
			t.Errorf("voice starts at sample %v, expected %v", v.start, expected)
		}
	}
}

func TestVoiceRemovedAfterRelease(t *testing.T) {
	s := newSynth()
	scene := soluna.DefaultScene()
	scene.HarmonicLayers = scene.HarmonicLayers[:1]
	s.triggerStep(0, 0, &scene)
	if s.liveVoiceCount() != 1 {
		t.Fatalf("expected 1 voice after trigger")
	}
	dur := soluna.StepDuration(scene.Tempo)
	lifetime := attackTime + decayFraction*dur + releaseMargin
	frames := int(lifetime*soluna.SampleRate) + 2
	buf := make(soluna.AudioBuffer, 512)
	for frames > 0 {
		n := frames
		if n > len(buf) {
			n = len(buf)
		}
		s.ReadAudio(buf[:n])
		frames -= n
	}
	if got := s.liveVoiceCount(); got != 0 {
		t.Errorf("got %v voices after the release point, expected none", got)
	}
}

func TestStopAllTerminatesVoicesAndMarks(t *testing.T) {
	s := newSynth()
	scene := soluna.DefaultScene()
	s.triggerStep(0, 0, &scene)
	s.triggerStep(1, 1, &scene)
	if s.liveVoiceCount() == 0 {
		t.Fatalf("expected live voices before stopAll")
	}
	s.stopAll()
	if got := s.liveVoiceCount(); got != 0 {
		t.Errorf("got %v voices after stopAll, expected none", got)
	}
	s.mu.Lock()
	marks := len(s.marks)
	s.mu.Unlock()
	if marks != 0 {
		t.Errorf("got %v pending marks after stopAll, expected none", marks)
	}
}

func TestGainApproachesTargetSmoothly(t *testing.T) {
	s := newSynth()
	s.setGainTarget(1)
	s.ReadAudio(make(soluna.AudioBuffer, 100))
	s.mu.Lock()
	early := s.gain
	s.mu.Unlock()
	if early <= 0 || early >= 1 {
		t.Fatalf("gain after 100 samples is %v, expected a value strictly between 0 and 1", early)
	}
	for i := 0; i < soluna.SampleRate; i += 1024 {
		s.ReadAudio(make(soluna.AudioBuffer, 1024))
	}
	s.mu.Lock()
	late := s.gain
	s.mu.Unlock()
	if late < 0.999 {
		t.Errorf("gain after a second is %v, expected close to 1", late)
	}
}

func TestGainTargetRejectsNonFinite(t *testing.T) {
	s := newSynth()
	s.setGainTarget(0.8)
	s.setGainTarget(math.NaN())
	s.setGainTarget(math.Inf(1))
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gainTarget != 0.8 {
		t.Errorf("gain target is %v, expected the last finite value 0.8", s.gainTarget)
	}
}

func TestSchumannModulation(t *testing.T) {
	s := newSynth()
	if got := s.schumannNext(); got != 1 {
		t.Errorf("zero depth should bypass the bus, got %v", got)
	}
	s.setSchumannDepth(0.5)
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.schumannNext()
	if first != 0.75 {
		t.Errorf("first multiplier at depth 0.5 is %v, expected 0.75", first)
	}
	min, max := first, first
	for i := 0; i < soluna.SampleRate; i++ {
		m := s.schumannNext()
		if m < min {
			min = m
		}
		if m > max {
			max = m
		}
	}
	if min < 0.5-1e-9 || max > 1+1e-9 {
		t.Errorf("multiplier range [%v, %v], expected within [0.5, 1]", min, max)
	}
	if max-min < 0.4 {
		t.Errorf("multiplier range [%v, %v] too narrow for a full cycle", min, max)
	}
}
