// Package soluna contains the domain types of the soluna harmonic sequencer:
// scenes, harmonic layers and step settings. The types are pure values with
// no dependencies to the audio engine; the engine package consumes immutable
// snapshots of them.
package soluna

import (
	"errors"
	"fmt"
)

// NumSteps is the number of slots in the sequence grid. The grid is fixed
// size: scenes always carry exactly NumSteps steps and the playback cursor
// wraps modulo NumSteps.
const NumSteps = 16

// SampleRate is the sample rate of the whole audio path. Like the rest of
// the engine math, it is fixed at 44100 Hz.
const SampleRate = 44100

type (
	// Scene is the complete serializable configuration driving playback:
	// the harmonic layers, the 16 step slots, tempo and gains. The engine
	// holds the authoritative snapshot; every other component works on
	// copies and updates happen by whole-object replacement, never by
	// in-place field mutation.
	Scene struct {
		Tempo          int             `yaml:"tempoBpm" json:"tempoBpm"`
		MasterGain     float64         `yaml:"masterGain" json:"masterGain"`
		RootFrequency  float64         `yaml:"rootFrequency" json:"rootFrequency"`
		SchumannDepth  float64         `yaml:"schumannDepth" json:"schumannDepth"`
		HarmonicLayers []HarmonicLayer `yaml:"harmonicLayers" json:"harmonicLayers"`
		Steps          []StepSettings  `yaml:"steps" json:"steps"`
		Meta           SceneMeta       `yaml:"meta,omitempty" json:"meta"`
	}

	// SceneMeta is display-only metadata carried along in scene files.
	SceneMeta struct {
		Name        string `yaml:"name,omitempty" json:"name,omitempty"`
		Description string `yaml:"description,omitempty" json:"description,omitempty"`
		Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	}
)

// StepDuration returns the length of one grid step in seconds. The grid is
// treated as sixteenth notes at the given BPM, so the canonical relationship
// is (60/tempo)/4. Tempos <= 0 return 0; callers are expected to have
// validated the scene before asking for timing.
func StepDuration(tempo int) float64 {
	if tempo <= 0 {
		return 0
	}
	return 60.0 / float64(tempo) / 4
}

// Copy makes a deep copy of a Scene.
func (s *Scene) Copy() Scene {
	layers := make([]HarmonicLayer, len(s.HarmonicLayers))
	for i, l := range s.HarmonicLayers {
		layers[i] = l.Copy()
	}
	steps := make([]StepSettings, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = st.Copy()
	}
	ret := *s
	ret.HarmonicLayers = layers
	ret.Steps = steps
	return ret
}

// Validate checks if the Scene looks like a valid scene: positive tempo,
// exactly NumSteps steps, positive layer ratios and known enum values.
// PhaseOffsets keys referring to unknown layers are harmless and deliberately
// not an error; the voice trigger just ignores them.
func (s *Scene) Validate() error {
	if s.Tempo < 1 {
		return errors.New("tempo should be > 0")
	}
	if len(s.Steps) != NumSteps {
		return fmt.Errorf("scene should have exactly %d steps, got %d", NumSteps, len(s.Steps))
	}
	for i, l := range s.HarmonicLayers {
		if l.Ratio <= 0 {
			return fmt.Errorf("layer %d (%q) has non-positive ratio", i, l.ID)
		}
		switch l.Waveform {
		case Sine, Square, Sawtooth, Triangle:
		default:
			return fmt.Errorf("layer %d (%q) has unknown waveform %q", i, l.ID, l.Waveform)
		}
		switch l.GatingMode {
		case GatingNone, GatingFractal:
		default:
			return fmt.Errorf("layer %d (%q) has unknown gating mode %q", i, l.ID, l.GatingMode)
		}
	}
	for i, st := range s.Steps {
		if st.Enabled && st.BaseFrequency <= 0 {
			return fmt.Errorf("enabled step %d has non-positive base frequency", i)
		}
	}
	return nil
}
