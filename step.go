package soluna

import "math"

// MaxPhaseOffset is the upper clamp for per-layer phase offsets, as a
// fraction of the step duration. Offsets are never allowed to reach a full
// step, so a layer's voice cannot slide into or past the next step.
const MaxPhaseOffset = 0.9

// StepSettings is one of the NumSteps fixed grid slots. The steps slice has
// a fixed length for the engine's lifetime; elements are replaced wholesale
// or mutated per field, never individually created or destroyed.
type StepSettings struct {
	// Enabled gates whether the step fires at all. Disabled steps are not
	// errors; they are valid, frequent, silent ticks.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// BaseFrequency is the Hz value shared by all layers at this step;
	// each layer sounds at BaseFrequency * layer.Ratio.
	BaseFrequency float64 `yaml:"baseFrequency" json:"baseFrequency"`

	// StepGain is the amplitude scale of the whole step, in [0,1].
	StepGain float64 `yaml:"stepGain" json:"stepGain"`

	// PhaseOffsets maps a layer id to a fractional delay in [0,1) of the
	// step's duration, applied only to that layer's voice start time.
	// Keys referring to unknown layers are ignored.
	PhaseOffsets map[string]float64 `yaml:"phaseOffsets,omitempty" json:"phaseOffsets,omitempty"`
}

// Copy makes a deep copy of a StepSettings.
func (s *StepSettings) Copy() StepSettings {
	ret := *s
	if s.PhaseOffsets != nil {
		offsets := make(map[string]float64, len(s.PhaseOffsets))
		for k, v := range s.PhaseOffsets {
			offsets[k] = v
		}
		ret.PhaseOffsets = offsets
	}
	return ret
}

// PhaseOffset returns the phase offset for the given layer id, clamped to
// [0, MaxPhaseOffset]. Missing entries return 0.
func (s *StepSettings) PhaseOffset(layerID string) float64 {
	f := s.PhaseOffsets[layerID]
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > MaxPhaseOffset {
		return MaxPhaseOffset
	}
	return f
}
