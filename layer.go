package soluna

import "math"

// Waveform is the oscillator shape of a harmonic layer. Always in lowercase;
// unknown values are rejected by Scene.Validate.
type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
	Triangle Waveform = "triangle"
)

// GatingMode selects how a layer's per-step amplitude multiplier is derived:
// GatingNone means a constant 1.0, GatingFractal cycles through the layer's
// FractalPattern.
type GatingMode string

const (
	GatingNone    GatingMode = "none"
	GatingFractal GatingMode = "fractal"
)

// HarmonicLayer is one overtone voice definition. Layers are a fixed-size
// list owned by the Scene; they are edited in place by presets or field
// edits but never created or deleted at runtime.
type HarmonicLayer struct {
	// ID is the stable identity of the layer, used as the key for per-step
	// phase offset lookups. Label is display only.
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`

	// Ratio is the positive multiplier applied to a step's base frequency;
	// the layer sounds at baseFrequency * Ratio.
	Ratio float64 `yaml:"ratio" json:"ratio"`

	Waveform Waveform `yaml:"waveform" json:"waveform"`

	// Gain is the amplitude scale of the layer, nominally in [0,1]. The
	// core does not clamp it; callers are expected to supply valid ranges.
	Gain float64 `yaml:"gain" json:"gain"`

	GatingMode GatingMode `yaml:"gatingMode" json:"gatingMode"`

	// FractalPattern is cyclically indexed by step number modulo its
	// length. An empty pattern is treated as [1.0] by Gate.
	FractalPattern []float64 `yaml:"fractalPattern,flow,omitempty" json:"fractalPattern,omitempty"`
}

// Copy makes a deep copy of a HarmonicLayer.
func (l *HarmonicLayer) Copy() HarmonicLayer {
	pattern := make([]float64, len(l.FractalPattern))
	copy(pattern, l.FractalPattern)
	ret := *l
	ret.FractalPattern = pattern
	return ret
}

// Gate returns the amplitude multiplier of the layer at the given step
// index. It is pure and stateless, safe to call from any goroutine. Pattern
// values are clamped to >= 0 and non-finite values are coerced to 0, as a
// NaN or negative amplitude would corrupt the audio graph downstream.
func (l *HarmonicLayer) Gate(step int) float64 {
	if l.GatingMode != GatingFractal {
		return 1
	}
	p := l.FractalPattern
	if len(p) == 0 {
		return 1
	}
	v := p[((step%len(p))+len(p))%len(p)]
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
