package soluna

// DefaultScene returns the scene the engine starts from before any preset or
// file has been loaded: four harmonic layers over a 432 Hz root, all sixteen
// steps enabled at full step gain, with a gentle fractal gate on the upper
// partials.
func DefaultScene() Scene {
	steps := make([]StepSettings, NumSteps)
	for i := range steps {
		steps[i] = StepSettings{
			Enabled:       true,
			BaseFrequency: 432,
			StepGain:      1,
		}
	}
	return Scene{
		Tempo:         72,
		MasterGain:    0.8,
		RootFrequency: 432,
		SchumannDepth: 0.2,
		HarmonicLayers: []HarmonicLayer{
			{ID: "fundamental", Label: "Fundamental", Ratio: 1, Waveform: Sine, Gain: 0.9, GatingMode: GatingNone},
			{ID: "octave", Label: "Octave", Ratio: 2, Waveform: Sine, Gain: 0.5, GatingMode: GatingFractal,
				FractalPattern: []float64{1, 0.5, 0.25, 0.5}},
			{ID: "fifth", Label: "Perfect Fifth", Ratio: 3, Waveform: Triangle, Gain: 0.35, GatingMode: GatingFractal,
				FractalPattern: []float64{1, 0.5, 0.25, 0.125}},
			{ID: "shimmer", Label: "Shimmer", Ratio: 4, Waveform: Sine, Gain: 0.2, GatingMode: GatingFractal,
				FractalPattern: []float64{1, 0, 0.5, 0, 0.25, 0, 0.5, 0}},
		},
		Steps: steps,
		Meta:  SceneMeta{Name: "Default"},
	}
}
