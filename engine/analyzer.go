package engine

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/maddyblue/go-dsp/fft"
	"github.com/soluna-audio/soluna"
	"github.com/viterin/vek/vek32"
)

// analyzerHistory is how many mono samples the analyzer keeps. About 190 ms
// at 44100 Hz, enough for one full spectrum window plus scope display.
const analyzerHistory = 8192

// spectrumWindow is the FFT window length. Spectrum returns up to
// spectrumWindow/2 bins.
const spectrumWindow = 2048

// Analyzer is the spectral and time-domain tap of the engine, positioned
// after the master gain stage so readings reflect the final output. All
// methods are safe for concurrent use; reading the analyzer never disturbs
// the audio path.
type Analyzer struct {
	mu     sync.Mutex
	ring   ringBuffer[float32]
	window []float32 // Hann weights for the spectrum window
	tmp    []float32
	tmp2   []float32 // vek32 destinations must not alias their inputs
}

func newAnalyzer() *Analyzer {
	window := make([]float32, spectrumWindow)
	for i := range window {
		window[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(len(window)-1)))
	}
	return &Analyzer{
		ring:   ringBuffer[float32]{buffer: make([]float32, analyzerHistory)},
		window: window,
		tmp:    make([]float32, spectrumWindow),
		tmp2:   make([]float32, spectrumWindow),
	}
}

// push feeds rendered output into the history, mixed down to mono. Called
// from the render goroutine.
func (a *Analyzer) push(buf soluna.AudioBuffer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, frame := range buf {
		a.ring.writeWrapSingle(0.5 * (frame[0] + frame[1]))
	}
}

// TimeDomain copies the most recent len(dst) mono output samples into dst,
// oldest first, and returns how many were written. dst longer than the
// history is truncated.
func (a *Analyzer) TimeDomain(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(dst) > len(a.ring.buffer) {
		dst = dst[:len(a.ring.buffer)]
	}
	a.ring.copyRecent(dst)
	return len(dst)
}

// Level returns the RMS level of the last spectrum window of output.
func (a *Analyzer) Level() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring.copyRecent(a.tmp)
	vek32.Mul_Into(a.tmp2, a.tmp, a.tmp)
	return float32(math.Sqrt(float64(vek32.Mean(a.tmp2))))
}

// Spectrum fills dst with the magnitude spectrum of the most recent window
// of output, Hann weighted, and returns the number of bins written (at most
// spectrumWindow/2). Bin k covers frequency k*SampleRate/spectrumWindow.
func (a *Analyzer) Spectrum(dst []float32) int {
	a.mu.Lock()
	a.ring.copyRecent(a.tmp)
	vek32.Mul_Inplace(a.tmp, a.window)
	x := make([]float64, spectrumWindow)
	for i, v := range a.tmp {
		x[i] = float64(v)
	}
	a.mu.Unlock()
	c := fft.FFTReal(x)
	n := len(dst)
	if n > spectrumWindow/2 {
		n = spectrumWindow / 2
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(cmplx.Abs(c[i]) * 2 / spectrumWindow)
	}
	return n
}

// ringBuffer is a fixed-size overwriting buffer; the cursor points at the
// most recently written element.
type ringBuffer[T any] struct {
	buffer []T
	cursor int
}

func (r *ringBuffer[T]) writeWrapSingle(value T) {
	r.cursor = (r.cursor + 1) % len(r.buffer)
	r.buffer[r.cursor] = value
}

// copyRecent copies the len(dst) most recent values into dst, oldest first.
func (r *ringBuffer[T]) copyRecent(dst []T) {
	n := len(r.buffer)
	for i := range dst {
		dst[len(dst)-1-i] = r.buffer[((r.cursor-i)%n+n)%n]
	}
}
