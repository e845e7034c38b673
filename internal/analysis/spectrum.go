// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	applog "forma/internal/log"
	"forma/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

var logger = applog.Named("Analysis")

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
	Rectangular
)

var windowNames = map[WindowFunc]string{
	BartlettHann:    "BartlettHann",
	Blackman:        "Blackman",
	BlackmanNuttall: "BlackmanNuttall",
	Hann:            "Hann",
	Hamming:         "Hamming",
	Lanczos:         "Lanczos",
	Nuttall:         "Nuttall",
	Rectangular:     "Rectangular",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// Pre-allocated buffers for FFT calculations.
type spectrumWorkspace struct {
	input     []float64    // Buffer for windowed input signal.
	fftOutput []complex128 // Buffer for FFT complex results (N/2 + 1).
	power     []float64    // Power spectrum, N/2 bins (Nyquist dropped).
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.RWMutex // Protects concurrent access to the power buffer.
}

// SpectrumProcessor turns fixed-size audio buffers into a power spectrum: the squared
// magnitude of the windowed FFT, N/2 bins for an N-sample window. Bin i sits at
// i * sampleRate / N Hz, so the bin width equals sampleRate / (2 * len(power)).
type SpectrumProcessor struct {
	fftCalculator *fourier.FFT // Reusable FFT calculator instance.
	bufferSize    int          // Number of points for the FFT (power of 2).
	sampleRate    float64      // Sample rate of the input audio (Hz).
	windowType    WindowFunc
	workspace     spectrumWorkspace
}

// Compile-time checks for interface implementations.
var _ AudioProcessor = (*SpectrumProcessor)(nil)
var _ SpectrumProvider = (*SpectrumProcessor)(nil)
var _ ClosableProcessor = (*SpectrumProcessor)(nil)

// NewSpectrumProcessor validates the window geometry and pre-allocates every buffer
// the hot path touches.
func NewSpectrumProcessor(bufferSize int, sampleRate float64, windowType WindowFunc) (*SpectrumProcessor, error) {
	if !bitint.IsPowerOfTwo(bufferSize) || bufferSize < 2 {
		return nil, fmt.Errorf("buffer size must be a power of 2, got %d", bufferSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	windowCoeffs := make([]float64, bufferSize)
	applyWindow(windowCoeffs, windowType)

	logger.Infof("Initializing SpectrumProcessor (Size: %d, SampleRate: %.1f Hz, Window: %v)", bufferSize, sampleRate, windowType)

	return &SpectrumProcessor{
		fftCalculator: fourier.NewFFT(bufferSize),
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		windowType:    windowType,
		workspace: spectrumWorkspace{
			input:     make([]float64, bufferSize),
			fftOutput: make([]complex128, bufferSize/2+1),
			power:     make([]float64, bufferSize/2),
			window:    windowCoeffs,
		},
	}, nil
}

// Process applies the window, performs the FFT and stores the power spectrum.
func (p *SpectrumProcessor) Process(inputBuffer []int32) {
	p.workspace.mu.Lock()
	p.compute(inputBuffer)
	p.workspace.mu.Unlock()
}

// compute must be called with the workspace lock held.
func (p *SpectrumProcessor) compute(inputBuffer []int32) {
	// Normalization factor for int32 to float64 range [-1.0, 1.0).
	const normFactor = 1.0 / float64(0x80000000)

	inputLen := len(inputBuffer)
	for i := range p.bufferSize {
		if i < inputLen {
			p.workspace.input[i] = float64(inputBuffer[i]) * normFactor * p.workspace.window[i]
		} else {
			p.workspace.input[i] = 0 // Zero-padding.
		}
	}

	p.fftCalculator.Coefficients(p.workspace.fftOutput, p.workspace.input)

	for i := range p.workspace.power {
		a := cmplx.Abs(p.workspace.fftOutput[i])
		p.workspace.power[i] = a * a
	}
}

// ProcessInto runs Process and copies the result into dest under the same lock,
// so dest always matches the buffer just analysed.
func (p *SpectrumProcessor) ProcessInto(inputBuffer []int32, dest []float64) error {
	p.workspace.mu.Lock()
	defer p.workspace.mu.Unlock()

	if len(dest) != len(p.workspace.power) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dest), len(p.workspace.power))
	}
	p.compute(inputBuffer)
	copy(dest, p.workspace.power)
	return nil
}

// PowerSpectrum returns a copy of the latest power spectrum.
// NOTE: This method allocates; hot-path readers should use PowerSpectrumInto.
func (p *SpectrumProcessor) PowerSpectrum() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	out := make([]float64, len(p.workspace.power))
	copy(out, p.workspace.power)
	return out
}

// PowerSpectrumInto copies the latest power spectrum into dest, which must hold
// BufferSize()/2 values.
func (p *SpectrumProcessor) PowerSpectrumInto(dest []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dest) != len(p.workspace.power) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dest), len(p.workspace.power))
	}
	copy(dest, p.workspace.power)
	return nil
}

// FrequencyForBin returns the centre frequency (Hz) for a power-spectrum bin.
func (p *SpectrumProcessor) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(p.workspace.power) {
		return 0.0
	}
	return float64(binIndex) * (p.sampleRate / float64(p.bufferSize))
}

// Bins returns the number of power-spectrum bins (BufferSize()/2).
func (p *SpectrumProcessor) Bins() int { return p.bufferSize / 2 }

// BufferSize returns the analysis window size. Immutable after creation.
func (p *SpectrumProcessor) BufferSize() int { return p.bufferSize }

// SampleRate returns the configured sample rate (Hz). Immutable after creation.
func (p *SpectrumProcessor) SampleRate() float64 { return p.sampleRate }

// Close is a no-op; the processor holds no external resources.
func (p *SpectrumProcessor) Close() error {
	logger.Debugf("Closing SpectrumProcessor (no specific resources to release)")
	return nil
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rect", "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window funcs scale in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
	default:
		logger.Warnf("Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
