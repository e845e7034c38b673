// SPDX-License-Identifier: MIT
package analysis

import "forma/internal/notes"

// Defines the standard interface for components that process audio buffers.
type AudioProcessor interface {
	// Process analyzes the given audio input buffer. Implementations should be efficient as
	// this is often called from within a hotpath such as the real-time audio callback.
	Process(inputBuffer []int32)
}

// ClosableProcessor combines AudioProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	AudioProcessor
	Close() error // Close releases any resources held by the processor.
}

// SpectrumProvider exposes the latest power spectrum. It decouples note aggregation
// and publishers from the concrete FFT implementation.
type SpectrumProvider interface {
	PowerSpectrumInto(dest []float64) error // Copies the latest power spectrum without allocating.
	FrequencyForBin(binIndex int) float64   // Centre frequency (Hz) of a power-spectrum bin.
	BufferSize() int                        // Analysis window size in samples.
	SampleRate() float64                    // Sample rate used for the analysis.
}

// FrameSink receives one amplitude map per analysed buffer. Implementations must not
// block: PostFrame is called from the audio callback and returns false when the frame
// was dropped.
type FrameSink interface {
	PostFrame(m notes.AmplitudeMap) bool
}

// FrameObserver is notified synchronously after each aggregation. The map is only
// valid for the duration of the call.
type FrameObserver interface {
	Observe(m *notes.AmplitudeMap)
}

// FrameSinkFunc adapts a plain function to FrameSink.
type FrameSinkFunc func(m notes.AmplitudeMap) bool

func (f FrameSinkFunc) PostFrame(m notes.AmplitudeMap) bool { return f(m) }
