// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync/atomic"

	"forma/internal/notes"
)

// NoteProcessor runs the spectrum processor and folds each power spectrum into a
// per-note amplitude map, which it hands to a FrameSink. It is the bridge between the
// audio callback and the visual session.
type NoteProcessor struct {
	spectrum  *SpectrumProcessor
	sink      FrameSink
	observers []FrameObserver

	power   []float64          // Pre-allocated copy of the latest power spectrum.
	table   notes.AmplitudeMap // Reused aggregation target.
	frames  atomic.Uint64      // Frames aggregated.
	dropped atomic.Uint64      // Frames the sink refused.
}

var _ ClosableProcessor = (*NoteProcessor)(nil)

// NewNoteProcessor wires a spectrum processor to a sink. Observers run synchronously
// after each aggregation, before the frame is posted.
func NewNoteProcessor(spectrum *SpectrumProcessor, sink FrameSink, observers ...FrameObserver) (*NoteProcessor, error) {
	if spectrum == nil {
		return nil, fmt.Errorf("NoteProcessor: spectrum processor cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("NoteProcessor: frame sink cannot be nil")
	}
	return &NoteProcessor{
		spectrum:  spectrum,
		sink:      sink,
		observers: observers,
		power:     make([]float64, spectrum.Bins()),
	}, nil
}

// Process analyses one buffer. Performance critical: no allocations, no blocking.
func (p *NoteProcessor) Process(inputBuffer []int32) {
	if err := p.spectrum.ProcessInto(inputBuffer, p.power); err != nil {
		logger.Errorf("NoteProcessor: %v", err)
		return
	}

	notes.AggregateInto(&p.table, p.power, p.spectrum.SampleRate())
	p.frames.Add(1)

	for _, o := range p.observers {
		o.Observe(&p.table)
	}

	if !p.sink.PostFrame(p.table) {
		p.dropped.Add(1)
	}
}

// Stats returns the number of aggregated and dropped frames.
func (p *NoteProcessor) Stats() (frames, dropped uint64) {
	return p.frames.Load(), p.dropped.Load()
}

// Close releases the underlying spectrum processor.
func (p *NoteProcessor) Close() error {
	frames, dropped := p.Stats()
	logger.Infof("NoteProcessor: closing after %d frames (%d dropped)", frames, dropped)
	return p.spectrum.Close()
}
