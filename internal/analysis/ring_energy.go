package analysis

import (
	"strconv"
	"time"

	"forma/internal/notes"
	"forma/internal/transport"
)

// RingEnergyProcessor summarises each amplitude map as one energy value per octave
// ring and sends it over a transport. Sends are rate limited so a slow transport
// never sees every analysis frame.
type RingEnergyProcessor struct {
	transport   transport.Transport
	minInterval time.Duration
	lastSent    time.Time
	scale       float64
	now         func() time.Time
}

var _ FrameObserver = (*RingEnergyProcessor)(nil)

// NewRingEnergyProcessor creates a ring summary publisher. bufferSize sets the
// normalisation: a ring whose energy reaches bufferSize reads as 1.
func NewRingEnergyProcessor(t transport.Transport, bufferSize int, minInterval time.Duration) *RingEnergyProcessor {
	if t == nil {
		logger.Warnf("RingEnergyProcessor: nil transport, summaries will be discarded")
	}
	if bufferSize <= 0 {
		bufferSize = 2048
	}
	logger.Infof("Initializing RingEnergyProcessor with %d rings (interval %s).", notes.NumOctaves, minInterval)
	return &RingEnergyProcessor{
		transport:   t,
		minInterval: minInterval,
		scale:       1 / float64(bufferSize),
		now:         time.Now,
	}
}

// Observe implements FrameObserver.
func (p *RingEnergyProcessor) Observe(m *notes.AmplitudeMap) {
	if p.transport == nil {
		return
	}
	now := p.now()
	if now.Sub(p.lastSent) < p.minInterval {
		return
	}
	p.lastSent = now

	energy := m.RingLevels(p.scale)
	data := map[string]any{"type": "ring_energy"}
	for octave, e := range energy {
		data[strconv.Itoa(octave)] = e
	}

	if err := p.transport.Send(data); err != nil {
		logger.Warnf("RingEnergyProcessor: Error sending ring energy data: %v", err)
	}
}
