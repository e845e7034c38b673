// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"forma/internal/notes"
	"forma/internal/visual"
)

// NoDominant marks the class byte when the scene has no dominant note.
const NoDominant = 0xFF

const headerSize = 4 + 8 + 1 + 1 + 1 + 2

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Visible           | uint8          | 1            | 1 shown, 0 hidden       |
| Dominant Class    | uint8          | 1            | 0..11, 0xFF for none    |
| Dominant Octave   | uint8          | 1            | 0..7                    |
| Cell Count        | uint16         | 2            | Number of floats (96)   |
| Weights           | []float32      | N * 4        | Octave-major note table |
+-----------------------------------------------------------------------------+
*/

// Packet is a decoded datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Visible   bool
	Dominant  notes.Key
	HasNote   bool
	Weights   []float32
}

// UDPPublisher keeps the latest scene it was asked to draw and sends its note
// table at a fixed interval from its own goroutine.
type UDPPublisher struct {
	sender   PacketSender
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Closed to stop the publisher goroutine.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	snapMu   sync.Mutex
	weights  [notes.TableSize]float32
	visible  bool
	dominant notes.Key
	hasNote  bool
	fresh    bool // A scene arrived since the last packet.

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // Reused for every packet.
	now          func() time.Time
}

// NewUDPPublisher creates a publisher. An interval <= 0 defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		logger.Warnf("Publisher: invalid interval provided, defaulting to %s", interval)
	}

	logger.Infof("Publisher: initializing (interval %s, %d cells)", interval, notes.TableSize)
	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		visible:      true,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, headerSize+notes.TableSize*4)),
		now:          time.Now,
	}, nil
}

// Draw implements visual.Surface by snapshotting the scene's table.
func (p *UDPPublisher) Draw(scene *visual.Scene) error {
	p.snapMu.Lock()
	defer p.snapMu.Unlock()
	for i, w := range scene.Table {
		p.weights[i] = float32(w)
	}
	p.visible = scene.Visible
	p.hasNote = scene.Dominant != nil
	if p.hasNote {
		p.dominant = scene.Dominant.Key
	}
	p.fresh = true
	return nil
}

// Start launches the sending goroutine. Calling Start while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Infof("Publisher: goroutine started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				logger.Infof("Publisher: goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it to exit. Safe to call repeatedly.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Infof("Publisher: stopped after %d packets.", p.sequenceNum)
	return nil
}

// buildAndSendPacket sends the latest snapshot. Nothing is sent until the first
// scene arrives, and an unchanged snapshot is not resent.
func (p *UDPPublisher) buildAndSendPacket() {
	p.snapMu.Lock()
	if !p.fresh {
		p.snapMu.Unlock()
		return
	}
	p.fresh = false
	p.sequenceNum++
	err := p.pack(p.sequenceNum, p.now().UnixNano())
	p.snapMu.Unlock()

	if err != nil {
		logger.Errorf("Publisher: error packing data into binary buffer: %v", err)
		return
	}
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		logger.Debugf("Publisher: sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// pack writes one packet into packetBuffer. Callers hold snapMu.
func (p *UDPPublisher) pack(seq uint32, timestamp int64) error {
	class, octave := uint8(NoDominant), uint8(0)
	if p.hasNote {
		class, octave = uint8(p.dominant.Class), uint8(p.dominant.Octave)
	}
	var visible uint8
	if p.visible {
		visible = 1
	}

	p.packetBuffer.Reset()
	header := []any{seq, timestamp, visible, class, octave, uint16(notes.TableSize)}
	for _, field := range header {
		if err := binary.Write(p.packetBuffer, binary.BigEndian, field); err != nil {
			return err
		}
	}
	return binary.Write(p.packetBuffer, binary.BigEndian, p.weights[:])
}

// DecodePacket parses a datagram produced by UDPPublisher.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(data))
	}
	var pkt Packet
	r := bytes.NewReader(data)
	var visible, class, octave uint8
	var count uint16
	for _, field := range []any{&pkt.Seq, &pkt.Timestamp, &visible, &class, &octave, &count} {
		if err := binary.Read(r, binary.BigEndian, field); err != nil {
			return Packet{}, err
		}
	}
	if r.Len() != int(count)*4 {
		return Packet{}, fmt.Errorf("packet declares %d cells but carries %d bytes", count, r.Len())
	}
	pkt.Weights = make([]float32, count)
	if err := binary.Read(r, binary.BigEndian, pkt.Weights); err != nil {
		return Packet{}, err
	}
	pkt.Visible = visible == 1
	if class != NoDominant {
		pkt.Dominant = notes.Key{Class: notes.PitchClass(class), Octave: int(octave)}
		if !pkt.Dominant.Valid() {
			return Packet{}, errors.New("packet carries an invalid dominant note")
		}
		pkt.HasNote = true
	}
	return pkt, nil
}

// Close stops the publisher and closes the sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ visual.Surface = (*UDPPublisher)(nil)
