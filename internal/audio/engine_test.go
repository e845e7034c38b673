// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestNewEngineRequiresDependencies(t *testing.T) {
	if _, err := NewEngine(nil, &captureProcessor{}); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewEngine(testConfig(1), nil); err == nil {
		t.Error("expected error for nil processor")
	}
}

func TestProcessBufferMono(t *testing.T) {
	proc := &captureProcessor{}
	e, err := NewEngine(testConfig(1), proc)
	if err != nil {
		t.Fatal(err)
	}

	e.processInputStream(testBuffer)
	if proc.count() != 1 {
		t.Fatalf("processor saw %d buffers, want 1", proc.count())
	}
	if got := proc.buffers[0]; len(got) != testFrameSize || got[100] != testBuffer[100] {
		t.Error("mono buffer not passed through unchanged")
	}
}

func TestProcessBufferFirstChannel(t *testing.T) {
	proc := &captureProcessor{}
	e, err := NewEngine(testConfig(2), proc)
	if err != nil {
		t.Fatal(err)
	}

	interleaved := make([]int32, testFrameSize*2)
	for i := range testFrameSize {
		interleaved[2*i] = testBuffer[i]
		interleaved[2*i+1] = -1 // Ignored channel.
	}
	e.processInputStream(interleaved)

	if proc.count() != 1 {
		t.Fatalf("processor saw %d buffers, want 1", proc.count())
	}
	got := proc.buffers[0]
	if len(got) != testFrameSize {
		t.Fatalf("mono buffer has %d samples", len(got))
	}
	for i, s := range got {
		if s != testBuffer[i] {
			t.Fatalf("sample %d = %d, want %d", i, s, testBuffer[i])
		}
	}
}

func TestProcessBufferShortCallbackPadsSilence(t *testing.T) {
	proc := &captureProcessor{}
	e, _ := NewEngine(testConfig(2), proc)

	short := make([]int32, 20)
	for i := range short {
		short[i] = 1 << 30
	}
	e.processInputStream(short)

	got := proc.buffers[0]
	if got[9] != 1<<30 || got[10] != 0 || got[testFrameSize-1] != 0 {
		t.Errorf("short buffer not padded: %d %d %d", got[9], got[10], got[testFrameSize-1])
	}
}

func TestProcessBufferGated(t *testing.T) {
	proc := &captureProcessor{}
	cfg := testConfig(1)
	cfg.Audio.GateThreshold = 0.1
	e, _ := NewEngine(cfg, proc)

	e.processInputStream(quietBuffer)
	if proc.count() != 0 || e.Gated() != 1 {
		t.Errorf("quiet buffer reached processor (count %d, gated %d)", proc.count(), e.Gated())
	}

	e.Gate().Disable()
	e.processInputStream(quietBuffer)
	if proc.count() != 1 {
		t.Error("disabled gate blocked a buffer")
	}
}

func TestEngineStartStop(t *testing.T) {
	cfg := testConfig(1)
	cfg.Audio.InputDevice, cfg.Audio.FallbackDevice = 3, -1

	e, _ := NewEngine(cfg, &captureProcessor{})
	fd := &fakeDevices{
		streams: map[int]*fakeStream{-1: {}},
		openErr: map[int]error{3: portaudio.DeviceUnavailable},
	}
	e.attacher = newAttacher(fd.open)

	if err := e.Stop(); err != nil {
		t.Errorf("Stop() on idle engine = %v", err)
	}
	state, err := e.Start()
	if err != nil || state != AttachedViaFallback || e.State() != AttachedViaFallback {
		t.Fatalf("Start() = %s, %v", state, err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if e.State() != Unattached || !fd.streams[-1].closed {
		t.Error("Close did not release the stream")
	}
}

func TestEngineStartFailure(t *testing.T) {
	e, _ := NewEngine(testConfig(1), &captureProcessor{})
	boom := errors.New("host error")
	e.attacher = newAttacher(func(int) (inputStream, error) { return nil, boom })

	if _, err := e.Start(); !errors.Is(err, boom) {
		t.Errorf("Start() = %v, want wrapped host error", err)
	}
}

// TestNoiseGateHotPath checks the gate and mono extraction allocate nothing.
func TestNoiseGateHotPath(t *testing.T) {
	e, _ := NewEngine(testConfig(2), nopProcessor{})
	buffer := make([]int32, testFrameSize*2)
	for i := range buffer {
		buffer[i] = int32((i % 100) * 10000000)
	}

	allocs := testing.AllocsPerRun(100, func() {
		e.processBuffer(buffer)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in noise gate hot path, got %.1f", allocs)
	}
}

type nopProcessor struct{}

func (nopProcessor) Process([]int32) {}

func BenchmarkHotPath(b *testing.B) {
	e, _ := NewEngine(testConfig(2), nopProcessor{})
	buffer := make([]int32, testFrameSize*2)
	for i := range buffer {
		buffer[i] = int32((i % 100) * 10000000)
	}

	b.ReportAllocs()
	for b.Loop() {
		e.processInputStream(buffer)
	}
}
