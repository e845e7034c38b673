// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"forma/internal/analysis"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PCM is a decoded mono signal scaled to full-range int32 samples, the same
// representation the capture callback delivers.
type PCM struct {
	SampleRate float64
	Samples    []int32
}

// Duration returns the signal length in seconds.
func (p *PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / p.SampleRate
}

// DecodeFile reads a WAV or MP3 file, chosen by extension, and downmixes it to mono.
func DecodeFile(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func decodeWAV(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := max(int(dec.NumChans), 1)
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("invalid WAV bit depth %d", bitDepth)
	}
	shift := 32 - bitDepth
	// 8-bit WAV is unsigned around 128.
	var bias int64
	if bitDepth == 8 {
		bias = 128
	}

	frames := len(buf.Data) / channels
	pcm := &PCM{SampleRate: float64(dec.SampleRate), Samples: make([]int32, frames)}
	for i := range frames {
		var sum int64
		for c := range channels {
			sum += int64(buf.Data[i*channels+c])
		}
		pcm.Samples[i] = int32((sum/int64(channels) - bias) << shift)
	}
	return pcm, nil
}

// decodeMP3 expects go-mp3's fixed output: 16-bit little-endian stereo.
func decodeMP3(r io.Reader) (*PCM, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	const frameBytes = 4
	frames := len(raw) / frameBytes
	pcm := &PCM{SampleRate: float64(dec.SampleRate()), Samples: make([]int32, frames)}
	for i := range frames {
		b := raw[i*frameBytes:]
		left := int32(int16(uint16(b[0]) | uint16(b[1])<<8))
		right := int32(int16(uint16(b[2]) | uint16(b[3])<<8))
		pcm.Samples[i] = ((left + right) / 2) << 16
	}
	return pcm, nil
}

// Feed passes the signal to proc in consecutive buffers of size samples, padding
// the last partial buffer with silence. gate may be nil. It returns the number of
// buffers that reached proc.
func (p *PCM) Feed(proc analysis.AudioProcessor, size int, gate *Gate) int {
	if size <= 0 {
		return 0
	}
	buf := make([]int32, size)
	fed := 0
	for off := 0; off < len(p.Samples); off += size {
		n := copy(buf, p.Samples[off:])
		clear(buf[n:])
		if gate != nil && !gate.Open(buf) {
			continue
		}
		proc.Process(buf)
		fed++
	}
	return fed
}
