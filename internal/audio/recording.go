// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// RecordingName returns the file name used for a recording started at t.
func RecordingName(t time.Time) string {
	return "forma-" + t.Format("20060102-150405") + ".wav"
}

// StartRecording writes the raw input stream to filename as WAV. An empty filename
// creates a timestamped file in the configured output directory.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	rc := e.config.Recording
	if filename == "" {
		if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
		filename = filepath.Join(rc.OutputDir, RecordingName(time.Now()))
	}

	bitDepth := rc.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	channels := max(e.config.Audio.InputChannels, 1)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file
	e.recordPath = filename

	e.wavEncoder = wav.NewEncoder(file, int(e.config.Audio.SampleRate),
		bitDepth, channels, wavFormatPCM)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*channels),
		SourceBitDepth: bitDepth,
	}

	e.isRecording.Store(true)
	logger.Infof("Recording to %s (%d-bit)", filename, bitDepth)
	return nil
}

// record converts one callback buffer to the encoder's bit depth and writes it.
func (e *Engine) record(buffer []int32) {
	if !e.isRecording.Load() || e.wavEncoder == nil {
		return
	}

	shift := 32 - e.sampleBuf.SourceBitDepth
	data := e.sampleBuf.Data[:cap(e.sampleBuf.Data)]
	n := min(len(buffer), len(data))
	for i, sample := range buffer[:n] {
		data[i] = int(sample >> shift)
	}
	e.sampleBuf.Data = data[:n]

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		logger.Errorf("Error writing to WAV file: %v", err)
	}
}

// StopRecording finalises the WAV header and closes the file.
func (e *Engine) StopRecording() error {
	if !e.isRecording.Load() {
		return nil
	}

	e.isRecording.Store(false)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	logger.Infof("Recording saved to %s", e.recordPath)
	return nil
}

// Recording reports whether the input is being written to disk.
func (e *Engine) Recording() bool { return e.isRecording.Load() }

// RecordingPath is the file of the current or most recent recording.
func (e *Engine) RecordingPath() string { return e.recordPath }
