// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"strconv"
	"sync"

	"forma/internal/config"
	"forma/pkg/utils"
)

const (
	testSampleRate = 44100.0
	testFrameSize  = 1024
)

var (
	testBuffer  = utils.GenerateSineWave(testFrameSize, testSampleRate, 440)
	quietBuffer = scaled(testBuffer, 0.001)
	loudBuffer  = testBuffer

	lowThreshold  = int32(0.0001 * math.MaxInt32)
	highThreshold = int32(0.999 * math.MaxInt32)
)

func scaled(src []int32, gain float64) []int32 {
	out := make([]int32, len(src))
	for i, s := range src {
		out[i] = int32(float64(s) * gain)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func absFloat(x float64) float64 {
	return math.Abs(x)
}

// captureProcessor keeps a copy of every buffer it receives.
type captureProcessor struct {
	mu      sync.Mutex
	buffers [][]int32
}

func (c *captureProcessor) Process(in []int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers = append(c.buffers, append([]int32(nil), in...))
}

func (c *captureProcessor) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffers)
}

func testConfig(channels int) *config.Config {
	cfg := config.Default()
	cfg.Audio.SampleRate = testSampleRate
	cfg.Audio.FramesPerBuffer = testFrameSize
	cfg.Audio.InputChannels = channels
	return cfg
}
