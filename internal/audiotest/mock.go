// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides deterministic PCM sources for tests.
package audiotest

import (
	"io"
	"math"
)

// MockSource generates integer PCM for tests.
// It implements the audio.Source interface (without importing it to avoid cycles).
type MockSource struct {
	sampleRate   int
	channels     int
	depth        int
	totalSamples int // Total samples to generate (per channel)
	generated    int // Samples generated so far (per channel)
	waveform     func(sample int, channel int) int32
	closed       bool
}

// NewMockSource creates a new mock source of depth bit samples.
// totalSamples is the total number of samples per channel to generate.
// waveform is a function that generates sample values given sample index and channel.
func NewMockSource(sampleRate, channels, depth, totalSamples int, waveform func(sample int, channel int) int32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		depth:        depth,
		totalSamples: totalSamples,
		waveform:     waveform,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, depth, totalSamples int) *MockSource {
	return NewConstantSource(sampleRate, channels, depth, totalSamples, 0)
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, depth, totalSamples int, value int32) *MockSource {
	return NewMockSource(sampleRate, channels, depth, totalSamples, func(int, int) int32 {
		return value
	})
}

// NewSineSource creates a mock source with a sine wave at three quarters of
// full scale. Each channel is shifted in phase.
func NewSineSource(sampleRate, channels, depth, totalSamples int, frequency float64) *MockSource {
	amp := 0.75 * float64(int64(1)<<(depth-1)-1)

	return NewMockSource(sampleRate, channels, depth, totalSamples, func(sample int, channel int) int32 {
		t := float64(sample) / float64(sampleRate)
		return int32(math.Round(amp * math.Sin(2*math.Pi*frequency*t+float64(channel))))
	})
}

// NewNoiseSource creates a mock source of uniform full scale noise. Each
// sample depends only on seed and its position.
func NewNoiseSource(sampleRate, channels, depth, totalSamples int, seed uint64) *MockSource {
	span := uint64(1) << depth
	lo := -int64(span / 2)

	return NewMockSource(sampleRate, channels, depth, totalSamples, func(sample int, channel int) int32 {
		x := seed + uint64(sample*channels+channel+1)*0x9E3779B97F4A7C15
		x = (x ^ x>>30) * 0xBF58476D1CE4E5B9
		x = (x ^ x>>27) * 0x94D049BB133111EB
		x ^= x >> 31
		return int32(lo + int64(x%span))
	})
}

// NewRampSource creates a mock source counting up by step, wrapping at the
// depth limits.
func NewRampSource(sampleRate, channels, depth, totalSamples int, step int32) *MockSource {
	span := int64(1) << depth
	lo := -span / 2

	return NewMockSource(sampleRate, channels, depth, totalSamples, func(sample int, channel int) int32 {
		v := (int64(sample)*int64(step) + int64(channel) - lo) % span
		if v < 0 {
			v += span
		}
		return int32(v + lo)
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BitDepth() int   { return m.depth }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { m.closed = true; return nil }

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed }

// Reset resets the generated sample counter to allow re-reading.
func (m *MockSource) Reset() {
	m.generated = 0
}

// Samples returns every sample the source generates, interleaved, without
// consuming it.
func (m *MockSource) Samples() []int32 {
	out := make([]int32, 0, m.totalSamples*m.channels)
	for i := range m.totalSamples {
		for ch := range m.channels {
			out = append(out, m.waveform(i, ch))
		}
	}

	return out
}

func (m *MockSource) ReadSamples(dst []int32) (int, error) {
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	framesToWrite := min(len(dst)/m.channels, m.totalSamples-m.generated)

	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.generated >= m.totalSamples {
		return samplesWritten, io.EOF
	}

	return samplesWritten, nil
}
