// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"slices"
	"testing"
)

func readAll(t *testing.T, m *MockSource, chunk int) []int32 {
	t.Helper()

	buf := make([]int32, chunk)
	var out []int32
	for {
		n, err := m.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestSourcesStayInRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  *MockSource
	}{
		{"sine 16", NewSineSource(44100, 2, 16, 1000, 440)},
		{"sine 32", NewSineSource(44100, 1, 32, 1000, 1000)},
		{"noise 8", NewNoiseSource(8000, 2, 8, 1000, 1)},
		{"noise 24", NewNoiseSource(8000, 1, 24, 1000, 7)},
		{"ramp 4", NewRampSource(8000, 1, 4, 100, 3)},
		{"ramp 20", NewRampSource(8000, 3, 20, 1000, 4099)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lo := int64(-1) << (tt.src.BitDepth() - 1)
			hi := -lo - 1
			for i, v := range tt.src.Samples() {
				if int64(v) < lo || int64(v) > hi {
					t.Fatalf("sample %d = %d, outside [%d, %d]", i, v, lo, hi)
				}
			}
		})
	}
}

func TestReadSamplesMatchesSamples(t *testing.T) {
	t.Parallel()

	src := NewNoiseSource(8000, 2, 16, 333, 3)
	want := src.Samples()
	if got := readAll(t, src, 64); !slices.Equal(got, want) {
		t.Errorf("ReadSamples() differs from Samples()")
	}

	src.Reset()
	if got := readAll(t, src, 10); !slices.Equal(got, want) {
		t.Errorf("ReadSamples() after Reset() differs from Samples()")
	}
}

func TestConstantAndSilence(t *testing.T) {
	t.Parallel()

	for _, v := range NewConstantSource(8000, 2, 16, 10, -5).Samples() {
		if v != -5 {
			t.Fatalf("constant sample = %d, want -5", v)
		}
	}

	silent := NewSilentSource(8000, 1, 16, 10)
	if got := len(silent.Samples()); got != 10 {
		t.Errorf("len(Samples()) = %d, want 10", got)
	}
	if err := silent.Close(); err != nil || !silent.Closed() {
		t.Errorf("Close() = %v, Closed() = %v", err, silent.Closed())
	}
}
