// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"errors"
	"testing"
)

func testStreamInfo() StreamInfo {
	return StreamInfo{
		MinBlockSize:  4096,
		MaxBlockSize:  4096,
		MinFrameSize:  14,
		MaxFrameSize:  12345,
		SampleRate:    44100,
		Channels:      2,
		BitsPerSample: 16,
		TotalSamples:  1<<36 - 1,
		MD5:           [16]byte{0xde, 0xad, 0xbe, 0xef, 15: 0x01},
	}
}

func TestStreamInfoRoundTrip(t *testing.T) {
	t.Parallel()

	want := testStreamInfo()
	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if len(data) != StreamInfoSize {
		t.Fatalf("len(MarshalBinary()) = %d, want %d", len(data), StreamInfoSize)
	}

	got, err := ParseStreamInfo(data)
	if err != nil {
		t.Fatalf("ParseStreamInfo() error = %v", err)
	}
	if got != want {
		t.Errorf("ParseStreamInfo() = %+v, want %+v", got, want)
	}
}

func TestStreamInfoLayout(t *testing.T) {
	t.Parallel()

	info := StreamInfo{MinBlockSize: 16, MaxBlockSize: 16, SampleRate: 8000, Channels: 1, BitsPerSample: 8}
	data, err := info.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}

	// 8000 Hz in 20 bits, then channels-1 and bps-1.
	want := []byte{0x01, 0xF4, 0x00, 0x70}
	for i, b := range want {
		if data[10+i] != b {
			t.Errorf("byte %d = %#02x, want %#02x", 10+i, data[10+i], b)
		}
	}
}

func TestStreamInfoValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*StreamInfo)
	}{
		{"zero max block", func(s *StreamInfo) { s.MaxBlockSize = 0 }},
		{"min above max", func(s *StreamInfo) { s.MinBlockSize = 5000 }},
		{"zero rate", func(s *StreamInfo) { s.SampleRate = 0 }},
		{"rate too wide", func(s *StreamInfo) { s.SampleRate = 1 << 20 }},
		{"no channels", func(s *StreamInfo) { s.Channels = 0 }},
		{"nine channels", func(s *StreamInfo) { s.Channels = 9 }},
		{"depth 3", func(s *StreamInfo) { s.BitsPerSample = 3 }},
		{"depth 33", func(s *StreamInfo) { s.BitsPerSample = 33 }},
		{"frame size", func(s *StreamInfo) { s.MaxFrameSize = 1 << 24 }},
		{"total samples", func(s *StreamInfo) { s.TotalSamples = 1 << 36 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := testStreamInfo()
			tt.modify(&info)
			if err := info.Validate(); !errors.Is(err, ErrInvalidStreamInfo) {
				t.Errorf("Validate() error = %v, want %v", err, ErrInvalidStreamInfo)
			}
			if _, err := info.MarshalBinary(); !errors.Is(err, ErrInvalidStreamInfo) {
				t.Errorf("MarshalBinary() error = %v, want %v", err, ErrInvalidStreamInfo)
			}
		})
	}
}

func TestParseStreamInfoLength(t *testing.T) {
	t.Parallel()

	if _, err := ParseStreamInfo(make([]byte, StreamInfoSize-1)); !errors.Is(err, ErrInvalidStreamInfo) {
		t.Errorf("ParseStreamInfo() error = %v, want %v", err, ErrInvalidStreamInfo)
	}
}
