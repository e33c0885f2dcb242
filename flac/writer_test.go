// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterNotStarted(t *testing.T) {
	t.Parallel()

	w := NewWriter(&bytes.Buffer{})
	calls := map[string]func() error{
		"WriteSamples":       func() error { return w.WriteSamples([]int32{1}) },
		"Flush":              w.Flush,
		"EndStream":          w.EndStream,
		"WriteFrame":         func() error { return w.WriteFrame([][]int32{{1}}, ChannelsAuto) },
		"WriteMetadataBlock": func() error { return w.WriteMetadataBlock(MetadataPadding, nil) },
	}

	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrInvalidState) {
			t.Errorf("%s() error = %v, want %v", name, err, ErrInvalidState)
		}
	}
}

func TestWriterArgumentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call func(w *Writer) error
		want error
	}{
		{"sample above depth", func(w *Writer) error { return w.WriteSamples([]int32{0, 1 << 15}) }, ErrInvalidArgument},
		{"sample below depth", func(w *Writer) error { return w.WriteSamples([]int32{-1<<15 - 1, 0}) }, ErrInvalidArgument},
		{"partial interleave", func(w *Writer) error { return w.WriteSamples([]int32{1, 2, 3}) }, ErrInvalidArgument},
		{"channel count", func(w *Writer) error { return w.WriteFrame([][]int32{{1}}, ChannelsAuto) }, ErrInvalidArgument},
		{"uneven channels", func(w *Writer) error { return w.WriteFrame([][]int32{{1, 2}, {1}}, ChannelsAuto) }, ErrInvalidArgument},
		{"oversized block", func(w *Writer) error {
			return w.WriteFrame([][]int32{make([]int32, 257), make([]int32, 257)}, ChannelsAuto)
		}, ErrInvalidArgument},
		{"layout arity", func(w *Writer) error { return w.WriteFrame([][]int32{{1}, {2}}, ChannelsLeftRightCenter) }, ErrInvalidArgument},
		{"stream info block", func(w *Writer) error { return w.WriteMetadataBlock(MetadataStreamInfo, nil) }, ErrInvalidArgument},
		{"reserved block", func(w *Writer) error { return w.WriteMetadataBlock(metadataInvalid, nil) }, ErrInvalidArgument},
		{"encoded frame layout", func(w *Writer) error {
			return w.WriteEncodedFrame([]ChannelEncoding{{Method: constantMethod(16), Samples: []int32{1}}}, ChannelsMono)
		}, ErrInvalidArgument},
		{"encoded constant mismatch", func(w *Writer) error {
			encs := []ChannelEncoding{
				{Method: constantMethod(16), Samples: []int32{1, 2}},
				{Method: constantMethod(16), Samples: []int32{1, 1}},
			}
			return w.WriteEncodedFrame(encs, ChannelsLeftRight)
		}, ErrInvalidArgument},
		{"side channel too wide", func(w *Writer) error {
			encs := []ChannelEncoding{
				{Method: verbatimMethod(16, 1, 0), Samples: []int32{0}},
				{Method: verbatimMethod(17, 1, 0), Samples: []int32{1 << 16}},
			}
			return w.WriteEncodedFrame(encs, ChannelsLeftSide)
		}, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			w := NewWriter(&out)
			if err := w.StartStream(testInfo(2, 16, 256), DefaultPolicy()); err != nil {
				t.Fatalf("StartStream() error = %v", err)
			}
			before := out.Len()

			if err := tt.call(w); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if out.Len() != before {
				t.Errorf("wrote %d bytes on failure", out.Len()-before)
			}
		})
	}
}

func TestWriterStartStream(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	w := NewWriter(&out)

	bad := testInfo(2, 16, 256)
	bad.Channels = 0
	if err := w.StartStream(bad, DefaultPolicy()); !errors.Is(err, ErrInvalidStreamInfo) {
		t.Errorf("StartStream() error = %v, want %v", err, ErrInvalidStreamInfo)
	}
	if err := w.StartStream(testInfo(2, 16, 256), Policy{LPCOrder: Only(40)}); !errors.Is(err, ErrPolicyViolation) {
		t.Errorf("StartStream() error = %v, want %v", err, ErrPolicyViolation)
	}
	if out.Len() != 0 {
		t.Errorf("wrote %d bytes on failure", out.Len())
	}

	if err := w.StartStream(testInfo(2, 16, 256), DefaultPolicy()); err != nil {
		t.Fatalf("StartStream() error = %v", err)
	}
	if err := w.StartStream(testInfo(2, 16, 256), DefaultPolicy()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second StartStream() error = %v, want %v", err, ErrInvalidState)
	}
	if got := out.String(); got != StreamMarker {
		t.Errorf("output = %q, want %q", got, StreamMarker)
	}
}

func TestWriterEmptyStream(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	w := NewWriter(&out)
	info := testInfo(1, 16, 256)
	if err := w.StartStream(info, DefaultPolicy()); err != nil {
		t.Fatalf("StartStream() error = %v", err)
	}
	if err := w.EndStream(); err != nil {
		t.Fatalf("EndStream() error = %v", err)
	}

	if got, want := out.Len(), streamHeaderSize; got != want {
		t.Errorf("output is %d bytes, want %d", got, want)
	}
	if out.Bytes()[len(StreamMarker)]&metadataLastFlag == 0 {
		t.Errorf("STREAMINFO not flagged last")
	}
	if got := w.StreamInfo(); got != info {
		t.Errorf("StreamInfo() = %+v, want %+v", got, info)
	}
}

func TestWriterRestartResetsFrameSizes(t *testing.T) {
	t.Parallel()

	level0, err := PolicyFromLevel(0)
	if err != nil {
		t.Fatalf("PolicyFromLevel() error = %v", err)
	}

	var out bytes.Buffer
	w := NewWriter(&out)
	info := testInfo(1, 16, 1024)

	if err := w.StartStream(info, level0); err != nil {
		t.Fatalf("StartStream() error = %v", err)
	}
	if err := w.WriteSamples(testNoise(1024, 16, 3)); err != nil {
		t.Fatalf("WriteSamples() error = %v", err)
	}
	if err := w.EndStream(); err != nil {
		t.Fatalf("EndStream() error = %v", err)
	}
	first := w.StreamInfo()

	if err := w.StartStream(info, level0); err != nil {
		t.Fatalf("restarted StartStream() error = %v", err)
	}
	if err := w.WriteSamples(make([]int32, 1024)); err != nil {
		t.Fatalf("WriteSamples() error = %v", err)
	}
	if err := w.EndStream(); err != nil {
		t.Fatalf("EndStream() error = %v", err)
	}
	second := w.StreamInfo()

	if second.MinFrameSize != second.MaxFrameSize {
		t.Errorf("second stream frame sizes = %d-%d, want a single size", second.MinFrameSize, second.MaxFrameSize)
	}
	if second.MaxFrameSize >= first.MaxFrameSize {
		t.Errorf("second stream MaxFrameSize = %d, want below noise frame %d", second.MaxFrameSize, first.MaxFrameSize)
	}
	if second.TotalSamples != 1024 {
		t.Errorf("second stream TotalSamples = %d, want 1024", second.TotalSamples)
	}
}

func TestWriterFrameSink(t *testing.T) {
	t.Parallel()

	var idx FrameIndex
	var out bytes.Buffer
	w := NewWriter(&out)
	w.SetFrameSink(&idx)
	if err := w.StartStream(testInfo(1, 16, 256), DefaultPolicy()); err != nil {
		t.Fatalf("StartStream() error = %v", err)
	}
	if err := w.WriteSamples(testSignal(600, 16, 1)); err != nil {
		t.Fatalf("WriteSamples() error = %v", err)
	}
	if got := len(idx.Frames); got != 2 {
		t.Errorf("frames after WriteSamples = %d, want 2", got)
	}
	if err := w.EndStream(); err != nil {
		t.Fatalf("EndStream() error = %v", err)
	}

	wantSamples := []uint64{256, 256, 88}
	if len(idx.Frames) != len(wantSamples) {
		t.Fatalf("frames = %d, want %d", len(idx.Frames), len(wantSamples))
	}
	var size int64
	for i, f := range idx.Frames {
		if f.Samples != wantSamples[i] {
			t.Errorf("frame %d samples = %d, want %d", i, f.Samples, wantSamples[i])
		}
		size += f.Size
	}
	if got := int64(out.Len() - streamHeaderSize); got != size {
		t.Errorf("frame bytes = %d, index covers %d", got, size)
	}

	info := w.StreamInfo()
	if info.TotalSamples != 600 {
		t.Errorf("TotalSamples = %d, want 600", info.TotalSamples)
	}
	if info.MinFrameSize == 0 || info.MinFrameSize > info.MaxFrameSize {
		t.Errorf("frame sizes = [%d, %d]", info.MinFrameSize, info.MaxFrameSize)
	}
}
