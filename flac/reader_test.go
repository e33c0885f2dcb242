// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/mewkiz/pkg/hashutil/crc16"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audflac/internal/bitstream"
)

// streamPrefix returns the marker and a lone STREAMINFO block.
func streamPrefix(t *testing.T, info StreamInfo) []byte {
	t.Helper()

	payload, err := info.MarshalBinary()
	require.NoError(t, err)

	out := append([]byte(StreamMarker), 0x80, 0, 0, StreamInfoSize)

	return append(out, payload...)
}

// nextUntil advances r until it reports state.
func nextUntil(t *testing.T, r *Reader, state RecordType) {
	t.Helper()

	for r.State() != state {
		ok, err := r.Next()
		require.NoError(t, err)
		require.True(t, ok, "stream ended before %s", state)
	}
}

func TestReaderConstantStereo(t *testing.T) {
	t.Parallel()

	const n = 4608
	left, right := make([]int32, n), make([]int32, n)
	for i := range n {
		left[i], right[i] = 1234, -77
	}

	policy, _ := PolicyFromLevel(0)
	data, _ := encode(t, testInfo(2, 16, n), policy, interleave([][]int32{left, right}), n, nil)
	// Two 24 bit constant subframes after a 6 byte header, then the CRC-16.
	require.Len(t, data, streamHeaderSize+6+6+2)

	r := NewReader(bytes.NewReader(data))
	nextUntil(t, r, RecordFrame)

	for i, want := range []int32{1234, -77} {
		ok, err := r.Next()
		require.NoError(t, err)
		require.True(t, ok)

		hdr, idx, err := r.SubframeHeader()
		require.NoError(t, err)
		require.Equal(t, i, idx)
		require.Equal(t, SubframeConstant, hdr.Type)

		vals, err := r.ReadSubframeValues()
		require.NoError(t, err)
		require.Len(t, vals, n)
		for _, v := range vals {
			require.Equal(t, want, v)
		}
	}

	ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, RecordFrameFooter, r.State())

	ok, err = r.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, RecordEOF, r.State())
}

func TestReaderReservedSubframeType(t *testing.T) {
	t.Parallel()

	info := testInfo(1, 16, 4096)
	data := streamPrefix(t, info)
	hdr, err := appendFrameHeader(nil, FrameHeader{BlockSize: 4096, SampleRate: 44100, Channels: ChannelsMono, BitsPerSample: 16})
	require.NoError(t, err)
	data = append(data, hdr...)
	// Pad bit, type code 2, no wasted bits.
	data = append(data, 0x04, 0x00, 0x00, 0x00)

	r := NewReader(bytes.NewReader(data))
	nextUntil(t, r, RecordFrame)

	_, err = r.Next()
	require.ErrorIs(t, err, ErrReservedEncoding)
	require.Equal(t, RecordError, r.State())

	_, err = r.Next()
	require.ErrorIs(t, err, ErrReaderFailed)
	require.ErrorIs(t, err, ErrReservedEncoding)

	_, err = r.ReadFrameSamples()
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestReaderFooterChecksum(t *testing.T) {
	t.Parallel()

	var idx FrameIndex
	channels := testChannels(2, 3*1024, 16)
	in := interleave(channels)
	data, _ := encode(t, testInfo(2, 16, 1024), DefaultPolicy(), in, 1024, &idx)
	require.Len(t, idx.Frames, 3)

	f := idx.Frames[1]
	data[streamHeaderSize+int(f.Offset+f.Size)-1] ^= 0x01

	r := NewReader(bytes.NewReader(data))
	nextUntil(t, r, RecordFrame)
	first, err := r.ReadFrameSamples()
	require.NoError(t, err)
	require.Equal(t, in[:2*1024], first)

	nextUntil(t, r, RecordFrame)
	_, err = r.ReadFrameSamples()
	require.ErrorIs(t, err, ErrInvalidChecksum)
	require.Equal(t, RecordError, r.State())
	require.Equal(t, in[:2*1024], first)

	// Resynchronizing picks up the intact third frame.
	found, err := r.FindSync()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, RecordSync, r.State())

	ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	h, err := r.FrameHeader()
	require.NoError(t, err)
	require.Equal(t, uint64(2), h.Number)
	require.Equal(t, uint64(2*1024), h.SampleNumber)

	third, err := r.ReadFrameSamples()
	require.NoError(t, err)
	require.Equal(t, in[2*2*1024:], third)

	found, err = r.FindSync()
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, RecordEOF, r.State())
}

func TestReaderFindSyncFromOffset(t *testing.T) {
	t.Parallel()

	in := testSignal(2048, 16, 2)
	data, _ := encode(t, testInfo(1, 16, 1024), DefaultPolicy(), in, 2048, nil)

	// Garbage with a lone 0xFF before the first frame.
	garbage := append([]byte{0x00, 0xFF, 0x12, 0xFF}, data[streamHeaderSize:]...)
	r := NewReader(bytes.NewReader(garbage))

	found, err := r.FindSync()
	require.NoError(t, err)
	require.True(t, found)

	// Without STREAMINFO the header must be self describing, which
	// 44100 Hz 16 bit frames are.
	ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	samples, err := r.ReadFrameSamples()
	require.NoError(t, err)
	require.Equal(t, in[:1024], samples)
}

func TestReaderSampleIter(t *testing.T) {
	t.Parallel()

	in := testSignal(1024, 16, 5)
	data, _ := encode(t, testInfo(1, 16, 512), DefaultPolicy(), in, 1024, nil)

	r := NewReader(bytes.NewReader(data))
	nextUntil(t, r, RecordSubframe)

	it, err := r.Samples()
	require.NoError(t, err)
	_, err = r.Samples()
	require.ErrorIs(t, err, ErrAlreadyConsumed)
	_, err = r.ReadSubframeValues()
	require.ErrorIs(t, err, ErrAlreadyConsumed)

	// Consume part of the subframe; Next drains the rest.
	for i := range 10 {
		require.True(t, it.Next())
		require.Equal(t, in[i], it.Value())
	}

	ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, RecordFrameFooter, r.State())

	nextUntil(t, r, RecordFrame)
	second, err := r.ReadFrameSamples()
	require.NoError(t, err)
	require.Equal(t, in[512:], second)
}

func TestReaderSkipsSubframes(t *testing.T) {
	t.Parallel()

	in := interleave(testChannels(3, 1000, 20))
	data, _ := encode(t, testInfo(3, 20, 1000), DefaultPolicy(), in, 1000, nil)

	r := NewReader(bytes.NewReader(data))
	count := 0
	for {
		ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		if r.State() == RecordSubframe {
			count++
		}
	}
	require.Equal(t, 3, count)
}

func TestReaderStreamErrors(t *testing.T) {
	t.Parallel()

	info := testInfo(1, 16, 4096)
	valid := streamPrefix(t, info)

	padded := append([]byte(StreamMarker), 0x01, 0, 0, 4, 0, 0, 0, 0)

	shortInfo := append([]byte(StreamMarker), 0x80, 0, 0, StreamInfoSize-2)
	shortInfo = append(shortInfo, make([]byte, StreamInfoSize-2)...)

	reservedType := append(append([]byte(nil), valid...), 0xFF, 0, 0, 0)
	reservedType[len(StreamMarker)] = 0x00 // STREAMINFO is no longer last

	trailing := append(append([]byte(nil), valid...), 0x00)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrUnexpectedEOF},
		{"bad marker", []byte("RIFF"), ErrInvalidSync},
		{"missing stream info", padded, ErrMissingStreamInfo},
		{"short stream info", shortInfo, ErrInvalidStreamInfo},
		{"truncated stream info", valid[:20], ErrUnexpectedEOF},
		{"reserved block type", reservedType, ErrReservedEncoding},
		{"no frame sync", trailing, ErrInvalidSync},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewReader(bytes.NewReader(tt.data))
			var err error
			for err == nil {
				var ok bool
				ok, err = r.Next()
				if !ok && err == nil {
					t.Fatalf("stream ended without error, want %v", tt.want)
				}
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Next() error = %v, want %v", err, tt.want)
			}
			if r.State() != RecordError {
				t.Errorf("State() = %s, want %s", r.State(), RecordError)
			}
		})
	}
}

func TestReaderTruncatedFrame(t *testing.T) {
	t.Parallel()

	in := testSignal(1024, 16, 1)
	data, _ := encode(t, testInfo(1, 16, 1024), DefaultPolicy(), in, 1024, nil)

	r := NewReader(bytes.NewReader(data[:len(data)-5]))
	nextUntil(t, r, RecordFrame)
	_, err := r.ReadFrameSamples()
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReaderInvalidPartitionOrder(t *testing.T) {
	t.Parallel()

	info := testInfo(1, 16, 16)
	data := streamPrefix(t, info)
	hdr, err := appendFrameHeader(nil, FrameHeader{BlockSize: 16, SampleRate: 44100, Channels: ChannelsMono, BitsPerSample: 16})
	require.NoError(t, err)
	data = append(data, hdr...)

	// Fixed order 1 subframe: header byte, one 16 bit warm-up sample, then
	// rice method 0 with partition order 4, leaving one sample per
	// partition.
	data = append(data, 0x12, 0x00, 0x01, 0b00_0100_00, 0x00, 0x00)

	r := NewReader(bytes.NewReader(data))
	nextUntil(t, r, RecordFrame)
	_, err = r.Next()
	require.ErrorIs(t, err, ErrInvalidPartitionOrder)
}

func TestReaderFooterRecomputed(t *testing.T) {
	t.Parallel()

	in := testSignal(700, 16, 4)
	data, _ := encode(t, testInfo(1, 16, 700), DefaultPolicy(), in, 700, nil)
	frame := data[streamHeaderSize:]

	sum := crc16.NewIBM()
	sum.Write(frame[:len(frame)-2])
	require.Equal(t, sum.Sum16(), uint16(frame[len(frame)-2])<<8|uint16(frame[len(frame)-1]))
}

// writeField writes the low n bits of v, for n up to 33.
func writeField(t *testing.T, w *bitstream.Writer, v int64, n uint8) {
	t.Helper()

	if n > 32 {
		require.NoError(t, w.WriteBits(uint32(v>>32), n-32))
		n = 32
	}
	require.NoError(t, w.WriteBits(uint32(v), n))
}

// wideStereoFrame builds a 32 bit stereo stream with one frame in layout a.
// Subframes of 32 bits are verbatim; the 33 bit side subframe is fixed
// order 1 when fixedSide is set and verbatim otherwise.
func wideStereoFrame(t *testing.T, a ChannelAssignment, left, right []int32, fixedSide bool) []byte {
	t.Helper()

	n := len(left)
	l64, r64 := make([]int64, n), make([]int64, n)
	for i := range n {
		l64[i], r64[i] = int64(left[i]), int64(right[i])
	}
	side := make([]int64, n)
	mid := make([]int64, n)
	for i := range n {
		side[i] = l64[i] - r64[i]
		mid[i] = (l64[i] + r64[i]) >> 1
	}
	subframes := map[ChannelAssignment][2][]int64{
		ChannelsLeftSide:  {l64, side},
		ChannelsSideRight: {side, r64},
		ChannelsMidSide:   {mid, side},
	}[a]

	frame, err := appendFrameHeader(nil, FrameHeader{BlockSize: n, SampleRate: 44100, Channels: a, BitsPerSample: 32})
	require.NoError(t, err)

	var body bytes.Buffer
	w := bitstream.NewWriter(&body, nil)
	for i, vals := range subframes {
		bps := a.ChannelBits(i, 32)
		if bps == 33 && fixedSide {
			// Pad bit, fixed order 1, no wasted bits.
			require.NoError(t, w.WriteBits(0x12, 8))
			writeField(t, w, vals[0], bps)
			// Rice method 0, partition order 0, parameter 4.
			require.NoError(t, w.WriteBits(0, 6))
			require.NoError(t, w.WriteBits(4, 4))
			for j := 1; j < n; j++ {
				require.NoError(t, w.WriteRice(int32(vals[j]-vals[j-1]), 4))
			}
			continue
		}
		require.NoError(t, w.WriteBits(0x02, 8))
		for _, v := range vals {
			writeField(t, w, v, bps)
		}
	}
	_, _, err = w.Complete()
	require.NoError(t, err)
	frame = append(frame, body.Bytes()...)

	sum := crc16.NewIBM()
	sum.Write(frame)
	frame = append(frame, byte(sum.Sum16()>>8), byte(sum.Sum16()))

	return append(streamPrefix(t, testInfo(2, 32, n)), frame...)
}

func wideStereoInput(n int) ([]int32, []int32) {
	left, right := make([]int32, n), make([]int32, n)
	for i := range n {
		left[i] = math.MaxInt32 - int32(i*i)
		right[i] = math.MinInt32 + int32(7*i)
	}

	return left, right
}

func TestReaderWideSideChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		layout    ChannelAssignment
		fixedSide bool
	}{
		{"left side fixed", ChannelsLeftSide, true},
		{"side right verbatim", ChannelsSideRight, false},
		{"mid side fixed", ChannelsMidSide, true},
		{"mid side verbatim", ChannelsMidSide, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			left, right := wideStereoInput(16)
			data := wideStereoFrame(t, tt.layout, left, right, tt.fixedSide)

			r := NewReader(bytes.NewReader(data))
			nextUntil(t, r, RecordFrame)

			channels, err := r.ReadFrameChannels()
			require.NoError(t, err)
			require.Equal(t, [][]int32{left, right}, channels)

			ok, err := r.Next()
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestReaderWideSideSamples(t *testing.T) {
	t.Parallel()

	left, right := wideStereoInput(16)
	data := wideStereoFrame(t, ChannelsLeftSide, left, right, true)

	r := NewReader(bytes.NewReader(data))
	nextUntil(t, r, RecordFrame)
	for range 2 {
		_, err := r.Next()
		require.NoError(t, err)
	}

	hdr, idx, err := r.SubframeHeader()
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.Equal(t, uint8(33), hdr.BitsPerSample)
	require.Equal(t, []int64{int64(left[0]) - int64(right[0])}, hdr.WarmupWide)
	require.Empty(t, hdr.Warmup)

	_, err = r.ReadSubframeValues()
	require.ErrorIs(t, err, ErrUnsupportedDepth)
	require.Equal(t, RecordSubframe, r.State())

	it, err := r.Samples()
	require.NoError(t, err)
	for i := 0; it.Next(); i++ {
		require.Equal(t, int64(left[i])-int64(right[i]), it.WideValue())
	}
	require.NoError(t, it.Err())

	ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, RecordFrameFooter, r.State())
}
