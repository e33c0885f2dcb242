// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mewkiz/pkg/hashutil/crc16"

	"github.com/ik5/audflac/internal/bitstream"
)

const metadataLastFlag = 0x80

// maxMetadataLength is the largest payload a block header can describe.
const maxMetadataLength = 1<<24 - 1

type pendingBlock struct {
	typ  MetadataBlockType
	data []byte
}

// Writer encodes a FLAC stream. It buffers up to one block of interleaved
// samples and emits a frame whenever the buffer fills.
//
// Errors in arguments are reported before any byte of the call reaches the
// underlying writer.
type Writer struct {
	dst  io.Writer
	sink FrameSink

	info      StreamInfo
	estimator *Estimator
	started   bool

	// The last metadata block is held back until it is known to be last.
	pending *pendingBlock

	buf     []int32
	scratch [][]int32
	header  []byte
	frame   bytes.Buffer

	frameNumber uint64
	streamPos   int64
	samplePos   uint64
	minFrame    int
	maxFrame    int
}

// NewWriter returns a Writer that emits to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{dst: w, sink: NopSink{}}
}

// SetFrameSink installs s; nil restores the no-op sink.
func (w *Writer) SetFrameSink(s FrameSink) {
	if s == nil {
		s = NopSink{}
	}
	w.sink = s
}

// StreamInfo returns the stream description, with frame sizes and the
// sample count observed so far.
func (w *Writer) StreamInfo() StreamInfo {
	info := w.info
	if w.frameNumber > 0 {
		info.MinFrameSize = uint32(w.minFrame)
		info.MaxFrameSize = uint32(w.maxFrame)
		info.TotalSamples = w.samplePos
	}

	return info
}

// StartStream writes the stream marker and queues STREAMINFO.
func (w *Writer) StartStream(info StreamInfo, policy Policy) error {
	if w.started {
		return fmt.Errorf("%w: stream already started", ErrInvalidState)
	}
	if err := info.Validate(); err != nil {
		return err
	}
	est, err := NewEstimator(policy)
	if err != nil {
		return err
	}
	payload, err := info.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w.dst, StreamMarker); err != nil {
		return fmt.Errorf("%w", err)
	}

	w.info = info
	w.estimator = est
	w.started = true
	w.pending = &pendingBlock{typ: MetadataStreamInfo, data: payload}
	w.buf = make([]int32, 0, int(info.MaxBlockSize)*int(info.Channels))
	w.scratch = make([][]int32, info.Channels)
	w.frameNumber, w.streamPos, w.samplePos = 0, 0, 0
	w.minFrame, w.maxFrame = 0, 0

	return nil
}

// WriteMetadataBlock queues an opaque metadata block. Blocks must be
// written before the first frame.
func (w *Writer) WriteMetadataBlock(typ MetadataBlockType, data []byte) error {
	switch {
	case !w.started:
		return fmt.Errorf("%w: stream not started", ErrInvalidState)
	case w.pending == nil:
		return fmt.Errorf("%w: metadata after first frame", ErrInvalidState)
	case typ == MetadataStreamInfo || typ >= metadataInvalid:
		return fmt.Errorf("%w: metadata block type %d", ErrInvalidArgument, typ)
	case len(data) > maxMetadataLength:
		return fmt.Errorf("%w: metadata block of %d bytes", ErrInvalidArgument, len(data))
	}

	if err := w.flushPending(false); err != nil {
		return err
	}
	w.pending = &pendingBlock{typ: typ, data: bytes.Clone(data)}

	return nil
}

func (w *Writer) flushPending(last bool) error {
	if w.pending == nil {
		return nil
	}

	typ := byte(w.pending.typ)
	if last {
		typ |= metadataLastFlag
	}
	n := len(w.pending.data)
	hdr := []byte{typ, byte(n >> 16), byte(n >> 8), byte(n)}
	if _, err := w.dst.Write(hdr); err != nil {
		return fmt.Errorf("%w", err)
	}
	if _, err := w.dst.Write(w.pending.data); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.pending = nil

	return nil
}

func (w *Writer) checkSamples(samples []int32) error {
	return checkDepth(samples, w.info.BitsPerSample)
}

func checkDepth(samples []int32, bps uint8) error {
	lo := int64(-1) << (bps - 1)
	hi := -lo - 1
	for _, s := range samples {
		if v := int64(s); v < lo || v > hi {
			return fmt.Errorf("%w: sample %d exceeds %d bits", ErrInvalidArgument, s, bps)
		}
	}

	return nil
}

// WriteSamples appends interleaved samples and emits every frame that
// fills up.
func (w *Writer) WriteSamples(interleaved []int32) error {
	if !w.started {
		return fmt.Errorf("%w: stream not started", ErrInvalidState)
	}
	if len(interleaved)%int(w.info.Channels) != 0 {
		return fmt.Errorf("%w: %d samples is not a multiple of %d channels", ErrInvalidArgument, len(interleaved), w.info.Channels)
	}
	if err := w.checkSamples(interleaved); err != nil {
		return err
	}

	for len(interleaved) > 0 {
		n := min(cap(w.buf)-len(w.buf), len(interleaved))
		w.buf = append(w.buf, interleaved[:n]...)
		interleaved = interleaved[n:]

		if len(w.buf) == cap(w.buf) {
			if err := w.emitBuffer(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flush emits any buffered samples as a short frame.
func (w *Writer) Flush() error {
	if !w.started {
		return fmt.Errorf("%w: stream not started", ErrInvalidState)
	}
	if len(w.buf) == 0 {
		return nil
	}

	return w.emitBuffer()
}

func (w *Writer) emitBuffer() error {
	ch := int(w.info.Channels)
	n := len(w.buf) / ch
	for c := range w.scratch {
		if cap(w.scratch[c]) < n {
			w.scratch[c] = make([]int32, n)
		}
		w.scratch[c] = w.scratch[c][:n]
		for i := range n {
			w.scratch[c][i] = w.buf[i*ch+c]
		}
	}
	w.buf = w.buf[:0]

	return w.WriteFrame(w.scratch, ChannelsAuto)
}

// WriteFrame encodes one frame from per-channel samples. With ChannelsAuto
// the estimator picks the layout; an explicit stereo side layout takes
// left and right input and decorrelates it.
func (w *Writer) WriteFrame(channels [][]int32, assignment ChannelAssignment) error {
	if !w.started {
		return fmt.Errorf("%w: stream not started", ErrInvalidState)
	}
	if len(channels) != int(w.info.Channels) {
		return fmt.Errorf("%w: %d channels, stream has %d", ErrInvalidArgument, len(channels), w.info.Channels)
	}
	n := len(channels[0])
	if n == 0 || n > int(w.info.MaxBlockSize) {
		return fmt.Errorf("%w: block of %d samples, max %d", ErrInvalidArgument, n, w.info.MaxBlockSize)
	}
	for _, c := range channels {
		if len(c) != n {
			return fmt.Errorf("%w: channel lengths differ", ErrInvalidArgument)
		}
		if err := w.checkSamples(c); err != nil {
			return err
		}
	}

	bps := w.info.BitsPerSample
	var encs []ChannelEncoding
	var err error

	switch {
	case assignment == ChannelsAuto && len(channels) == 2:
		assignment, encs, err = w.estimator.BestStereo(channels[0], channels[1], bps)
	case assignment == ChannelsAuto:
		assignment = ChannelAssignment(len(channels) - 1)
		encs, err = w.estimator.BestMethods(channels, bps)
	case assignment.Count() != len(channels):
		return fmt.Errorf("%w: %s for %d channels", ErrInvalidArgument, assignment, len(channels))
	case assignment.Decorrelated():
		if bps >= MaxBitsPerSample {
			return fmt.Errorf("%w: %s at %d bits", ErrUnsupportedDepth, assignment, bps)
		}
		ch0, ch1, derr := decorrelate(assignment, channels[0], channels[1])
		if derr != nil {
			return derr
		}
		encs = make([]ChannelEncoding, 2)
		for i, s := range [][]int32{ch0, ch1} {
			m, merr := w.estimator.BestMethod(s, assignment.ChannelBits(i, bps))
			if merr != nil {
				return merr
			}
			encs[i] = ChannelEncoding{Method: m, Samples: s}
		}
	default:
		encs, err = w.estimator.BestMethods(channels, bps)
	}
	if err != nil {
		return err
	}

	return w.WriteEncodedFrame(encs, assignment)
}

// WriteEncodedFrame serializes one frame with methods already chosen. The
// samples of side channels carry one extra bit of depth.
func (w *Writer) WriteEncodedFrame(encs []ChannelEncoding, assignment ChannelAssignment) error {
	if !w.started {
		return fmt.Errorf("%w: stream not started", ErrInvalidState)
	}
	if !assignment.Valid() || assignment.Count() != len(encs) || len(encs) != int(w.info.Channels) {
		return fmt.Errorf("%w: %s with %d subframes", ErrInvalidArgument, assignment, len(encs))
	}
	n := len(encs[0].Samples)
	if n == 0 || n > int(w.info.MaxBlockSize) {
		return fmt.Errorf("%w: block of %d samples, max %d", ErrInvalidArgument, n, w.info.MaxBlockSize)
	}
	if assignment.Decorrelated() && w.info.BitsPerSample >= MaxBitsPerSample {
		return fmt.Errorf("%w: %s at %d bits", ErrUnsupportedDepth, assignment, w.info.BitsPerSample)
	}
	for i, e := range encs {
		if len(e.Samples) != n {
			return fmt.Errorf("%w: channel lengths differ", ErrInvalidArgument)
		}
		if err := checkDepth(e.Samples, assignment.ChannelBits(i, w.info.BitsPerSample)); err != nil {
			return err
		}
	}

	hdr := FrameHeader{
		BlockSize:     n,
		SampleRate:    w.info.SampleRate,
		Channels:      assignment,
		BitsPerSample: w.info.BitsPerSample,
		Number:        w.frameNumber,
	}

	var err error
	if w.header, err = appendFrameHeader(w.header[:0], hdr); err != nil {
		return err
	}
	w.frame.Reset()
	w.frame.Write(w.header)

	crc := crc16.NewIBM()
	crc.Write(w.header)
	bw := bitstream.NewWriter(&w.frame, crc)
	for i, e := range encs {
		if err := writeSubframe(bw, e, assignment.ChannelBits(i, hdr.BitsPerSample)); err != nil {
			return fmt.Errorf("subframe %d: %w", i, err)
		}
	}
	sum, _, err := bw.Complete()
	if err != nil {
		return err
	}
	w.frame.Write([]byte{byte(sum >> 8), byte(sum)})

	if err := w.flushPending(true); err != nil {
		return err
	}

	w.sink.StartFrame(w.streamPos, w.samplePos)
	size, err := w.dst.Write(w.frame.Bytes())
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	if w.frameNumber == 0 || size < w.minFrame {
		w.minFrame = size
	}
	w.maxFrame = max(w.maxFrame, size)
	w.frameNumber++
	w.streamPos += int64(size)
	w.samplePos += uint64(n)
	w.sink.EndFrame(w.streamPos, w.samplePos)

	return nil
}

// EndStream emits buffered samples and any metadata still queued. The
// Writer may be started again afterwards.
func (w *Writer) EndStream() error {
	if !w.started {
		return fmt.Errorf("%w: stream not started", ErrInvalidState)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.flushPending(true); err != nil {
		return err
	}
	w.started = false

	return nil
}
