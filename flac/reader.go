// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/pkg/hashutil/crc16"

	"github.com/ik5/audflac/internal/bitstream"
)

// RecordType identifies the last record a Reader produced.
type RecordType uint8

// Records, in stream order.
const (
	RecordNone RecordType = iota
	RecordStream
	RecordMetadataBlock
	RecordFrame
	RecordSubframe
	RecordFrameFooter
	RecordSync
	RecordEOF
	RecordError
)

func (r RecordType) String() string {
	switch r {
	case RecordNone:
		return "none"
	case RecordStream:
		return "stream"
	case RecordMetadataBlock:
		return "metadata block"
	case RecordFrame:
		return "frame"
	case RecordSubframe:
		return "subframe"
	case RecordFrameFooter:
		return "frame footer"
	case RecordSync:
		return "sync"
	case RecordEOF:
		return "eof"
	case RecordError:
		return "error"
	}

	return fmt.Sprintf("record(%d)", uint8(r))
}

// MetadataBlock describes a metadata block header.
type MetadataBlock struct {
	Type   MetadataBlockType
	Length int
	Last   bool
}

// Reader walks a FLAC stream one record at a time. Each call to Next
// advances to the following record; the accessors then expose it.
//
// A Reader reads ahead through a bufio.Reader, so the underlying reader
// should not be used directly while the Reader is active.
type Reader struct {
	src   *bufio.Reader
	state RecordType
	err   error

	info        *StreamInfo
	block       MetadataBlock
	blockUnread int

	header    FrameHeader
	headerRaw []byte
	syncByte  byte
	bits      *bitstream.Reader

	subframe int
	sub      SubframeHeader
	iter     *SampleIter
	taken    bool
}

// NewReader returns a Reader positioned before the stream marker.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &Reader{src: br, subframe: -1}
}

// State returns the type of the current record.
func (d *Reader) State() RecordType { return d.state }

// Err returns the error that put the Reader into its error state.
func (d *Reader) Err() error { return d.err }

func (d *Reader) fail(err error) error {
	d.err = err
	d.state = RecordError

	return err
}

// Next advances to the next record. It returns false at the end of the
// stream or on error. Once an error occurred every call fails with
// ErrReaderFailed until FindSync resynchronizes.
func (d *Reader) Next() (bool, error) {
	var err error

	switch d.state {
	case RecordError:
		return false, fmt.Errorf("%w: %w", ErrReaderFailed, d.err)
	case RecordEOF:
		return false, nil
	case RecordNone:
		err = d.readMarker()
	case RecordStream:
		err = d.readBlockHeader()
	case RecordMetadataBlock:
		err = d.skipBlock()
		if err == nil {
			if d.block.Last {
				err = d.readFrameStart()
			} else {
				err = d.readBlockHeader()
			}
		}
	case RecordSync:
		err = d.readFrameHeader(d.syncByte)
	case RecordFrame:
		err = d.readSubframe(0)
	case RecordSubframe:
		err = d.drain()
		if err == nil {
			if d.subframe+1 < d.header.Channels.Count() {
				err = d.readSubframe(d.subframe + 1)
			} else {
				err = d.readFooter()
			}
		}
	case RecordFrameFooter:
		err = d.readFrameStart()
	default:
		err = fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}

	if err != nil {
		return false, d.fail(err)
	}

	return d.state != RecordEOF, nil
}

func readFull(r io.Reader, p []byte) error {
	if _, err := io.ReadFull(r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrUnexpectedEOF
		}
		return err
	}

	return nil
}

func (d *Reader) readMarker() error {
	var m [len(StreamMarker)]byte
	if err := readFull(d.src, m[:]); err != nil {
		return err
	}
	if string(m[:]) != StreamMarker {
		return fmt.Errorf("%w: stream marker %q", ErrInvalidSync, m[:])
	}
	d.state = RecordStream

	return nil
}

func (d *Reader) readBlockHeader() error {
	var h [4]byte
	if err := readFull(d.src, h[:]); err != nil {
		return err
	}

	blk := MetadataBlock{
		Type:   MetadataBlockType(h[0] & 0x7F),
		Last:   h[0]&0x80 != 0,
		Length: int(uint24(h[1:])),
	}
	if blk.Type == metadataInvalid {
		return fmt.Errorf("%w: metadata block type %d", ErrReservedEncoding, blk.Type)
	}

	switch {
	case blk.Type == MetadataStreamInfo && d.info != nil:
		return fmt.Errorf("%w: duplicate block", ErrInvalidStreamInfo)
	case blk.Type == MetadataStreamInfo:
		if blk.Length != StreamInfoSize {
			return fmt.Errorf("%w: length %d", ErrInvalidStreamInfo, blk.Length)
		}
		var data [StreamInfoSize]byte
		if err := readFull(d.src, data[:]); err != nil {
			return err
		}
		info, err := ParseStreamInfo(data[:])
		if err != nil {
			return err
		}
		d.info = &info
		d.blockUnread = 0
	case d.info == nil:
		return fmt.Errorf("%w: first block is %s", ErrMissingStreamInfo, blk.Type)
	default:
		d.blockUnread = blk.Length
	}

	d.block = blk
	d.state = RecordMetadataBlock

	return nil
}

func (d *Reader) skipBlock() error {
	if d.blockUnread == 0 {
		return nil
	}
	n, err := d.src.Discard(d.blockUnread)
	d.blockUnread -= n
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrUnexpectedEOF
		}
		return err
	}

	return nil
}

// readFrameStart reads the sync bytes of the next frame. A clean end of
// input before the first byte ends the stream.
func (d *Reader) readFrameStart() error {
	b, err := d.src.ReadByte()
	if errors.Is(err, io.EOF) {
		d.state = RecordEOF
		return nil
	}
	if err != nil {
		return err
	}
	if b != syncByte0 {
		return fmt.Errorf("%w: %#02x", ErrInvalidSync, b)
	}

	if b, err = d.src.ReadByte(); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrUnexpectedEOF
		}
		return err
	}

	return d.readFrameHeader(b)
}

func (d *Reader) readFrameHeader(b1 byte) error {
	crc := crc16.NewIBM()
	raw := append(d.headerRaw[:0], syncByte0, b1)
	crc.Write(raw)
	d.bits = bitstream.NewReader(d.src, crc)

	next := func() (byte, error) {
		v, err := d.bits.ReadBits(8)
		return byte(v), err
	}

	h, raw, err := parseFrameHeader(raw, next, d.info)
	d.headerRaw = raw
	if err != nil {
		return err
	}

	d.header = h
	d.subframe = -1
	d.iter = nil
	d.state = RecordFrame

	return nil
}

func (d *Reader) readSubframe(i int) error {
	bps := d.header.Channels.ChannelBits(i, d.header.BitsPerSample)
	if bps > maxSideBits {
		return fmt.Errorf("%w: %d bit channel", ErrUnsupportedDepth, bps)
	}

	hdr, err := readSubframeHeader(d.bits, bps, d.header.BlockSize)
	if err != nil {
		return err
	}
	d.sub = hdr

	it, err := newSampleIter(d.bits, &d.sub, d.header.BlockSize, func(err error) { d.fail(err) })
	if err != nil {
		return err
	}

	d.iter = it
	d.taken = false
	d.subframe = i
	d.state = RecordSubframe

	return nil
}

// drain finishes whatever the caller left of the current subframe.
func (d *Reader) drain() error {
	for d.iter.Next() {
	}

	return d.iter.Err()
}

func (d *Reader) readFooter() error {
	sum, err := d.bits.Complete()
	if err != nil {
		return err
	}
	stored, err := d.bits.ReadBits(16)
	if err != nil {
		return err
	}
	if uint16(stored) != sum {
		return fmt.Errorf("%w: frame crc %#04x, computed %#04x", ErrInvalidChecksum, stored, sum)
	}
	d.state = RecordFrameFooter

	return nil
}

// FindSync scans forward for the next frame sync code. It works from any
// state, and clears an earlier error. On success the Reader is in the
// RecordSync state and the following Next decodes the frame header. It
// returns false when the input ends first.
func (d *Reader) FindSync() (bool, error) {
	d.err = nil
	d.iter = nil

	prev := false
	for {
		b, err := d.src.ReadByte()
		if errors.Is(err, io.EOF) {
			d.state = RecordEOF
			return false, nil
		}
		if err != nil {
			return false, d.fail(err)
		}
		if prev && b&syncMask1 == syncByte1 {
			d.syncByte = b
			d.state = RecordSync
			return true, nil
		}
		prev = b == syncByte0
	}
}

// StreamInfo returns the STREAMINFO block once it has been read.
func (d *Reader) StreamInfo() (StreamInfo, bool) {
	if d.info == nil {
		return StreamInfo{}, false
	}

	return *d.info, true
}

// MetadataBlock returns the header of the current metadata block.
func (d *Reader) MetadataBlock() (MetadataBlock, error) {
	if d.state != RecordMetadataBlock {
		return MetadataBlock{}, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}

	return d.block, nil
}

// ReadMetadataPayload returns the payload of the current metadata block.
// Payloads not read are skipped by the next call to Next.
func (d *Reader) ReadMetadataPayload() ([]byte, error) {
	if d.state != RecordMetadataBlock {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}
	if d.block.Type == MetadataStreamInfo {
		return d.info.MarshalBinary()
	}
	if d.blockUnread != d.block.Length {
		return nil, ErrAlreadyConsumed
	}

	data := make([]byte, d.block.Length)
	if err := readFull(d.src, data); err != nil {
		return nil, d.fail(err)
	}
	d.blockUnread = 0

	return data, nil
}

// FrameHeader returns the header of the current frame.
func (d *Reader) FrameHeader() (FrameHeader, error) {
	switch d.state {
	case RecordFrame, RecordSubframe, RecordFrameFooter:
		return d.header, nil
	}

	return FrameHeader{}, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
}

// SubframeHeader returns the header of the current subframe and its
// channel index.
func (d *Reader) SubframeHeader() (SubframeHeader, int, error) {
	if d.state != RecordSubframe {
		return SubframeHeader{}, 0, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}

	return d.sub, d.subframe, nil
}

// Samples returns the iterator over the current subframe. It may be taken
// once per subframe.
func (d *Reader) Samples() (*SampleIter, error) {
	if d.state != RecordSubframe {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}
	if d.taken {
		return nil, ErrAlreadyConsumed
	}
	d.taken = true

	return d.iter, nil
}

// ReadSubframeValues decodes the whole current subframe. Channels of a
// decorrelated frame come back as stored, side channels included. A 33 bit
// side channel does not fit and has to be read through Samples.
func (d *Reader) ReadSubframeValues() ([]int32, error) {
	if d.state == RecordSubframe && d.sub.wide() {
		return nil, fmt.Errorf("%w: %d bit subframe", ErrUnsupportedDepth, d.sub.BitsPerSample)
	}
	it, err := d.Samples()
	if err != nil {
		return nil, err
	}

	vals := make([]int32, 0, it.Len())
	for it.Next() {
		vals = append(vals, it.Value())
	}

	return vals, it.Err()
}

// ReadFrameChannels decodes every subframe of the current frame, restores
// left and right from a decorrelated pair and checks the footer. The
// Reader must sit on a RecordFrame.
func (d *Reader) ReadFrameChannels() ([][]int32, error) {
	if d.state != RecordFrame {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}

	channels := make([][]int32, d.header.Channels.Count())
	var side []int64
	for i := range channels {
		if _, err := d.Next(); err != nil {
			return nil, err
		}
		if d.sub.wide() {
			vals, err := d.readWideValues()
			if err != nil {
				return nil, err
			}
			side = vals
			channels[i] = make([]int32, len(vals))
			continue
		}
		vals, err := d.ReadSubframeValues()
		if err != nil {
			return nil, err
		}
		channels[i] = vals
	}
	if _, err := d.Next(); err != nil {
		return nil, err
	}

	switch {
	case side != nil:
		correlateWide(d.header.Channels, channels[0], channels[1], side)
	case d.header.Channels.Decorrelated():
		correlate(d.header.Channels, channels[0], channels[1])
	}

	return channels, nil
}

func (d *Reader) readWideValues() ([]int64, error) {
	it, err := d.Samples()
	if err != nil {
		return nil, err
	}

	vals := make([]int64, 0, it.Len())
	for it.Next() {
		vals = append(vals, it.WideValue())
	}

	return vals, it.Err()
}

// ReadFrameSamples is ReadFrameChannels with the result interleaved.
func (d *Reader) ReadFrameSamples() ([]int32, error) {
	channels, err := d.ReadFrameChannels()
	if err != nil {
		return nil, err
	}

	n := d.header.BlockSize
	out := make([]int32, n*len(channels))
	for c, ch := range channels {
		for i, s := range ch {
			out[i*len(channels)+c] = s
		}
	}

	return out, nil
}

// ReadFrameRaw returns the bytes of the current frame, header through
// footer, after verifying them. The Reader must sit on a RecordFrame.
func (d *Reader) ReadFrameRaw() ([]byte, error) {
	if d.state != RecordFrame {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, d.state)
	}

	buf := bytes.NewBuffer(append([]byte(nil), d.headerRaw...))
	d.bits.Tap(buf)
	defer d.bits.Tap(nil)

	for d.state != RecordFrameFooter {
		if _, err := d.Next(); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
