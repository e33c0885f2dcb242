// SPDX-License-Identifier: EPL-2.0

package bitstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/hashutil"

	"github.com/ik5/audflac/utils"
)

// byteSource hands bytes to bitio one at a time, feeding each into the
// running checksum. bitio never reads past what it was asked for, so the
// checksum only covers consumed bytes.
type byteSource struct {
	src io.ByteReader
	crc hashutil.Hash16
	tap io.ByteWriter
	n   int64
	one [1]byte
}

func (s *byteSource) ReadByte() (byte, error) {
	b, err := s.src.ReadByte()
	if err != nil {
		return 0, err
	}

	s.n++
	if s.crc != nil {
		s.one[0] = b
		s.crc.Write(s.one[:])
	}
	if s.tap != nil {
		if err := s.tap.WriteByte(b); err != nil {
			return 0, err
		}
	}

	return b, nil
}

func (s *byteSource) Read(p []byte) (int, error) {
	for i := range p {
		b, err := s.ReadByte()
		if err != nil {
			return i, err
		}
		p[i] = b
	}

	return len(p), nil
}

// Reader reads MSB-first bit fields.
type Reader struct {
	src      *byteSource
	bits     *bitio.Reader
	consumed uint64
}

// NewReader returns a Reader over src. crc may be nil; when set, it is
// updated with every byte read.
func NewReader(src io.ByteReader, crc hashutil.Hash16) *Reader {
	s := &byteSource{src: src, crc: crc}

	return &Reader{src: s, bits: bitio.NewReader(s)}
}

// Tap copies every byte read from now on to w.
func (r *Reader) Tap(w io.ByteWriter) {
	r.src.tap = w
}

// BytesRead returns the number of bytes pulled from the source.
func (r *Reader) BytesRead() int64 {
	return r.src.n
}

// CRC returns the current checksum without touching the bit position.
func (r *Reader) CRC() uint16 {
	if r.src.crc == nil {
		return 0
	}

	return r.src.crc.Sum16()
}

func mapReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}

	return fmt.Errorf("%w", err)
}

// ReadBits reads an unsigned field of n bits.
func (r *Reader) ReadBits(n uint8) (uint32, error) {
	if n > 32 {
		return 0, ErrInvalidWidth
	}
	if n == 0 {
		return 0, nil
	}

	v, err := r.bits.ReadBits(n)
	if err != nil {
		return 0, mapReadErr(err)
	}
	r.consumed += uint64(n)

	return uint32(v), nil
}

// ReadSigned reads a two's complement field of n bits and sign extends it.
func (r *Reader) ReadSigned(n uint8) (int32, error) {
	v, err := r.ReadBits(n)
	if err != nil || n == 0 {
		return 0, err
	}

	shift := 32 - n

	return int32(v<<shift) >> shift, nil
}

// ReadBool reads a single bit.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadBits(1)

	return v == 1, err
}

// ReadUnary counts zero bits up to the terminating one bit.
func (r *Reader) ReadUnary() (uint32, error) {
	var q uint32
	for {
		b, err := r.bits.ReadBool()
		if err != nil {
			return 0, mapReadErr(err)
		}
		r.consumed++
		if b {
			return q, nil
		}
		q++
	}
}

// ReadRice reads a Rice coded value with parameter k.
func (r *Reader) ReadRice(k uint8) (int32, error) {
	q, err := r.ReadUnary()
	if err != nil {
		return 0, err
	}
	low, err := r.ReadBits(k)
	if err != nil {
		return 0, err
	}

	return utils.Unfold(q<<k | low), nil
}

// Aligned reports whether the reader sits on a byte boundary.
func (r *Reader) Aligned() bool {
	return r.consumed%8 == 0
}

// Complete consumes the padding up to the next byte boundary, which must be
// zero, and returns the checksum of everything read so far.
func (r *Reader) Complete() (uint16, error) {
	if rem := uint8(r.consumed % 8); rem != 0 {
		pad, err := r.ReadBits(8 - rem)
		if err != nil {
			return 0, err
		}
		if pad != 0 {
			return 0, ErrInvalidPadding
		}
	}

	return r.CRC(), nil
}
