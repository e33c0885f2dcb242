// SPDX-License-Identifier: EPL-2.0

package bitstream

import (
	"fmt"
	"io"

	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/hashutil"

	"github.com/ik5/audflac/utils"
)

type byteSink struct {
	dst io.ByteWriter
	crc hashutil.Hash16
	n   int
	one [1]byte
}

func (s *byteSink) WriteByte(b byte) error {
	if err := s.dst.WriteByte(b); err != nil {
		return err
	}

	s.n++
	if s.crc != nil {
		s.one[0] = b
		s.crc.Write(s.one[:])
	}

	return nil
}

func (s *byteSink) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := s.WriteByte(b); err != nil {
			return i, err
		}
	}

	return len(p), nil
}

// Writer writes MSB-first bit fields.
type Writer struct {
	sink    *byteSink
	bits    *bitio.Writer
	written uint64
}

// NewWriter returns a Writer over dst. crc may be nil; when set, it is
// updated with every byte written.
func NewWriter(dst io.ByteWriter, crc hashutil.Hash16) *Writer {
	s := &byteSink{dst: dst, crc: crc}

	return &Writer{sink: s, bits: bitio.NewWriter(s)}
}

// BytesWritten returns the number of whole bytes handed to the sink.
func (w *Writer) BytesWritten() int {
	return w.sink.n
}

// CRC returns the checksum of the whole bytes written so far.
func (w *Writer) CRC() uint16 {
	if w.sink.crc == nil {
		return 0
	}

	return w.sink.crc.Sum16()
}

// WriteBits writes the low n bits of v.
func (w *Writer) WriteBits(v uint32, n uint8) error {
	if n > 32 {
		return ErrInvalidWidth
	}
	if n == 0 {
		return nil
	}
	if n < 32 {
		v &= 1<<n - 1
	}

	if err := w.bits.WriteBits(uint64(v), n); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.written += uint64(n)

	return nil
}

// WriteSigned writes v as an n bit two's complement field.
func (w *Writer) WriteSigned(v int32, n uint8) error {
	return w.WriteBits(uint32(v), n)
}

// WriteBool writes a single bit.
func (w *Writer) WriteBool(b bool) error {
	if b {
		return w.WriteBits(1, 1)
	}

	return w.WriteBits(0, 1)
}

// WriteUnary writes q zero bits followed by a one bit.
func (w *Writer) WriteUnary(q uint32) error {
	for q >= 32 {
		if err := w.WriteBits(0, 32); err != nil {
			return err
		}
		q -= 32
	}

	return w.WriteBits(1, uint8(q)+1)
}

// WriteRice writes v as a Rice code with parameter k.
func (w *Writer) WriteRice(v int32, k uint8) error {
	folded := utils.Fold(v)
	if err := w.WriteUnary(folded >> k); err != nil {
		return err
	}

	return w.WriteBits(folded, k)
}

// Complete zero pads to the next byte boundary and returns the checksum and
// the byte count written through this Writer.
func (w *Writer) Complete() (uint16, int, error) {
	if rem := uint8(w.written % 8); rem != 0 {
		if err := w.WriteBits(0, 8-rem); err != nil {
			return 0, 0, err
		}
	}

	return w.CRC(), w.sink.n, nil
}
