// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	"github.com/ik5/audflac/audio"
	codec "github.com/ik5/audflac/flac"
)

// Metadata is an opaque metadata block carried through a transcode.
type Metadata struct {
	Type codec.MetadataBlockType
	Data []byte
}

// Stream is the Source a Decoder returns.
type Stream struct {
	r        *codec.Reader
	closer   io.Closer
	info     codec.StreamInfo
	metadata []Metadata

	pending []int32
	sig     *signature
	done    bool
}

var _ audio.Source = (*Stream)(nil)

func (s *Stream) SampleRate() int { return int(s.info.SampleRate) }
func (s *Stream) Channels() int   { return int(s.info.Channels) }
func (s *Stream) BitDepth() int   { return int(s.info.BitsPerSample) }
func (s *Stream) BufSize() int    { return int(s.info.MaxBlockSize) * int(s.info.Channels) }

// StreamInfo returns the STREAMINFO block of the stream.
func (s *Stream) StreamInfo() codec.StreamInfo { return s.info }

// Metadata returns the blocks that followed STREAMINFO, in file order.
func (s *Stream) Metadata() []Metadata { return s.metadata }

// Close closes the input when it is an io.Closer.
func (s *Stream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}

	return nil
}

func (s *Stream) ReadSamples(dst []int32) (int, error) {
	if len(dst)%s.Channels() != 0 {
		return 0, audio.ErrInvalidDstSize
	}

	n := 0
	for n < len(dst) {
		if len(s.pending) == 0 {
			if s.done {
				break
			}
			if err := s.nextFrame(); err != nil {
				return n, err
			}
			continue
		}
		c := copy(dst[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}

	if n == 0 && s.done {
		return 0, io.EOF
	}

	return n, nil
}

// nextFrame decodes the next frame into pending, or marks the stream done.
func (s *Stream) nextFrame() error {
	for s.r.State() != codec.RecordFrame {
		ok, err := s.r.Next()
		if err != nil {
			return fmt.Errorf("%w", err)
		}
		if !ok {
			s.done = true
			return s.verify()
		}
	}

	h, err := s.r.FrameHeader()
	if err != nil {
		return err
	}
	if h.Channels.Count() != s.Channels() {
		return fmt.Errorf("%w: frame %d has %d channels", ErrChannelMismatch, h.Number, h.Channels.Count())
	}

	samples, err := s.r.ReadFrameSamples()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	if s.sig != nil {
		s.sig.write(samples)
	}
	s.pending = samples

	return nil
}

func (s *Stream) verify() error {
	if s.sig == nil || s.info.MD5 == [16]byte{} {
		return nil
	}
	if s.sig.sum() != s.info.MD5 {
		return ErrMD5Mismatch
	}

	return nil
}

// Decoder reads FLAC streams.
type Decoder struct {
	// VerifyMD5 checks the decoded audio against the STREAMINFO signature
	// when the stream ends.
	VerifyMD5 bool
}

func (d Decoder) Decode(r io.Reader) (audio.Source, error) {
	s := &Stream{r: codec.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}

	if err := s.readHeader(); err != nil {
		return nil, err
	}
	if d.VerifyMD5 {
		s.sig = newSignature(s.BitDepth())
	}

	return s, nil
}

// readHeader consumes the metadata blocks, leaving the reader on the
// first frame.
func (s *Stream) readHeader() error {
	for {
		ok, err := s.r.Next()
		if err != nil {
			if _, has := s.r.StreamInfo(); !has {
				return fmt.Errorf("%w: %w", ErrNotFlacFile, err)
			}
			return fmt.Errorf("%w", err)
		}
		if !ok {
			s.done = true
			break
		}
		if s.r.State() == codec.RecordFrame {
			break
		}
		if s.r.State() != codec.RecordMetadataBlock {
			continue
		}

		blk, err := s.r.MetadataBlock()
		if err != nil {
			return err
		}
		if blk.Type == codec.MetadataStreamInfo {
			continue
		}
		data, err := s.r.ReadMetadataPayload()
		if err != nil {
			return fmt.Errorf("%w", err)
		}
		s.metadata = append(s.metadata, Metadata{Type: blk.Type, Data: data})
	}

	s.info, _ = s.r.StreamInfo()

	return nil
}
