// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

const (
	MinBitDepth = 4
	MaxBitDepth = 32
)

// CheckBitDepth reports whether depth is a PCM width the codecs accept.
func CheckBitDepth(depth int) error {
	if depth < MinBitDepth || depth > MaxBitDepth {
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, depth)
	}

	return nil
}

// ToIntBuffer copies interleaved samples into a go-audio buffer.
func ToIntBuffer(samples []int32, channels, sampleRate, depth int) *goaudio.IntBuffer {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: depth,
	}
}

// FromIntBuffer appends the samples of buf to dst.
func FromIntBuffer(dst []int32, buf *goaudio.IntBuffer) []int32 {
	for _, v := range buf.Data {
		dst = append(dst, int32(v))
	}

	return dst
}

// ReadAll drains src and returns its interleaved samples.
func ReadAll(src Source) ([]int32, error) {
	size := src.BufSize()
	if ch := src.Channels(); ch > 0 {
		size -= size % ch
		if size == 0 {
			size = ch
		}
	}
	buf := make([]int32, size)

	var out []int32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("%w", err)
		}
	}
}

// bufferSource serves the samples of a go-audio buffer.
type bufferSource struct {
	buf    *goaudio.IntBuffer
	depth  int
	offset int
}

// NewBufferSource returns a Source over buf. Depth defaults to 16 bits
// when buf does not carry one.
func NewBufferSource(buf *goaudio.IntBuffer) (Source, error) {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: missing format", ErrFormatMismatch)
	}
	if len(buf.Data)%buf.Format.NumChannels != 0 {
		return nil, ErrInvalidDstSize
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	if err := CheckBitDepth(depth); err != nil {
		return nil, err
	}

	return &bufferSource{buf: buf, depth: depth}, nil
}

func (s *bufferSource) SampleRate() int { return s.buf.Format.SampleRate }
func (s *bufferSource) Channels() int   { return s.buf.Format.NumChannels }
func (s *bufferSource) BitDepth() int   { return s.depth }
func (s *bufferSource) BufSize() int    { return 4096 }
func (s *bufferSource) Close() error    { return nil }

func (s *bufferSource) ReadSamples(dst []int32) (int, error) {
	if len(dst)%s.Channels() != 0 {
		return 0, ErrInvalidDstSize
	}
	if s.offset >= len(s.buf.Data) {
		return 0, io.EOF
	}

	n := min(len(dst), len(s.buf.Data)-s.offset)
	for i, v := range s.buf.Data[s.offset : s.offset+n] {
		dst[i] = int32(v)
	}
	s.offset += n

	if s.offset >= len(s.buf.Data) {
		return n, io.EOF
	}

	return n, nil
}
