// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/ik5/audflac/audio"
	"github.com/ik5/audflac/internal/memio"
)

// Encoder writes integer PCM WAV files. Depths that do not fill a whole
// byte are widened to the next container and shifted to the top bits.
type Encoder struct{}

func (Encoder) Encode(w io.Writer, src audio.Source) error {
	depth := src.BitDepth()
	if err := audio.CheckBitDepth(depth); err != nil {
		return err
	}
	container := (depth + 7) / 8 * 8
	if err := checkContainer(container); err != nil {
		return err
	}
	shift := container - depth
	ch := src.Channels()
	if ch < 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedWavLayout, ch)
	}

	// go-audio patches the chunk sizes on Close.
	ws, seekable := w.(io.WriteSeeker)
	var mem *memio.WriteSeeker
	if !seekable {
		mem = new(memio.WriteSeeker)
		ws = mem
	}

	enc := wav.NewEncoder(ws, src.SampleRate(), container, ch, formatPCM)

	size := src.BufSize()
	size -= size % ch
	if size == 0 {
		size = ch
	}
	buf := make([]int32, size)
	for {
		n, rerr := src.ReadSamples(buf)
		if n > 0 {
			ib := audio.ToIntBuffer(buf[:n], ch, src.SampleRate(), container)
			for i, v := range ib.Data {
				v <<= shift
				if container == 8 {
					v += 128
				}
				ib.Data[i] = v
			}
			if err := enc.Write(ib); err != nil {
				return fmt.Errorf("%w", err)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("%w", rerr)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	if mem != nil {
		if _, err := w.Write(mem.Bytes()); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}
