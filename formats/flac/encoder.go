// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	"github.com/ik5/audflac/audio"
	codec "github.com/ik5/audflac/flac"
)

// streamInfoOffset is where the STREAMINFO payload starts: after the
// marker and one block header.
const streamInfoOffset = int64(len(codec.StreamMarker) + 4)

// Encoder writes FLAC streams. The zero value encodes at level 0 with the
// default block size.
type Encoder struct {
	// Level is the compression preset, 0 (fastest) to 9 (smallest).
	Level int
	// BlockSize is the number of samples per channel in each frame.
	BlockSize int
	// Parallel lets the estimator evaluate candidates concurrently.
	Parallel bool
	// Metadata blocks are written after STREAMINFO.
	Metadata []Metadata
	// Sink observes every frame written.
	Sink codec.FrameSink
}

func (e Encoder) Encode(w io.Writer, src audio.Source) error {
	info, err := e.streamInfo(src)
	if err != nil {
		return err
	}
	policy, err := codec.PolicyFromLevel(e.Level)
	if err != nil {
		return err
	}
	policy.Parallel = e.Parallel

	ws, seekable := w.(io.WriteSeeker)
	var start int64
	if seekable {
		if start, err = ws.Seek(0, io.SeekCurrent); err != nil {
			seekable = false
		}
	}

	fw := codec.NewWriter(w)
	fw.SetFrameSink(e.Sink)
	if err := fw.StartStream(info, policy); err != nil {
		return err
	}
	for _, m := range e.Metadata {
		if err := fw.WriteMetadataBlock(m.Type, m.Data); err != nil {
			return err
		}
	}

	sig := newSignature(int(info.BitsPerSample))
	buf := make([]int32, int(info.MaxBlockSize)*int(info.Channels))
	for {
		n, rerr := src.ReadSamples(buf)
		if n > 0 {
			sig.write(buf[:n])
			if err := fw.WriteSamples(buf[:n]); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("%w", rerr)
		}
	}
	if err := fw.EndStream(); err != nil {
		return err
	}

	if !seekable {
		return nil
	}

	final := fw.StreamInfo()
	final.MD5 = sig.sum()

	return rewriteStreamInfo(ws, start, final)
}

func (e Encoder) streamInfo(src audio.Source) (codec.StreamInfo, error) {
	depth := src.BitDepth()
	if err := audio.CheckBitDepth(depth); err != nil {
		return codec.StreamInfo{}, err
	}
	ch := src.Channels()
	if ch < 1 || ch > codec.MaxChannels {
		return codec.StreamInfo{}, fmt.Errorf("%w: %d", ErrUnsupportedChannels, ch)
	}

	block := e.BlockSize
	if block == 0 {
		block = codec.DefaultBlockSize
	}
	if block < 16 || block > 65535 {
		return codec.StreamInfo{}, fmt.Errorf("%w: block size %d", codec.ErrInvalidArgument, block)
	}

	info := codec.StreamInfo{
		MinBlockSize:  uint16(block),
		MaxBlockSize:  uint16(block),
		SampleRate:    uint32(src.SampleRate()),
		Channels:      uint8(ch),
		BitsPerSample: uint8(depth),
	}

	return info, info.Validate()
}

// rewriteStreamInfo patches the STREAMINFO payload of a stream that starts
// at start and leaves ws at its end.
func rewriteStreamInfo(ws io.WriteSeeker, start int64, info codec.StreamInfo) error {
	payload, err := info.MarshalBinary()
	if err != nil {
		return err
	}

	end, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	if _, err := ws.Seek(start+streamInfoOffset, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	if _, err := ws.Write(payload); err != nil {
		return fmt.Errorf("%w", err)
	}
	if _, err := ws.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
