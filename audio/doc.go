// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM plumbing shared by the format packages.
//
// This package contains:
//   - Source interface for integer PCM input
//   - Decoder and Encoder interfaces implemented by formats/flac and formats/wav
//   - Format registry for decoder and encoder registration
//   - Conversions to and from go-audio IntBuffer values
//
// # Source Interface
//
// The Source interface is the foundation of every pipeline:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    BitDepth() int
//	    ReadSamples(dst []int32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Samples are signed integers of BitDepth bits, interleaved by channel.
// Unlike a float pipeline nothing is normalized, so a decode followed by an
// encode is bit exact.
//
// # Format Registry
//
// The registry maps format keys to codecs:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	registry.RegisterEncoder("flac", flac.Encoder{Level: 8})
//	decoder, _ := registry.Get("wav")
//
// # go-audio Interop
//
// ToIntBuffer, FromIntBuffer and NewBufferSource move samples between a
// Source and the go-audio IntBuffer used by github.com/go-audio/wav.
//
// # Error Handling
//
// ReadSamples returns io.EOF when no more data is available:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    // Process n samples from buf
//	    if err == io.EOF {
//	        break // Normal end of stream
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
package audio
