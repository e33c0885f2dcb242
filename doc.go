// SPDX-License-Identifier: EPL-2.0

// Package audflac is a lossless FLAC codec with WAV interop.
//
// The codec itself lives in the flac subpackage: a bit-exact frame
// decoder driven as a state machine and an encoder that searches
// constant, verbatim, fixed and LPC predictors, Rice partition orders,
// wasted bits and stereo decorrelation for the smallest frame. The
// formats/flac and formats/wav packages adapt it and go-audio/wav to the
// audio.Source interface, and this package ties them together.
//
// # Quick Start
//
// Convert a WAV file to FLAC:
//
//	in, _ := os.Open("audio.wav")
//	out, _ := os.Create("audio.flac")
//	err := audflac.Transcode(audflac.NewRegistry(), out, "flac", in, "wav")
//
// Writing to an *os.File lets the encoder go back and fill in the
// STREAMINFO totals and MD5 signature once the stream is done.
//
// # Compression Levels
//
// Levels 0 to 9 pick how hard the encoder searches. Level 0 only tries
// constant and verbatim subframes; level 9 tries every fixed order, every
// LPC order up to 32 and all partition orders:
//
//	err := audflac.EncodeFLAC(out, src, 8)
//
// For finer control build a flac.Policy and drive flac.Writer directly.
//
// # Decoding
//
// Registry decoders return an audio.Source of interleaved int32 samples:
//
//	dec, _ := audflac.NewRegistry().Get("flac")
//	src, err := dec.Decode(file)
//	samples, err := audio.ReadAll(src)
//
// The flac.Reader underneath exposes every record of the stream, down to
// the per subframe sample iterators, for callers that need more than PCM.
package audflac
