// SPDX-License-Identifier: EPL-2.0

// Package flac adapts the FLAC codec to the audio.Source pipeline.
//
// # Decoding
//
//	decoder := flac.Decoder{VerifyMD5: true}
//	file, _ := os.Open("audio.flac")
//	src, _ := decoder.Decode(file)
//	samples, err := audio.ReadAll(src)
//
// The returned Source is a *Stream, which also exposes STREAMINFO and the
// other metadata blocks of the file.
//
// # Encoding
//
//	encoder := flac.Encoder{Level: 8}
//	out, _ := os.Create("audio.flac")
//	err := encoder.Encode(out, src)
//
// When the output is an io.WriteSeeker the encoder rewrites STREAMINFO at
// the end, filling in frame sizes, the sample count and the MD5 signature.
// Otherwise those fields stay zero, which decoders treat as unknown.
package flac
