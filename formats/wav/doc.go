// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes integer PCM WAV files through
// github.com/go-audio/wav.
//
// # Decoding
//
// Decoder accepts 8, 16, 24 and 32 bit PCM in any channel layout. Inputs
// that are not an io.ReadSeeker are buffered in memory first. Samples come
// back as signed integers at the container depth; 8-bit data is recentred
// around zero.
//
//	src, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
//	samples, err := audio.ReadAll(src)
//
// # Encoding
//
// Encoder writes any source from 4 to 32 bits. A depth that does not fill a
// whole byte is widened to the next container with its samples shifted up,
// so a 20-bit source is written as 24-bit PCM.
//
//	err := wav.Encoder{}.Encode(out, src)
//
// go-audio patches the RIFF sizes when it closes, so an io.WriteSeeker is
// written in place and any other writer receives the file in one write.
//
// # Errors
//
//   - ErrNotWavFile: the input is not a RIFF WAVE file
//   - ErrUnsupportedWavLayout: the file is not integer PCM
//   - ErrUnsupportedBitDepth: the container is not 8, 16, 24 or 32 bits
package wav
