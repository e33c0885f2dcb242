// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	// ErrNotWavFile indicates the input is not a RIFF WAVE file
	ErrNotWavFile = errors.New("not a WAV file")

	// ErrUnsupportedWavLayout indicates a WAV file that is not integer PCM
	ErrUnsupportedWavLayout = errors.New("unsupported WAV layout")

	// ErrUnsupportedBitDepth indicates a sample container other than 8, 16, 24 or 32 bits
	ErrUnsupportedBitDepth = errors.New("unsupported WAV bit depth")
)
