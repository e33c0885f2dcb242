// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize      = errors.New("dst size must be multiple of channels")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrFormatMismatch      = errors.New("buffer format does not match source")
)
