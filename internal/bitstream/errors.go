// SPDX-License-Identifier: EPL-2.0

package bitstream

import "errors"

var (
	ErrUnexpectedEOF  = errors.New("unexpected end of bitstream")
	ErrInvalidPadding = errors.New("non-zero padding bits at end of frame")
	ErrInvalidWidth   = errors.New("bit width must be between 0 and 32")
)
