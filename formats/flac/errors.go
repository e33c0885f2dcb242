// SPDX-License-Identifier: EPL-2.0

package flac

import "errors"

var (
	// ErrNotFlacFile indicates the input does not start with a FLAC stream
	ErrNotFlacFile = errors.New("not a FLAC file")

	// ErrChannelMismatch indicates a frame whose channel count differs from STREAMINFO
	ErrChannelMismatch = errors.New("frame channel count differs from stream")

	// ErrMD5Mismatch indicates decoded audio that does not match the stored signature
	ErrMD5Mismatch = errors.New("decoded audio does not match MD5 signature")

	// ErrUnsupportedChannels indicates a source with more channels than FLAC allows
	ErrUnsupportedChannels = errors.New("unsupported channel count")
)
