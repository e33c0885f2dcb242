// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"errors"

	"github.com/ik5/audflac/internal/bitstream"
)

var (
	ErrUnexpectedEOF  = bitstream.ErrUnexpectedEOF
	ErrInvalidPadding = bitstream.ErrInvalidPadding

	ErrInvalidSync           = errors.New("invalid sync code")
	ErrInvalidChecksum       = errors.New("checksum mismatch")
	ErrReservedFieldSet      = errors.New("reserved field is set")
	ErrReservedEncoding      = errors.New("reserved encoding")
	ErrInvalidPartitionOrder = errors.New("invalid residual partition order")
	ErrAlreadyConsumed       = errors.New("subframe samples already consumed")
	ErrPolicyViolation       = errors.New("encoding policy out of range")

	ErrReaderFailed      = errors.New("reader is in error state")
	ErrInvalidState      = errors.New("operation not valid in current state")
	ErrInvalidStreamInfo = errors.New("invalid stream info")
	ErrMissingStreamInfo = errors.New("stream info block missing")
	ErrBlockSizeExceeded = errors.New("block size exceeds stream maximum")
	ErrUnsupportedDepth  = errors.New("unsupported sample depth")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoValidMethod     = errors.New("no valid encoding method")
)
