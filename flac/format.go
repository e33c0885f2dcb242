// SPDX-License-Identifier: EPL-2.0

package flac

import "fmt"

// StreamMarker opens every FLAC stream.
const StreamMarker = "fLaC"

const (
	// MaxChannels is the number of channels a frame can carry.
	MaxChannels = 8
	// MinBitsPerSample and MaxBitsPerSample bound the sample depth.
	MinBitsPerSample = 4
	MaxBitsPerSample = 32
	// maxSideBits is the depth of the side channel of a 32 bit pair.
	maxSideBits = MaxBitsPerSample + 1
	// MaxPartitionOrder is the largest residual partition order.
	MaxPartitionOrder = 15
	// DefaultBlockSize is the block size used when none is given.
	DefaultBlockSize = 4608
)

// Block size codes 6 and 7 mean an explicit 8 or 16 bit value follows the
// coded number.
var blockSizes = [16]int{0, 192, 576, 1152, 2304, 4608, 0, 0, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768}

const (
	blockSize8Bit  = 6
	blockSize16Bit = 7
)

var sampleRates = [12]uint32{0, 88200, 176400, 192000, 8000, 16000, 22050, 24000, 32000, 44100, 48000, 96000}

const (
	sampleRateKHz    = 12
	sampleRateHz     = 13
	sampleRateDaHz   = 14
	sampleRateNotSet = 15
)

// Code 3 is reserved; code 0 defers to STREAMINFO.
var sampleDepths = [8]uint8{0, 8, 12, 0, 16, 20, 24, 32}

// MetadataBlockType identifies a metadata block.
type MetadataBlockType uint8

const (
	MetadataStreamInfo MetadataBlockType = iota
	MetadataPadding
	MetadataApplication
	MetadataSeekTable
	MetadataVorbisComment
	MetadataCueSheet
	MetadataPicture

	metadataInvalid MetadataBlockType = 127
)

func (t MetadataBlockType) String() string {
	switch t {
	case MetadataStreamInfo:
		return "STREAMINFO"
	case MetadataPadding:
		return "PADDING"
	case MetadataApplication:
		return "APPLICATION"
	case MetadataSeekTable:
		return "SEEKTABLE"
	case MetadataVorbisComment:
		return "VORBIS_COMMENT"
	case MetadataCueSheet:
		return "CUESHEET"
	case MetadataPicture:
		return "PICTURE"
	}

	return fmt.Sprintf("METADATA(%d)", uint8(t))
}

// SubframeType is the prediction method of a subframe.
type SubframeType uint8

const (
	SubframeConstant SubframeType = iota
	SubframeVerbatim
	SubframeFixed
	SubframeLPC
)

func (t SubframeType) String() string {
	switch t {
	case SubframeConstant:
		return "constant"
	case SubframeVerbatim:
		return "verbatim"
	case SubframeFixed:
		return "fixed"
	case SubframeLPC:
		return "lpc"
	}

	return fmt.Sprintf("subframe(%d)", uint8(t))
}

// ChannelAssignment is the channel layout of a frame. Values 0 to 7 carry
// 1 to 8 independent channels; the three stereo modes store a side channel
// with one extra bit of depth.
type ChannelAssignment uint8

const (
	ChannelsMono            ChannelAssignment = iota // C
	ChannelsLeftRight                                // L R
	ChannelsLeftRightCenter                          // L R C
	ChannelsQuad                                     // L R BL BR
	ChannelsFive                                     // L R C BL BR
	ChannelsFiveOne                                  // L R C LFE BL BR
	ChannelsSixOne                                   // L R C LFE BC SL SR
	ChannelsSevenOne                                 // L R C LFE BL BR SL SR
	ChannelsLeftSide                                 // L S
	ChannelsSideRight                                // S R
	ChannelsMidSide                                  // M S

	// ChannelsAuto lets the encoder pick the layout.
	ChannelsAuto ChannelAssignment = 0xFF
)

// Valid reports whether c is one of the eleven defined layouts.
func (c ChannelAssignment) Valid() bool {
	return c <= ChannelsMidSide
}

// Count returns the number of subframes in a frame with this layout.
func (c ChannelAssignment) Count() int {
	switch {
	case c <= ChannelsSevenOne:
		return int(c) + 1
	case c <= ChannelsMidSide:
		return 2
	}

	return 0
}

// Decorrelated reports whether c is one of the stereo side modes.
func (c ChannelAssignment) Decorrelated() bool {
	return c >= ChannelsLeftSide && c <= ChannelsMidSide
}

// SideChannel returns the index of the subframe that holds the side
// channel, or -1.
func (c ChannelAssignment) SideChannel() int {
	switch c {
	case ChannelsLeftSide, ChannelsMidSide:
		return 1
	case ChannelsSideRight:
		return 0
	}

	return -1
}

// ChannelBits returns the sample depth of subframe i for a frame depth of
// bps.
func (c ChannelAssignment) ChannelBits(i int, bps uint8) uint8 {
	if c.SideChannel() == i {
		return bps + 1
	}

	return bps
}

func (c ChannelAssignment) String() string {
	switch c {
	case ChannelsLeftSide:
		return "left/side"
	case ChannelsSideRight:
		return "side/right"
	case ChannelsMidSide:
		return "mid/side"
	case ChannelsAuto:
		return "auto"
	}
	if c.Valid() {
		return fmt.Sprintf("%d independent", c.Count())
	}

	return fmt.Sprintf("reserved(%d)", uint8(c))
}

// IndependentChannels returns the layout that stores n channels as is.
func IndependentChannels(n int) (ChannelAssignment, error) {
	if n < 1 || n > MaxChannels {
		return 0, fmt.Errorf("%w: %d channels", ErrInvalidArgument, n)
	}

	return ChannelAssignment(n - 1), nil
}
