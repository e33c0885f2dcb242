// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"encoding/binary"
	"fmt"
)

// StreamInfoSize is the payload length of a STREAMINFO block.
const StreamInfoSize = 34

const (
	maxSampleRate   = 1<<20 - 1
	maxFrameSize    = 1<<24 - 1
	maxTotalSamples = 1<<36 - 1
)

// StreamInfo describes a whole stream. Frame sizes, total samples and MD5
// may be zero when unknown.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	TotalSamples  uint64
	MD5           [16]byte
}

// Validate checks every field against its width in the bitstream.
func (si StreamInfo) Validate() error {
	switch {
	case si.MaxBlockSize == 0:
		return fmt.Errorf("%w: max block size is zero", ErrInvalidStreamInfo)
	case si.MinBlockSize > si.MaxBlockSize:
		return fmt.Errorf("%w: min block size %d > max %d", ErrInvalidStreamInfo, si.MinBlockSize, si.MaxBlockSize)
	case si.MinFrameSize > maxFrameSize || si.MaxFrameSize > maxFrameSize:
		return fmt.Errorf("%w: frame size exceeds 24 bits", ErrInvalidStreamInfo)
	case si.SampleRate == 0 || si.SampleRate > maxSampleRate:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidStreamInfo, si.SampleRate)
	case si.Channels < 1 || si.Channels > MaxChannels:
		return fmt.Errorf("%w: %d channels", ErrInvalidStreamInfo, si.Channels)
	case si.BitsPerSample < MinBitsPerSample || si.BitsPerSample > MaxBitsPerSample:
		return fmt.Errorf("%w: %d bits per sample", ErrInvalidStreamInfo, si.BitsPerSample)
	case si.TotalSamples > maxTotalSamples:
		return fmt.Errorf("%w: total samples exceed 36 bits", ErrInvalidStreamInfo)
	}

	return nil
}

// MarshalBinary returns the 34 byte STREAMINFO payload.
func (si StreamInfo) MarshalBinary() ([]byte, error) {
	if err := si.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, StreamInfoSize)
	binary.BigEndian.PutUint16(buf[0:2], si.MinBlockSize)
	binary.BigEndian.PutUint16(buf[2:4], si.MaxBlockSize)
	putUint24(buf[4:7], si.MinFrameSize)
	putUint24(buf[7:10], si.MaxFrameSize)

	packed := uint64(si.SampleRate)<<44 |
		uint64(si.Channels-1)<<41 |
		uint64(si.BitsPerSample-1)<<36 |
		si.TotalSamples
	binary.BigEndian.PutUint64(buf[10:18], packed)
	copy(buf[18:], si.MD5[:])

	return buf, nil
}

// ParseStreamInfo decodes a STREAMINFO payload.
func ParseStreamInfo(data []byte) (StreamInfo, error) {
	if len(data) != StreamInfoSize {
		return StreamInfo{}, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidStreamInfo, len(data), StreamInfoSize)
	}

	packed := binary.BigEndian.Uint64(data[10:18])
	si := StreamInfo{
		MinBlockSize:  binary.BigEndian.Uint16(data[0:2]),
		MaxBlockSize:  binary.BigEndian.Uint16(data[2:4]),
		MinFrameSize:  uint24(data[4:7]),
		MaxFrameSize:  uint24(data[7:10]),
		SampleRate:    uint32(packed >> 44),
		Channels:      uint8(packed>>41&0x7) + 1,
		BitsPerSample: uint8(packed>>36&0x1F) + 1,
		TotalSamples:  packed & maxTotalSamples,
	}
	copy(si.MD5[:], data[18:])

	if err := si.Validate(); err != nil {
		return StreamInfo{}, err
	}

	return si, nil
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
