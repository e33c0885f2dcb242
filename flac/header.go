// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"math/bits"

	"github.com/mewkiz/pkg/hashutil/crc8"
)

const (
	syncByte0    = 0xFF
	syncByte1    = 0xF8
	syncMask1    = 0xFC
	reservedSync = 0x02
	variableBit  = 0x01

	maxFixedNumberBytes    = 6
	maxVariableNumberBytes = 7
	maxCodedNumber         = 1<<36 - 1
)

// FrameHeader holds the decoded fields of a frame header.
type FrameHeader struct {
	VariableBlockSize bool
	BlockSize         int
	SampleRate        uint32
	Channels          ChannelAssignment
	BitsPerSample     uint8
	// Number is the frame number with fixed blocking and the first sample
	// number with variable blocking.
	Number uint64
	// SampleNumber is the index of the first sample in the frame.
	SampleNumber uint64
	CRC8         uint8
}

// appendCodedNumber appends n in the UTF-8 style coding used by frame
// headers, extended to 7 bytes for 36 bit values.
func appendCodedNumber(dst []byte, n uint64) ([]byte, error) {
	if n > maxCodedNumber {
		return dst, fmt.Errorf("%w: number %d exceeds 36 bits", ErrInvalidArgument, n)
	}
	if n < 0x80 {
		return append(dst, byte(n)), nil
	}

	size := 2
	for limit := uint64(1) << 11; n >= limit && size < maxVariableNumberBytes; limit <<= 5 {
		size++
	}

	lead := byte(0xFF<<(8-size)) | byte(n>>(6*(size-1)))
	dst = append(dst, lead)
	for i := size - 2; i >= 0; i-- {
		dst = append(dst, 0x80|byte(n>>(6*i))&0x3F)
	}

	return dst, nil
}

// decodeCodedNumber reads a coded number through next, allowing at most
// maxBytes bytes.
func decodeCodedNumber(next func() (byte, error), maxBytes int) (uint64, error) {
	b, err := next()
	if err != nil {
		return 0, err
	}
	if b < 0x80 {
		return uint64(b), nil
	}

	size := bits.LeadingZeros8(^b)
	if size < 2 || size > maxBytes {
		return 0, fmt.Errorf("%w: coded number lead byte %#02x", ErrReservedEncoding, b)
	}

	n := uint64(b & (0x7F >> size))
	for range size - 1 {
		c, err := next()
		if err != nil {
			return 0, err
		}
		if c&0xC0 != 0x80 {
			return 0, fmt.Errorf("%w: coded number continuation byte %#02x", ErrReservedEncoding, c)
		}
		n = n<<6 | uint64(c&0x3F)
	}

	return n, nil
}

func blockSizeCode(n int) (code byte, extra []byte) {
	for i, v := range blockSizes {
		if v == n && v != 0 {
			return byte(i), nil
		}
	}
	if n <= 256 {
		return blockSize8Bit, []byte{byte(n - 1)}
	}

	return blockSize16Bit, []byte{byte((n - 1) >> 8), byte(n - 1)}
}

func sampleRateCode(rate uint32) (code byte, extra []byte) {
	for i, v := range sampleRates {
		if v == rate && v != 0 {
			return byte(i), nil
		}
	}

	switch {
	case rate%1000 == 0 && rate/1000 <= 0xFF:
		return sampleRateKHz, []byte{byte(rate / 1000)}
	case rate <= 0xFFFF:
		return sampleRateHz, []byte{byte(rate >> 8), byte(rate)}
	case rate%10 == 0 && rate/10 <= 0xFFFF:
		return sampleRateDaHz, []byte{byte(rate / 10 >> 8), byte(rate / 10)}
	}

	return 0, nil
}

func sampleDepthCode(bps uint8) byte {
	for i, v := range sampleDepths {
		if v == bps && v != 0 {
			return byte(i)
		}
	}

	return 0
}

// appendFrameHeader serializes h, CRC-8 included. Only fixed blocking is
// produced, so h.Number is a frame number.
func appendFrameHeader(dst []byte, h FrameHeader) ([]byte, error) {
	start := len(dst)

	bsCode, bsExtra := blockSizeCode(h.BlockSize)
	srCode, srExtra := sampleRateCode(h.SampleRate)

	b1 := byte(syncByte1)
	if h.VariableBlockSize {
		b1 |= variableBit
	}
	dst = append(dst, syncByte0, b1,
		bsCode<<4|srCode,
		byte(h.Channels)<<4|sampleDepthCode(h.BitsPerSample)<<1)

	dst, err := appendCodedNumber(dst, h.Number)
	if err != nil {
		return dst[:start], err
	}
	if !h.VariableBlockSize && h.Number >= 1<<31 {
		return dst[:start], fmt.Errorf("%w: frame number %d exceeds 31 bits", ErrInvalidArgument, h.Number)
	}
	dst = append(dst, bsExtra...)
	dst = append(dst, srExtra...)

	sum := crc8.NewATM()
	sum.Write(dst[start:])

	return append(dst, sum.Sum8()), nil
}

// parseFrameHeader decodes a header whose two sync bytes are already in
// raw. next yields the following header bytes. info supplies the fields a
// header may defer to STREAMINFO and may be nil.
func parseFrameHeader(raw []byte, next func() (byte, error), info *StreamInfo) (FrameHeader, []byte, error) {
	var h FrameHeader

	if raw[0] != syncByte0 || raw[1]&syncMask1 != syncByte1 {
		return h, raw, fmt.Errorf("%w: %#02x%02x", ErrInvalidSync, raw[0], raw[1])
	}
	if raw[1]&reservedSync != 0 {
		return h, raw, fmt.Errorf("%w: bit after sync code", ErrReservedFieldSet)
	}
	h.VariableBlockSize = raw[1]&variableBit != 0

	read := func() (byte, error) {
		b, err := next()
		if err != nil {
			return 0, err
		}
		raw = append(raw, b)
		return b, nil
	}

	b, err := read()
	if err != nil {
		return h, raw, err
	}
	bsCode, srCode := b>>4, b&0x0F
	if bsCode == 0 {
		return h, raw, fmt.Errorf("%w: block size code 0", ErrReservedEncoding)
	}
	if srCode == sampleRateNotSet {
		return h, raw, fmt.Errorf("%w: sample rate code 15", ErrReservedEncoding)
	}

	if b, err = read(); err != nil {
		return h, raw, err
	}
	chCode, depthCode := b>>4, b>>1&0x07
	if b&0x01 != 0 {
		return h, raw, fmt.Errorf("%w: bit after sample depth", ErrReservedFieldSet)
	}
	h.Channels = ChannelAssignment(chCode)
	if !h.Channels.Valid() {
		return h, raw, fmt.Errorf("%w: channel assignment %d", ErrReservedEncoding, chCode)
	}
	switch {
	case depthCode == 3:
		return h, raw, fmt.Errorf("%w: sample depth code 3", ErrReservedEncoding)
	case depthCode == 0:
		if info == nil {
			return h, raw, fmt.Errorf("%w: sample depth deferred", ErrMissingStreamInfo)
		}
		h.BitsPerSample = info.BitsPerSample
	default:
		h.BitsPerSample = sampleDepths[depthCode]
	}

	maxBytes := maxFixedNumberBytes
	if h.VariableBlockSize {
		maxBytes = maxVariableNumberBytes
	}
	if h.Number, err = decodeCodedNumber(read, maxBytes); err != nil {
		return h, raw, err
	}

	switch bsCode {
	case blockSize8Bit:
		if b, err = read(); err != nil {
			return h, raw, err
		}
		h.BlockSize = int(b) + 1
	case blockSize16Bit:
		hi, err := read()
		if err != nil {
			return h, raw, err
		}
		lo, err := read()
		if err != nil {
			return h, raw, err
		}
		h.BlockSize = (int(hi)<<8 | int(lo)) + 1
	default:
		h.BlockSize = blockSizes[bsCode]
	}

	switch srCode {
	case 0:
		if info == nil {
			return h, raw, fmt.Errorf("%w: sample rate deferred", ErrMissingStreamInfo)
		}
		h.SampleRate = info.SampleRate
	case sampleRateKHz:
		if b, err = read(); err != nil {
			return h, raw, err
		}
		h.SampleRate = uint32(b) * 1000
	case sampleRateHz, sampleRateDaHz:
		hi, err := read()
		if err != nil {
			return h, raw, err
		}
		lo, err := read()
		if err != nil {
			return h, raw, err
		}
		h.SampleRate = uint32(hi)<<8 | uint32(lo)
		if srCode == sampleRateDaHz {
			h.SampleRate *= 10
		}
	default:
		h.SampleRate = sampleRates[srCode]
	}

	sum := crc8.NewATM()
	sum.Write(raw)
	want := sum.Sum8()
	if h.CRC8, err = read(); err != nil {
		return h, raw, err
	}
	if h.CRC8 != want {
		return h, raw, fmt.Errorf("%w: header CRC-8 %#02x, computed %#02x", ErrInvalidChecksum, h.CRC8, want)
	}

	if info != nil && h.BlockSize > int(info.MaxBlockSize) {
		return h, raw, fmt.Errorf("%w: %d > %d", ErrBlockSizeExceeded, h.BlockSize, info.MaxBlockSize)
	}

	h.SampleNumber = h.Number
	if !h.VariableBlockSize && info != nil {
		h.SampleNumber = h.Number * uint64(info.MaxBlockSize)
	}

	return h, raw, nil
}
