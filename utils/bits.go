// SPDX-License-Identifier: EPL-2.0

package utils

import "math/bits"

// Fold maps a signed value onto the unsigned range so that small magnitudes
// stay small: 0, -1, 1, -2, 2 become 0, 1, 2, 3, 4.
func Fold(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

// Unfold is the inverse of Fold.
func Unfold(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}

// Fold64 is Fold for values that may not fit in 32 bits.
func Fold64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// SignedBits returns the number of bits needed to store v in two's
// complement. Zero needs no bits.
func SignedBits(v int64) uint8 {
	if v == 0 {
		return 0
	}
	if v < 0 {
		v = ^v
	}

	return uint8(bits.Len64(uint64(v))) + 1
}

// MaxSignedBits returns the width of the widest value in values.
func MaxSignedBits(values []int32) uint8 {
	var lo, hi int32
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	return max(SignedBits(int64(lo)), SignedBits(int64(hi)))
}

// CommonTrailingZeros returns the number of low zero bits shared by every
// value. All-zero input yields 0.
func CommonTrailingZeros(values []int32) uint8 {
	var acc uint32
	for _, v := range values {
		acc |= uint32(v)
		if acc&1 != 0 {
			return 0
		}
	}
	if acc == 0 {
		return 0
	}

	return uint8(bits.TrailingZeros32(acc))
}
