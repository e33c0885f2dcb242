// SPDX-License-Identifier: EPL-2.0

package flac

import "fmt"

// sideChannel returns left-right. Inputs must be at most 31 bits wide.
func sideChannel(left, right []int32) []int32 {
	out := make([]int32, len(left))
	for i := range left {
		out[i] = left[i] - right[i]
	}

	return out
}

// midChannel returns (left+right)>>1.
func midChannel(left, right []int32) []int32 {
	out := make([]int32, len(left))
	for i := range left {
		out[i] = int32((int64(left[i]) + int64(right[i])) >> 1)
	}

	return out
}

// decorrelate converts a left/right pair into the two subframes of a.
func decorrelate(a ChannelAssignment, left, right []int32) ([]int32, []int32, error) {
	switch a {
	case ChannelsLeftRight:
		return left, right, nil
	case ChannelsLeftSide:
		return left, sideChannel(left, right), nil
	case ChannelsSideRight:
		return sideChannel(left, right), right, nil
	case ChannelsMidSide:
		return midChannel(left, right), sideChannel(left, right), nil
	}

	return nil, nil, fmt.Errorf("%w: %s is not a stereo layout", ErrInvalidArgument, a)
}

// correlate restores left and right in place from the subframes of a.
func correlate(a ChannelAssignment, ch0, ch1 []int32) {
	switch a {
	case ChannelsLeftSide:
		for i := range ch0 {
			ch1[i] = ch0[i] - ch1[i]
		}
	case ChannelsSideRight:
		for i := range ch0 {
			ch0[i] += ch1[i]
		}
	case ChannelsMidSide:
		for i := range ch0 {
			side := int64(ch1[i])
			right := int64(ch0[i]) - side>>1
			ch0[i] = int32(right + side)
			ch1[i] = int32(right)
		}
	}
}

// correlateWide is correlate for a 32 bit pair whose side channel needs
// 33 bits. side replaces the side subframe of ch0 or ch1.
func correlateWide(a ChannelAssignment, ch0, ch1 []int32, side []int64) {
	switch a {
	case ChannelsLeftSide:
		for i := range ch0 {
			ch1[i] = int32(int64(ch0[i]) - side[i])
		}
	case ChannelsSideRight:
		for i := range ch1 {
			ch0[i] = int32(side[i] + int64(ch1[i]))
		}
	case ChannelsMidSide:
		for i := range ch0 {
			right := int64(ch0[i]) - side[i]>>1
			ch0[i] = int32(right + side[i])
			ch1[i] = int32(right)
		}
	}
}
