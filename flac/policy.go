// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"

	"github.com/ik5/audflac/lpc"
	"github.com/ik5/audflac/predictor"
)

// Compression levels accepted by PolicyFromLevel.
const (
	MinLevel     = 0
	MaxLevel     = 9
	DefaultLevel = 5
)

// OrderRange is an inclusive range of orders.
type OrderRange struct {
	Min int
	Max int
}

// Only returns the range holding just order.
func Only(order int) *OrderRange {
	return &OrderRange{Min: order, Max: order}
}

// Between returns the range [lo, hi].
func Between(lo, hi int) *OrderRange {
	return &OrderRange{Min: lo, Max: hi}
}

// StereoMode controls the stereo decorrelation search.
type StereoMode uint8

const (
	// StereoAsIs always stores left and right independently.
	StereoAsIs StereoMode = iota
	// StereoTrySides also tries left/side and side/right.
	StereoTrySides
	// StereoTrySidesAndAverage also tries mid/side.
	StereoTrySidesAndAverage
)

func (m StereoMode) String() string {
	switch m {
	case StereoAsIs:
		return "as-is"
	case StereoTrySides:
		return "try-sides"
	case StereoTrySidesAndAverage:
		return "try-sides-and-average"
	}

	return fmt.Sprintf("stereo(%d)", uint8(m))
}

// Policy bounds the encoder search. A nil order range disables that
// predictor family.
type Policy struct {
	FixedOrder     *OrderRange
	LPCOrder       *OrderRange
	PartitionOrder OrderRange
	Stereo         StereoMode
	// Parallel fans candidate evaluation out over goroutines. Results do
	// not depend on it.
	Parallel bool
}

// PolicyFromLevel returns the preset for a compression level from 0
// (fastest) to 9 (smallest).
func PolicyFromLevel(level int) (Policy, error) {
	switch level {
	case 0:
		return Policy{PartitionOrder: OrderRange{0, 0}, Stereo: StereoAsIs}, nil
	case 1:
		return Policy{FixedOrder: Between(0, 2), PartitionOrder: OrderRange{0, 3}, Stereo: StereoTrySides}, nil
	case 2:
		return Policy{FixedOrder: Between(0, 3), PartitionOrder: OrderRange{0, 3}, Stereo: StereoTrySidesAndAverage}, nil
	case 3:
		return Policy{FixedOrder: Only(0), LPCOrder: Only(6), PartitionOrder: OrderRange{0, 4}, Stereo: StereoAsIs}, nil
	case 4:
		return Policy{FixedOrder: Only(0), LPCOrder: Only(8), PartitionOrder: OrderRange{0, 4}, Stereo: StereoTrySides}, nil
	case 5:
		return Policy{FixedOrder: Only(0), LPCOrder: Only(8), PartitionOrder: OrderRange{0, 5}, Stereo: StereoTrySidesAndAverage}, nil
	case 6:
		return Policy{FixedOrder: Only(0), LPCOrder: Only(8), PartitionOrder: OrderRange{0, 6}, Stereo: StereoTrySidesAndAverage}, nil
	case 7:
		return Policy{FixedOrder: Between(0, 3), LPCOrder: Only(8), PartitionOrder: OrderRange{0, 6}, Stereo: StereoTrySidesAndAverage}, nil
	case 8:
		return Policy{FixedOrder: Between(0, 3), LPCOrder: Only(12), PartitionOrder: OrderRange{0, 6}, Stereo: StereoTrySidesAndAverage}, nil
	case 9:
		return Policy{FixedOrder: Between(0, 4), LPCOrder: Between(1, 32), PartitionOrder: OrderRange{0, 15}, Stereo: StereoTrySidesAndAverage}, nil
	}

	return Policy{}, fmt.Errorf("%w: level %d not in [%d, %d]", ErrPolicyViolation, level, MinLevel, MaxLevel)
}

// DefaultPolicy returns the level 5 preset.
func DefaultPolicy() Policy {
	p, _ := PolicyFromLevel(DefaultLevel)

	return p
}

// Validate rejects ranges outside what a subframe can express.
func (p Policy) Validate() error {
	if r := p.FixedOrder; r != nil {
		if err := checkRange("fixed order", *r, 0, predictor.MaxFixedOrder); err != nil {
			return err
		}
	}
	if r := p.LPCOrder; r != nil {
		if err := checkRange("lpc order", *r, 1, lpc.MaxOrder); err != nil {
			return err
		}
	}
	if err := checkRange("partition order", p.PartitionOrder, 0, MaxPartitionOrder); err != nil {
		return err
	}
	if p.Stereo > StereoTrySidesAndAverage {
		return fmt.Errorf("%w: stereo mode %d", ErrPolicyViolation, p.Stereo)
	}

	return nil
}

func checkRange(name string, r OrderRange, lo, hi int) error {
	switch {
	case r.Min > r.Max:
		return fmt.Errorf("%w: %s min %d > max %d", ErrPolicyViolation, name, r.Min, r.Max)
	case r.Min < lo:
		return fmt.Errorf("%w: %s min %d < %d", ErrPolicyViolation, name, r.Min, lo)
	case r.Max > hi:
		return fmt.Errorf("%w: %s max %d > %d", ErrPolicyViolation, name, r.Max, hi)
	}

	return nil
}
