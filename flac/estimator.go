// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/audflac/lpc"
	"github.com/ik5/audflac/predictor"
	"github.com/ik5/audflac/utils"
)

// runner runs n independent tasks, each writing only its own slot.
type runner struct {
	parallel bool
}

func (r runner) each(n int, fn func(i int) error) error {
	if !r.parallel || n < 2 {
		for i := range n {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for i := range n {
		g.Go(func() error { return fn(i) })
	}

	return g.Wait()
}

// Estimator searches the encoding space allowed by a Policy.
type Estimator struct {
	policy Policy
	run    runner
}

// NewEstimator validates p and returns an Estimator for it.
func NewEstimator(p Policy) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Estimator{policy: p, run: runner{parallel: p.Parallel}}, nil
}

// Policy returns the policy the estimator was built with.
func (e *Estimator) Policy() Policy {
	return e.policy
}

// BestMethod returns the cheapest method for one channel at depth bps.
func (e *Estimator) BestMethod(samples []int32, bps uint8) (Method, error) {
	n := len(samples)
	if n == 0 {
		return Method{}, fmt.Errorf("%w: empty channel", ErrInvalidArgument)
	}
	if bps < 1 || bps > MaxBitsPerSample {
		return Method{}, fmt.Errorf("%w: depth %d", ErrInvalidArgument, bps)
	}

	constant := true
	for _, s := range samples[1:] {
		if s != samples[0] {
			constant = false
			break
		}
	}
	if constant {
		return constantMethod(bps), nil
	}

	wasted := utils.CommonTrailingZeros(samples)
	work := samples
	if wasted > 0 {
		work = make([]int32, n)
		for i, s := range samples {
			work[i] = s >> wasted
		}
	}
	ebps := bps - wasted

	var fixed, linear *Method
	err := e.run.each(2, func(i int) error {
		var err error
		if i == 0 {
			fixed, err = e.bestFixed(work, ebps, wasted)
		} else {
			linear, err = e.bestLPC(work, ebps, wasted)
		}
		return err
	})
	if err != nil {
		return Method{}, err
	}

	best := verbatimMethod(ebps, n, wasted)
	for _, m := range []*Method{fixed, linear} {
		if m != nil && m.EstimatedBits < best.EstimatedBits {
			best = *m
		}
	}

	return best, nil
}

// pickBest returns the first strictly cheapest non-nil candidate.
func pickBest(candidates []*Method) *Method {
	var best *Method
	for _, m := range candidates {
		if m != nil && (best == nil || m.EstimatedBits < best.EstimatedBits) {
			best = m
		}
	}

	return best
}

func (e *Estimator) bestFixed(samples []int32, bps, wasted uint8) (*Method, error) {
	r := e.policy.FixedOrder
	if r == nil {
		return nil, nil
	}

	lo, hi := r.Min, min(r.Max, len(samples)-1)
	if hi < lo {
		return nil, nil
	}

	slots := make([]*Method, hi-lo+1)
	err := e.run.each(len(slots), func(i int) error {
		order := lo + i
		p, err := predictor.NewFixed(order, samples)
		if err != nil {
			return err
		}
		rc, ok, err := e.residualFor(samples, order, p)
		if err != nil || !ok {
			return err
		}
		m := fixedMethod(bps, order, wasted, rc)
		slots[i] = &m
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pickBest(slots), nil
}

func (e *Estimator) bestLPC(samples []int32, bps, wasted uint8) (*Method, error) {
	r := e.policy.LPCOrder
	if r == nil {
		return nil, nil
	}

	lo, hi := r.Min, min(r.Max, len(samples)-1)
	if hi < lo {
		return nil, nil
	}

	ac := make([]float64, hi+1)
	err := e.run.each(len(ac), func(lag int) error {
		ac[lag] = lpc.AutocorrelationAt(samples, lag)
		return nil
	})
	if err != nil {
		return nil, err
	}
	solutions := lpc.Solve(ac, hi)

	slots := make([]*Method, hi-lo+1)
	err = e.run.each(len(slots), func(i int) error {
		order := lo + i
		q, err := lpc.Quantize(solutions[order-1])
		if err != nil {
			// Unusable coefficients drop only this candidate.
			return nil
		}
		p, err := predictor.NewLPC(q.Coefficients, int(q.Shift), samples)
		if err != nil {
			return err
		}
		rc, ok, err := e.residualFor(samples, order, p)
		if err != nil || !ok {
			return err
		}
		m := lpcMethod(bps, q, wasted, rc)
		slots[i] = &m
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pickBest(slots), nil
}

// residualFor reports ok=false when the prediction error overflows 32 bits.
func (e *Estimator) residualFor(samples []int32, order int, p predictor.Predictor) (*ResidualCoding, bool, error) {
	res, ok := computeResidual(samples, order, p, make([]int32, 0, len(samples)-order))
	if !ok {
		return nil, false, nil
	}

	rc, err := FindBestResidual(res, order, e.policy.PartitionOrder)
	if err != nil {
		return nil, false, err
	}

	return rc, true, nil
}

// BestMethods estimates every channel independently at depth bps.
func (e *Estimator) BestMethods(channels [][]int32, bps uint8) ([]ChannelEncoding, error) {
	out := make([]ChannelEncoding, len(channels))
	err := e.run.each(len(channels), func(i int) error {
		m, err := e.BestMethod(channels[i], bps)
		if err != nil {
			return err
		}
		out[i] = ChannelEncoding{Method: m, Samples: channels[i]}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// BestStereo chooses the stereo layout for a left/right pair. On equal
// cost the order of preference is left/right, left/side, side/right,
// mid/side. Input wider than 31 bits is kept as left/right since its side
// channel would not fit in 32 bits.
func (e *Estimator) BestStereo(left, right []int32, bps uint8) (ChannelAssignment, []ChannelEncoding, error) {
	if len(left) != len(right) {
		return 0, nil, fmt.Errorf("%w: channel lengths %d and %d", ErrInvalidArgument, len(left), len(right))
	}
	if e.policy.Stereo == StereoAsIs || bps >= MaxBitsPerSample {
		encs, err := e.BestMethods([][]int32{left, right}, bps)
		return ChannelsLeftRight, encs, err
	}

	tryMid := e.policy.Stereo == StereoTrySidesAndAverage

	var side, mid []int32
	var mLeft, mRight, mSide, mMid Method
	err := e.run.each(4, func(i int) error {
		var err error
		switch i {
		case 0:
			mLeft, err = e.BestMethod(left, bps)
		case 1:
			mRight, err = e.BestMethod(right, bps)
		case 2:
			side = sideChannel(left, right)
			mSide, err = e.BestMethod(side, bps+1)
		case 3:
			if tryMid {
				mid = midChannel(left, right)
				mMid, err = e.BestMethod(mid, bps)
			}
		}
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	midCost := int64(math.MaxInt64)
	if tryMid {
		midCost = mMid.EstimatedBits + mSide.EstimatedBits
	}

	layouts := []struct {
		assignment ChannelAssignment
		cost       int64
		encs       []ChannelEncoding
	}{
		{ChannelsLeftRight, mLeft.EstimatedBits + mRight.EstimatedBits,
			[]ChannelEncoding{{mLeft, left}, {mRight, right}}},
		{ChannelsLeftSide, mLeft.EstimatedBits + mSide.EstimatedBits,
			[]ChannelEncoding{{mLeft, left}, {mSide, side}}},
		{ChannelsSideRight, mSide.EstimatedBits + mRight.EstimatedBits,
			[]ChannelEncoding{{mSide, side}, {mRight, right}}},
		{ChannelsMidSide, midCost,
			[]ChannelEncoding{{mMid, mid}, {mSide, side}}},
	}

	best := 0
	for i := 1; i < len(layouts); i++ {
		if layouts[i].cost < layouts[best].cost {
			best = i
		}
	}

	return layouts[best].assignment, layouts[best].encs, nil
}
