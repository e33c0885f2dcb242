// SPDX-License-Identifier: EPL-2.0

// Package lpc derives linear prediction coefficients from sample blocks.
//
// The flow used by the encoder is:
//
//	r := lpc.Autocorrelation(samples, maxOrder)
//	solutions := lpc.Solve(r, maxOrder) // solutions[k-1] has order k
//	q, err := lpc.Quantize(solutions[order-1])
//
// Solve runs a single Levinson-Durbin recursion, so evaluating every order
// up to maxOrder costs the same as solving the largest one.
package lpc

import (
	"errors"
	"fmt"
	"math"

	"github.com/ik5/audflac/utils"
)

const (
	// MaxOrder is the highest LPC order a FLAC subframe can carry.
	MaxOrder = 32
	// MaxPrecision is the widest quantized coefficient, in bits.
	MaxPrecision = 15
	// MaxShift and MinShift bound the quantization shift written to the
	// subframe header.
	MaxShift = 15
	MinShift = 0

	coefficientBits = 14
)

var (
	ErrQuantization = errors.New("coefficients cannot be quantized")
)

// Autocorrelation returns r[0..maxLag] over samples, treating the block as
// circular: r[i] = sum(s[j] * s[(j-i) mod n]).
func Autocorrelation(samples []int32, maxLag int) []float64 {
	r := make([]float64, maxLag+1)
	for lag := range r {
		r[lag] = AutocorrelationAt(samples, lag)
	}

	return r
}

// AutocorrelationAt computes a single lag of Autocorrelation. Lags are
// independent, so callers may compute them concurrently.
func AutocorrelationAt(samples []int32, lag int) float64 {
	if len(samples) == 0 {
		return 0
	}

	return autocorrelationAt(samples, lag%len(samples))
}

func autocorrelationAt(samples []int32, lag int) float64 {
	n := len(samples)
	var sum float64
	for j, q := 0, n-lag; j < lag; j, q = j+1, q+1 {
		sum += float64(samples[j]) * float64(samples[q])
	}
	for j, q := lag, 0; j < n; j, q = j+1, q+1 {
		sum += float64(samples[j]) * float64(samples[q])
	}

	return sum
}

// Solve returns the predictor coefficients for every order 1..maxOrder.
// solutions[k-1] holds k coefficients, the first weighting the most recent
// sample. r must hold at least maxOrder+1 lags. Degenerate input (such as
// silence) yields NaN or infinite coefficients, which Quantize rejects.
func Solve(r []float64, maxOrder int) [][]float64 {
	maxOrder = min(maxOrder, len(r)-1)
	if maxOrder < 1 {
		return nil
	}

	solutions := make([][]float64, maxOrder)
	prev := []float64{}
	e := r[0]

	for k := 1; k <= maxOrder; k++ {
		acc := r[k]
		for j := 0; j < k-1; j++ {
			acc -= prev[j] * r[k-1-j]
		}
		refl := acc / e

		cur := make([]float64, k)
		for j := 0; j < k-1; j++ {
			cur[j] = prev[j] - refl*prev[k-2-j]
		}
		cur[k-1] = refl
		e *= 1 - refl*refl

		solutions[k-1] = cur
		prev = cur
	}

	return solutions
}

// Quantized is a coefficient set ready for a subframe header.
type Quantized struct {
	Coefficients []int32
	Precision    uint8
	Shift        int8
}

// Quantize converts coefficients to integers scaled by 2^Shift. The shift
// leaves about 14 bits for the largest coefficient and is reduced until the
// integers fit in MaxPrecision signed bits.
func Quantize(coefs []float64) (Quantized, error) {
	if len(coefs) == 0 {
		return Quantized{}, fmt.Errorf("%w: no coefficients", ErrQuantization)
	}

	var maxLog float64
	for _, c := range coefs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Quantized{}, fmt.Errorf("%w: non-finite coefficient", ErrQuantization)
		}
		if c == 0 {
			continue
		}
		maxLog = max(maxLog, math.Log2(math.Abs(c)))
	}

	shift := min(coefficientBits-int(math.Ceil(maxLog)), MaxShift)
	ints := make([]int32, len(coefs))

	for ; shift >= MinShift; shift-- {
		mul := math.Ldexp(1, shift)
		fits := true
		for i, c := range coefs {
			v := math.Round(c * mul)
			if v > math.MaxInt32 || v < math.MinInt32 {
				fits = false
				break
			}
			ints[i] = int32(v)
		}
		if !fits {
			continue
		}

		precision := max(utils.MaxSignedBits(ints), 1)
		if precision <= MaxPrecision {
			return Quantized{Coefficients: ints, Precision: precision, Shift: int8(shift)}, nil
		}
	}

	return Quantized{}, fmt.Errorf("%w: no shift in [%d, %d] fits %d bits", ErrQuantization, MinShift, MaxShift, MaxPrecision)
}
