// SPDX-License-Identifier: EPL-2.0

// Package predictor implements the single step linear predictors used by
// FLAC subframes.
//
// A Predictor is fed the previous sample and returns the prediction for the
// next one. State is created per subframe from its warm-up samples and
// advanced exactly once per sample.
package predictor

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrder  = errors.New("invalid predictor order")
	ErrShortWarmup   = errors.New("not enough warm-up samples for predictor order")
	ErrNoCoefficient = errors.New("predictor needs at least one coefficient")
)

// MaxFixedOrder is the highest fixed polynomial order.
const MaxFixedOrder = 4

// Predictor predicts the next sample from the one just decoded.
type Predictor interface {
	Next(last int32) int64
}

var fixedCoefficients = [MaxFixedOrder + 1][]int32{
	nil,
	{1},
	{2, -1},
	{3, -3, 1},
	{4, -6, 4, -1},
}

// FixedCoefficients returns the polynomial coefficients of a fixed order
// predictor. The slice must not be modified.
func FixedCoefficients(order int) ([]int32, error) {
	if order < 0 || order > MaxFixedOrder {
		return nil, fmt.Errorf("%w: fixed order %d", ErrInvalidOrder, order)
	}

	return fixedCoefficients[order], nil
}

type zero struct{}

func (zero) Next(int32) int64 { return 0 }

// Zero returns the order 0 predictor.
func Zero() Predictor { return zero{} }

type repeat struct{}

func (repeat) Next(last int32) int64 { return int64(last) }

// NewFixed builds the fixed predictor of the given order. warmup holds the
// first order samples of the subframe.
func NewFixed(order int, warmup []int32) (Predictor, error) {
	coefs, err := FixedCoefficients(order)
	if err != nil {
		return nil, err
	}

	switch order {
	case 0:
		return Zero(), nil
	case 1:
		return repeat{}, nil
	}

	return newRing(coefs, warmup)
}

// NewLPC builds a predictor from quantized coefficients, coefs[0] weighting
// the most recent sample. A positive shift divides the sum with an
// arithmetic shift, a negative shift multiplies it.
func NewLPC(coefs []int32, shift int, warmup []int32) (Predictor, error) {
	if len(coefs) == 0 {
		return nil, ErrNoCoefficient
	}

	p, err := newRing(coefs, warmup)
	if err != nil {
		return nil, err
	}

	return Shift(p, shift), nil
}

// ring keeps the order-1 samples that precede the last one passed to Next.
type ring struct {
	coefs []int64
	hist  []int32
	pos   int
}

func newRing(coefs []int32, warmup []int32) (*ring, error) {
	order := len(coefs)
	if len(warmup) < order-1 {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrShortWarmup, len(warmup), order-1)
	}

	r := &ring{
		coefs: make([]int64, order),
		hist:  make([]int32, order-1),
	}
	for i, c := range coefs {
		r.coefs[i] = int64(c)
	}
	copy(r.hist, warmup[:order-1])

	return r, nil
}

func (r *ring) Next(last int32) int64 {
	acc := r.coefs[0] * int64(last)

	n := len(r.hist)
	if n == 0 {
		return acc
	}

	idx := r.pos
	for i := 1; i <= n; i++ {
		idx--
		if idx < 0 {
			idx = n - 1
		}
		acc += r.coefs[i] * int64(r.hist[idx])
	}

	r.hist[r.pos] = last
	r.pos++
	if r.pos == n {
		r.pos = 0
	}

	return acc
}

type shifted struct {
	base  Predictor
	shift int
}

func (s shifted) Next(last int32) int64 {
	v := s.base.Next(last)
	if s.shift > 0 {
		return v >> s.shift
	}

	return v << -s.shift
}

// Shift wraps p so its prediction is shifted right by shift bits, or left
// when shift is negative.
func Shift(p Predictor, shift int) Predictor {
	if shift == 0 {
		return p
	}

	return shifted{base: p, shift: shift}
}
