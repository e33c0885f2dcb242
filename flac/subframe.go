// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"

	"github.com/ik5/audflac/internal/bitstream"
	"github.com/ik5/audflac/predictor"
)

// SubframeHeader holds everything a subframe carries before its residual
// values. BitsPerSample is the depth of the channel, wasted bits included.
type SubframeHeader struct {
	Type          SubframeType
	Order         int
	Wasted        uint8
	BitsPerSample uint8
	// Warmup holds the constant value, or the first Order samples of a Fixed
	// or LPC subframe, with wasted bits still removed.
	Warmup       []int32
	// WarmupWide replaces Warmup for the 33 bit side channel of a 32 bit
	// stereo frame.
	WarmupWide   []int64
	Precision    uint8
	Shift        int8
	Coefficients []int32

	PartitionOrder   uint8
	ResidualExtended bool
}

func readSubframeHeader(br *bitstream.Reader, bps uint8, blockSize int) (SubframeHeader, error) {
	h := SubframeHeader{BitsPerSample: bps}

	pad, err := br.ReadBits(1)
	if err != nil {
		return h, err
	}
	if pad != 0 {
		return h, fmt.Errorf("%w: subframe padding bit", ErrReservedFieldSet)
	}

	code, err := br.ReadBits(6)
	if err != nil {
		return h, err
	}
	switch {
	case code == typeCodeConstant:
		h.Type = SubframeConstant
	case code == typeCodeVerbatim:
		h.Type = SubframeVerbatim
	case code >= typeCodeFixed && code <= typeCodeFixed+predictor.MaxFixedOrder:
		h.Type, h.Order = SubframeFixed, int(code-typeCodeFixed)
	case code >= typeCodeLPC:
		h.Type, h.Order = SubframeLPC, int(code-typeCodeLPC)+1
	default:
		return h, fmt.Errorf("%w: subframe type %#02x", ErrReservedEncoding, code)
	}

	hasWasted, err := br.ReadBool()
	if err != nil {
		return h, err
	}
	if hasWasted {
		k, err := br.ReadUnary()
		if err != nil {
			return h, err
		}
		if k+1 >= uint32(bps) {
			return h, fmt.Errorf("%w: %d wasted bits at depth %d", ErrReservedEncoding, k+1, bps)
		}
		h.Wasted = uint8(k + 1)
	}
	ebps := bps - h.Wasted

	switch h.Type {
	case SubframeConstant:
		return h, h.readWarmup(br, ebps, 1)
	case SubframeVerbatim:
		return h, nil
	}

	if h.Order > blockSize {
		return h, fmt.Errorf("%w: predictor order %d for block of %d", ErrInvalidPartitionOrder, h.Order, blockSize)
	}
	if err := h.readWarmup(br, ebps, h.Order); err != nil {
		return h, err
	}

	if h.Type == SubframeLPC {
		p, err := br.ReadBits(4)
		if err != nil {
			return h, err
		}
		if p == 0x0F {
			return h, fmt.Errorf("%w: coefficient precision code 15", ErrReservedEncoding)
		}
		h.Precision = uint8(p) + 1

		shift, err := br.ReadSigned(5)
		if err != nil {
			return h, err
		}
		h.Shift = int8(shift)

		h.Coefficients = make([]int32, h.Order)
		for i := range h.Coefficients {
			if h.Coefficients[i], err = br.ReadSigned(h.Precision); err != nil {
				return h, err
			}
		}
	}

	method, err := br.ReadBits(2)
	if err != nil {
		return h, err
	}
	switch method {
	case residualRice:
	case residualRice2:
		h.ResidualExtended = true
	default:
		return h, fmt.Errorf("%w: residual coding method %d", ErrReservedEncoding, method)
	}

	po, err := br.ReadBits(4)
	if err != nil {
		return h, err
	}
	if err := checkPartitionOrder(blockSize, int(po), h.Order); err != nil {
		return h, err
	}
	h.PartitionOrder = uint8(po)

	return h, nil
}

func (h *SubframeHeader) wide() bool { return h.BitsPerSample > MaxBitsPerSample }

func (h *SubframeHeader) readWarmup(br *bitstream.Reader, bits uint8, n int) error {
	vals := make([]int64, n)
	for i := range vals {
		v, err := readWide(br, bits)
		if err != nil {
			return err
		}
		vals[i] = v
	}

	if h.wide() {
		h.WarmupWide = vals
		return nil
	}
	h.Warmup = make([]int32, n)
	for i, v := range vals {
		h.Warmup[i] = int32(v)
	}

	return nil
}

func (h *SubframeHeader) warmup(i int) int64 {
	if h.wide() {
		return h.WarmupWide[i]
	}

	return int64(h.Warmup[i])
}

// readWide reads a signed field of up to 33 bits.
func readWide(br *bitstream.Reader, n uint8) (int64, error) {
	if n <= 32 {
		v, err := br.ReadSigned(n)
		return int64(v), err
	}

	hi, err := br.ReadSigned(n - 32)
	if err != nil {
		return 0, err
	}
	lo, err := br.ReadBits(32)
	if err != nil {
		return 0, err
	}

	return int64(hi)<<32 | int64(lo), nil
}

// widePredictor is the 64 bit predictor of a 33 bit side channel.
type widePredictor struct {
	coefs []int64
	shift int
	// hist holds the most recent samples, newest first.
	hist []int64
}

func newWidePredictor(coefs []int32, shift int) *widePredictor {
	p := &widePredictor{
		coefs: make([]int64, len(coefs)),
		shift: shift,
		hist:  make([]int64, len(coefs)),
	}
	for i, c := range coefs {
		p.coefs[i] = int64(c)
	}

	return p
}

func (p *widePredictor) push(v int64) {
	if len(p.hist) == 0 {
		return
	}
	copy(p.hist[1:], p.hist)
	p.hist[0] = v
}

func (p *widePredictor) next() int64 {
	var acc int64
	for i, c := range p.coefs {
		acc += c * p.hist[i]
	}
	if p.shift > 0 {
		return acc >> p.shift
	}

	return acc << -p.shift
}

// SampleIter yields the samples of one subframe as they are decoded:
//
//	for it.Next() {
//		s := it.Value()
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// Values have wasted bits restored. An error ends the iteration and puts
// the owning Reader into its error state. The 33 bit side channel of a
// 32 bit stereo frame must be read with WideValue.
type SampleIter struct {
	br     *bitstream.Reader
	hdr    *SubframeHeader
	n      int
	i      int
	value  int32
	wideV  int64
	err    error
	onFail func(error)

	pred predictor.Predictor
	last int32
	wide *widePredictor

	spp       int
	part      int
	left      int
	paramBits uint8
	param     uint8
	escaped   bool
	escBits   uint8
}

func newSampleIter(br *bitstream.Reader, hdr *SubframeHeader, blockSize int, onFail func(error)) (*SampleIter, error) {
	it := &SampleIter{br: br, hdr: hdr, n: blockSize, onFail: onFail}

	var err error
	switch {
	case hdr.Type != SubframeFixed && hdr.Type != SubframeLPC:
		return it, nil
	case hdr.wide() && hdr.Type == SubframeFixed:
		coefs, ferr := predictor.FixedCoefficients(hdr.Order)
		it.wide, err = newWidePredictor(coefs, 0), ferr
	case hdr.wide():
		it.wide = newWidePredictor(hdr.Coefficients, int(hdr.Shift))
	case hdr.Type == SubframeFixed:
		it.pred, err = predictor.NewFixed(hdr.Order, hdr.Warmup)
	default:
		it.pred, err = predictor.NewLPC(hdr.Coefficients, int(hdr.Shift), hdr.Warmup)
	}
	if err != nil {
		return nil, err
	}

	it.spp = blockSize >> hdr.PartitionOrder
	it.paramBits = riceParamBits
	if hdr.ResidualExtended {
		it.paramBits = riceParamBitsExtended
	}

	return it, nil
}

// Len returns the number of samples in the subframe.
func (it *SampleIter) Len() int { return it.n }

// Value returns the sample produced by the last successful Next.
func (it *SampleIter) Value() int32 { return it.value }

// WideValue is Value without truncation to 32 bits.
func (it *SampleIter) WideValue() int64 { return it.wideV }

// Err returns the error that ended the iteration, if any.
func (it *SampleIter) Err() error { return it.err }

// Next decodes the next sample.
func (it *SampleIter) Next() bool {
	if it.err != nil || it.i >= it.n {
		return false
	}

	v, err := it.decode()
	if err != nil {
		it.err = err
		if it.onFail != nil {
			it.onFail(err)
		}
		return false
	}

	it.wideV = v << it.hdr.Wasted
	it.value = int32(it.wideV)
	it.i++

	return true
}

func (it *SampleIter) decode() (int64, error) {
	h := it.hdr
	switch h.Type {
	case SubframeConstant:
		return h.warmup(0), nil
	case SubframeVerbatim:
		return readWide(it.br, h.BitsPerSample-h.Wasted)
	}

	if it.i < h.Order {
		v := h.warmup(it.i)
		if it.wide != nil {
			it.wide.push(v)
		}
		it.last = int32(v)
		return v, nil
	}

	if it.left == 0 {
		if err := it.startPartition(); err != nil {
			return 0, err
		}
	}
	it.left--

	var r int32
	var err error
	if it.escaped {
		r, err = it.br.ReadSigned(it.escBits)
	} else {
		r, err = it.br.ReadRice(it.param)
	}
	if err != nil {
		return 0, err
	}

	if it.wide != nil {
		v := int64(r) + it.wide.next()
		it.wide.push(v)
		return v, nil
	}
	it.last = int32(int64(r) + it.pred.Next(it.last))

	return int64(it.last), nil
}

func (it *SampleIter) startPartition() error {
	p, err := it.br.ReadBits(it.paramBits)
	if err != nil {
		return err
	}

	it.escaped = p == 1<<it.paramBits-1
	if it.escaped {
		w, err := it.br.ReadBits(escapeWidthBits)
		if err != nil {
			return err
		}
		it.escBits = uint8(w)
	} else {
		it.param = uint8(p)
	}

	it.left = it.spp
	if it.part == 0 {
		it.left -= it.hdr.Order
	}
	it.part++

	return nil
}
