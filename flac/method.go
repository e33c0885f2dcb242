// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"

	"github.com/ik5/audflac/internal/bitstream"
	"github.com/ik5/audflac/lpc"
	"github.com/ik5/audflac/predictor"
)

// Subframe type codes.
const (
	typeCodeConstant = 0x00
	typeCodeVerbatim = 0x01
	typeCodeFixed    = 0x08
	typeCodeLPC      = 0x20
)

// Method is the encoding chosen for one subframe. Order applies to Fixed
// and LPC, LPC to LPC only, and Residual to both.
type Method struct {
	Type   SubframeType
	Order  int
	Wasted uint8
	LPC    lpc.Quantized
	// Residual holds the partition layout of the prediction error.
	Residual *ResidualCoding
	// EstimatedBits is the payload size used to compare candidates.
	EstimatedBits int64
}

// TypeCode returns the 6 bit subframe type field.
func (m Method) TypeCode() uint8 {
	switch m.Type {
	case SubframeConstant:
		return typeCodeConstant
	case SubframeVerbatim:
		return typeCodeVerbatim
	case SubframeFixed:
		return typeCodeFixed + uint8(m.Order)
	}

	return typeCodeLPC + uint8(m.Order-1)
}

func (m Method) String() string {
	switch m.Type {
	case SubframeFixed, SubframeLPC:
		return fmt.Sprintf("%s(order=%d, bits=%d)", m.Type, m.Order, m.EstimatedBits)
	}

	return fmt.Sprintf("%s(bits=%d)", m.Type, m.EstimatedBits)
}

// ChannelEncoding pairs a subframe's samples with its method.
type ChannelEncoding struct {
	Method  Method
	Samples []int32
}

func constantMethod(bps uint8) Method {
	return Method{Type: SubframeConstant, EstimatedBits: int64(bps)}
}

func verbatimMethod(bps uint8, n int, wasted uint8) Method {
	return Method{Type: SubframeVerbatim, Wasted: wasted, EstimatedBits: int64(bps) * int64(n)}
}

func fixedMethod(bps uint8, order int, wasted uint8, rc *ResidualCoding) Method {
	return Method{
		Type:          SubframeFixed,
		Order:         order,
		Wasted:        wasted,
		Residual:      rc,
		EstimatedBits: int64(bps)*int64(order) + rc.EstimatedBits,
	}
}

func lpcMethod(bps uint8, q lpc.Quantized, wasted uint8, rc *ResidualCoding) Method {
	order := len(q.Coefficients)

	return Method{
		Type:     SubframeLPC,
		Order:    order,
		Wasted:   wasted,
		LPC:      q,
		Residual: rc,
		EstimatedBits: int64(bps)*int64(order) + 4 + 5 +
			int64(q.Precision)*int64(order) + rc.EstimatedBits,
	}
}

// predictorFor builds the predictor of a Fixed or LPC method seeded with
// the first samples of the block.
func (m Method) predictorFor(samples []int32) (predictor.Predictor, error) {
	switch m.Type {
	case SubframeFixed:
		return predictor.NewFixed(m.Order, samples)
	case SubframeLPC:
		return predictor.NewLPC(m.LPC.Coefficients, int(m.LPC.Shift), samples)
	}

	return nil, fmt.Errorf("%w: %s has no predictor", ErrInvalidArgument, m.Type)
}

// validate checks m against the samples it will encode at depth bps.
func (m Method) validate(samples []int32, bps uint8) error {
	n := len(samples)
	if n == 0 {
		return fmt.Errorf("%w: empty subframe", ErrInvalidArgument)
	}
	if m.Wasted >= bps && m.Type != SubframeConstant {
		return fmt.Errorf("%w: %d wasted bits at depth %d", ErrInvalidArgument, m.Wasted, bps)
	}

	switch m.Type {
	case SubframeConstant:
		for _, s := range samples[1:] {
			if s != samples[0] {
				return fmt.Errorf("%w: constant method on varying samples", ErrInvalidArgument)
			}
		}
		return nil
	case SubframeVerbatim:
		return nil
	case SubframeFixed:
		if m.Order < 0 || m.Order > predictor.MaxFixedOrder {
			return fmt.Errorf("%w: fixed order %d", ErrInvalidArgument, m.Order)
		}
	case SubframeLPC:
		if m.Order < 1 || m.Order > lpc.MaxOrder || len(m.LPC.Coefficients) != m.Order {
			return fmt.Errorf("%w: lpc order %d with %d coefficients", ErrInvalidArgument, m.Order, len(m.LPC.Coefficients))
		}
		if m.LPC.Precision < 1 || m.LPC.Precision > lpc.MaxPrecision {
			return fmt.Errorf("%w: lpc precision %d", ErrInvalidArgument, m.LPC.Precision)
		}
		if m.LPC.Shift < -16 || m.LPC.Shift > 15 {
			return fmt.Errorf("%w: lpc shift %d", ErrInvalidArgument, m.LPC.Shift)
		}
	default:
		return fmt.Errorf("%w: subframe type %d", ErrInvalidArgument, m.Type)
	}

	if m.Residual == nil {
		return fmt.Errorf("%w: %s without residual coding", ErrInvalidArgument, m.Type)
	}
	if n <= m.Order {
		return fmt.Errorf("%w: %d samples for order %d", ErrInvalidArgument, n, m.Order)
	}

	return m.Residual.validate(n, m.Order)
}

// writeSubframe serializes one subframe. samples are at full depth bps;
// wasted bits are shifted out here.
func writeSubframe(bw *bitstream.Writer, enc ChannelEncoding, bps uint8) error {
	m := enc.Method
	if err := m.validate(enc.Samples, bps); err != nil {
		return err
	}

	samples := enc.Samples
	if m.Wasted > 0 && m.Type != SubframeConstant {
		shifted := make([]int32, len(samples))
		for i, s := range samples {
			if s&(1<<m.Wasted-1) != 0 {
				return fmt.Errorf("%w: sample %d has fewer than %d wasted bits", ErrInvalidArgument, s, m.Wasted)
			}
			shifted[i] = s >> m.Wasted
		}
		samples = shifted
		bps -= m.Wasted
	}

	if err := bw.WriteBits(0, 1); err != nil {
		return err
	}
	if err := bw.WriteBits(uint32(m.TypeCode()), 6); err != nil {
		return err
	}
	if m.Wasted > 0 && m.Type != SubframeConstant {
		if err := bw.WriteBool(true); err != nil {
			return err
		}
		if err := bw.WriteUnary(uint32(m.Wasted) - 1); err != nil {
			return err
		}
	} else if err := bw.WriteBool(false); err != nil {
		return err
	}

	switch m.Type {
	case SubframeConstant:
		return bw.WriteSigned(samples[0], bps)
	case SubframeVerbatim:
		for _, s := range samples {
			if err := bw.WriteSigned(s, bps); err != nil {
				return err
			}
		}
		return nil
	}

	for _, s := range samples[:m.Order] {
		if err := bw.WriteSigned(s, bps); err != nil {
			return err
		}
	}
	if m.Type == SubframeLPC {
		if err := bw.WriteBits(uint32(m.LPC.Precision-1), 4); err != nil {
			return err
		}
		if err := bw.WriteSigned(int32(m.LPC.Shift), 5); err != nil {
			return err
		}
		for _, c := range m.LPC.Coefficients {
			if err := bw.WriteSigned(c, m.LPC.Precision); err != nil {
				return err
			}
		}
	}

	p, err := m.predictorFor(samples)
	if err != nil {
		return err
	}
	residual, ok := computeResidual(samples, m.Order, p, nil)
	if !ok {
		return fmt.Errorf("%w: residual of %s exceeds 32 bits", ErrInvalidArgument, m)
	}

	return m.Residual.write(bw, residual, m.Order)
}
