// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"math"

	"github.com/ik5/audflac/internal/bitstream"
	"github.com/ik5/audflac/predictor"
	"github.com/ik5/audflac/utils"
)

const (
	residualRice  = 0
	residualRice2 = 1

	riceParamBits         = 4
	riceParamBitsExtended = 5
	escapeWidthBits       = 5
	maxEscapeBits         = 1<<escapeWidthBits - 1
	// Parameters from this value on need the 5 bit field.
	minExtendedParam = 15
	maxRiceParam     = 30
)

// RicePartition is the coding of one residual partition: either a Rice
// parameter or, when Escaped, raw signed values of EscapeBits each.
type RicePartition struct {
	Param      uint8
	Escaped    bool
	EscapeBits uint8
}

// ResidualCoding describes a partitioned Rice residual.
type ResidualCoding struct {
	PartitionOrder uint8
	Partitions     []RicePartition
	// Extended selects 5 bit parameter fields.
	Extended      bool
	EstimatedBits int64
}

func (rc *ResidualCoding) paramBits() uint8 {
	if rc.Extended {
		return riceParamBitsExtended
	}

	return riceParamBits
}

func (rc *ResidualCoding) validate(blockSize, order int) error {
	if err := checkPartitionOrder(blockSize, int(rc.PartitionOrder), order); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if len(rc.Partitions) != 1<<rc.PartitionOrder {
		return fmt.Errorf("%w: %d partitions for order %d", ErrInvalidArgument, len(rc.Partitions), rc.PartitionOrder)
	}

	escape := uint8(1)<<rc.paramBits() - 1
	for _, p := range rc.Partitions {
		if p.Escaped {
			if p.EscapeBits > maxEscapeBits {
				return fmt.Errorf("%w: escape width %d", ErrInvalidArgument, p.EscapeBits)
			}
			continue
		}
		if p.Param >= escape {
			return fmt.Errorf("%w: rice parameter %d needs a wider field", ErrInvalidArgument, p.Param)
		}
	}

	return nil
}

// checkPartitionOrder applies the partition layout rule shared by both
// directions.
func checkPartitionOrder(blockSize, partitionOrder, order int) error {
	if blockSize%(1<<partitionOrder) != 0 || blockSize>>partitionOrder <= order {
		return fmt.Errorf("%w: order %d for block of %d with predictor order %d",
			ErrInvalidPartitionOrder, partitionOrder, blockSize, order)
	}

	return nil
}

// computeResidual appends the prediction error for samples[order:] to dst.
// It reports false when an error value does not fit in 32 bits.
func computeResidual(samples []int32, order int, p predictor.Predictor, dst []int32) ([]int32, bool) {
	var last int32
	if order > 0 {
		last = samples[order-1]
	}

	for _, s := range samples[order:] {
		r := int64(s) - p.Next(last)
		if r > math.MaxInt32 || r < math.MinInt32 {
			return nil, false
		}
		dst = append(dst, int32(r))
		last = s
	}

	return dst, true
}

// partitionCost picks the cheapest coding of one partition. Escape wins
// only when strictly smaller than the best Rice parameter.
func partitionCost(res []int32) (RicePartition, int64) {
	count := int64(len(res))
	width := utils.MaxSignedBits(res)
	escaped := RicePartition{Escaped: true, EscapeBits: width}
	escapeCost := int64(width)*count + escapeWidthBits

	if width < 2 {
		return escaped, escapeCost
	}

	maxParam := min(int(width)-2, maxRiceParam)
	var sizes [maxRiceParam + 1]int64
	for m := 0; m <= maxParam; m++ {
		sizes[m] = int64(m+1) * count
	}
	for _, v := range res {
		u := uint64(utils.Fold(v))
		for m := 0; m <= maxParam; m++ {
			sizes[m] += int64(u >> m)
		}
	}

	best := 0
	for m := 1; m <= maxParam; m++ {
		if sizes[m] < sizes[best] {
			best = m
		}
	}
	if escapeCost < sizes[best] && width <= maxEscapeBits {
		return escaped, escapeCost
	}

	return RicePartition{Param: uint8(best)}, sizes[best]
}

// FindBestResidual searches the partition orders in po for the cheapest
// coding of residual, the prediction error of a block of
// len(residual)+order samples. When the block size is not a multiple of
// 2^po.Min, only order 0 is tried. Ties keep the lower order.
func FindBestResidual(residual []int32, order int, po OrderRange) (*ResidualCoding, error) {
	blockSize := len(residual) + order
	lo, hi := po.Min, po.Max
	spp := blockSize >> lo
	if spp<<lo != blockSize {
		lo, hi = 0, 0
		spp = blockSize
	}

	var best *ResidualCoding
	for o := lo; o <= hi; o++ {
		if spp <= order {
			break
		}

		rc := &ResidualCoding{
			PartitionOrder: uint8(o),
			Partitions:     make([]RicePartition, 1<<o),
		}
		var data int64
		start := 0
		for i := range rc.Partitions {
			end := (i+1)*spp - order
			p, cost := partitionCost(residual[start:end])
			rc.Partitions[i] = p
			data += cost
			if !p.Escaped && p.Param >= minExtendedParam {
				rc.Extended = true
			}
			start = end
		}
		rc.EstimatedBits = 4 + data + int64(len(rc.Partitions))*int64(rc.paramBits())

		if best == nil || rc.EstimatedBits < best.EstimatedBits {
			best = rc
		}

		if spp&1 != 0 {
			break
		}
		spp >>= 1
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no partition order in [%d, %d] fits %d samples at order %d",
			ErrInvalidPartitionOrder, po.Min, po.Max, blockSize, order)
	}

	return best, nil
}

// write serializes the residual block. residual excludes the warm-up
// samples.
func (rc *ResidualCoding) write(bw *bitstream.Writer, residual []int32, order int) error {
	method := uint32(residualRice)
	if rc.Extended {
		method = residualRice2
	}
	if err := bw.WriteBits(method, 2); err != nil {
		return err
	}
	if err := bw.WriteBits(uint32(rc.PartitionOrder), 4); err != nil {
		return err
	}

	paramBits := rc.paramBits()
	escape := uint32(1)<<paramBits - 1
	spp := (len(residual) + order) >> rc.PartitionOrder

	start := 0
	for i, p := range rc.Partitions {
		end := (i+1)*spp - order
		part := residual[start:end]
		start = end

		if p.Escaped {
			if w := utils.MaxSignedBits(part); w > p.EscapeBits {
				return fmt.Errorf("%w: partition %d needs %d bits, escape has %d", ErrInvalidArgument, i, w, p.EscapeBits)
			}
			if err := bw.WriteBits(escape, paramBits); err != nil {
				return err
			}
			if err := bw.WriteBits(uint32(p.EscapeBits), escapeWidthBits); err != nil {
				return err
			}
			for _, v := range part {
				if err := bw.WriteSigned(v, p.EscapeBits); err != nil {
					return err
				}
			}
			continue
		}

		if err := bw.WriteBits(uint32(p.Param), paramBits); err != nil {
			return err
		}
		for _, v := range part {
			if err := bw.WriteRice(v, p.Param); err != nil {
				return err
			}
		}
	}

	return nil
}
