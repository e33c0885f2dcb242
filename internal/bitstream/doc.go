// SPDX-License-Identifier: EPL-2.0

// Package bitstream provides the bit-granular reader and writer used by the
// FLAC frame codec.
//
// Bits are packed MSB-first by github.com/icza/bitio. Every byte that crosses
// the underlying source or sink is also fed into a CRC-16 accumulator, so a
// frame footer can be checked (or produced) without a second pass over the
// frame bytes.
//
// # Reading
//
//	crc := crc16.NewIBM()
//	br := bitstream.NewReader(src, crc)
//	v, err := br.ReadBits(12)
//	r, err := br.ReadRice(4)
//	sum, err := br.Complete()
//
// # Writing
//
//	bw := bitstream.NewWriter(dst, crc16.NewIBM())
//	err := bw.WriteRice(-3, 2)
//	sum, n, err := bw.Complete()
package bitstream
