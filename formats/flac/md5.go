// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"crypto/md5"
	"hash"
)

// signature hashes samples the way STREAMINFO expects: each sample little
// endian in the smallest whole number of bytes that holds the depth.
type signature struct {
	h     hash.Hash
	width int
	buf   []byte
}

func newSignature(depth int) *signature {
	return &signature{h: md5.New(), width: (depth + 7) / 8}
}

func (s *signature) write(samples []int32) {
	s.buf = s.buf[:0]
	for _, v := range samples {
		u := uint32(v)
		for i := range s.width {
			s.buf = append(s.buf, byte(u>>(8*i)))
		}
	}
	s.h.Write(s.buf)
}

func (s *signature) sum() [16]byte {
	var out [16]byte
	copy(out[:], s.h.Sum(nil))

	return out
}
