// SPDX-License-Identifier: EPL-2.0

// Package memio holds in-memory seekable buffers for containers whose
// libraries need to seek.
package memio

import (
	"errors"
	"fmt"
	"io"
)

var ErrNegativePosition = errors.New("negative position")

func seek(cur, size, offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = cur + offset
	case io.SeekEnd:
		pos = size + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if pos < 0 {
		return 0, ErrNegativePosition
	}

	return pos, nil
}

// ReadSeeker reads from a byte slice.
type ReadSeeker struct {
	data   []byte
	offset int64
}

func NewReadSeeker(data []byte) *ReadSeeker {
	return &ReadSeeker{data: data}
}

func (rs *ReadSeeker) Read(p []byte) (int, error) {
	if rs.offset >= int64(len(rs.data)) {
		return 0, io.EOF
	}
	n := copy(p, rs.data[rs.offset:])
	rs.offset += int64(n)

	return n, nil
}

func (rs *ReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := seek(rs.offset, int64(len(rs.data)), offset, whence)
	if err != nil {
		return 0, err
	}
	rs.offset = pos

	return pos, nil
}

// WriteSeeker is a growable buffer. Writes past the end zero fill the gap.
type WriteSeeker struct {
	data   []byte
	offset int64
}

func (ws *WriteSeeker) Write(p []byte) (int, error) {
	end := ws.offset + int64(len(p))
	if end > int64(len(ws.data)) {
		ws.data = append(ws.data, make([]byte, end-int64(len(ws.data)))...)
	}
	copy(ws.data[ws.offset:], p)
	ws.offset = end

	return len(p), nil
}

func (ws *WriteSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := seek(ws.offset, int64(len(ws.data)), offset, whence)
	if err != nil {
		return 0, err
	}
	ws.offset = pos

	return pos, nil
}

// Bytes returns everything written so far.
func (ws *WriteSeeker) Bytes() []byte { return ws.data }
