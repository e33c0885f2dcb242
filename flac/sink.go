// SPDX-License-Identifier: EPL-2.0

package flac

import "sort"

// FrameSink observes frame boundaries as a Writer emits them. Stream
// positions count bytes from the first frame, sample positions count
// inter-channel samples from the start of the stream.
type FrameSink interface {
	StartFrame(streamPosition int64, startSample uint64)
	EndFrame(streamPosition int64, endSample uint64)
}

// NopSink ignores every callback.
type NopSink struct{}

func (NopSink) StartFrame(int64, uint64) {}
func (NopSink) EndFrame(int64, uint64)   {}

// FrameIndexEntry locates one frame.
type FrameIndexEntry struct {
	Offset      int64
	Size        int64
	FirstSample uint64
	Samples     uint64
}

// FrameIndex is a FrameSink that records every frame, which is enough to
// build a seek table or to seek directly in the encoded output.
type FrameIndex struct {
	Frames []FrameIndexEntry

	open FrameIndexEntry
}

func (f *FrameIndex) StartFrame(pos int64, sample uint64) {
	f.open = FrameIndexEntry{Offset: pos, FirstSample: sample}
}

func (f *FrameIndex) EndFrame(pos int64, sample uint64) {
	f.open.Size = pos - f.open.Offset
	f.open.Samples = sample - f.open.FirstSample
	f.Frames = append(f.Frames, f.open)
}

// Lookup returns the frame holding sample.
func (f *FrameIndex) Lookup(sample uint64) (FrameIndexEntry, bool) {
	i := sort.Search(len(f.Frames), func(i int) bool {
		e := f.Frames[i]
		return e.FirstSample+e.Samples > sample
	})
	if i == len(f.Frames) {
		return FrameIndexEntry{}, false
	}

	return f.Frames[i], true
}
