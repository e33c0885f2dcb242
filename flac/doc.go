// SPDX-License-Identifier: EPL-2.0

// Package flac encodes and decodes FLAC bitstreams.
//
// The package works on integer PCM only: samples are int32 values of the
// stream's bit depth, from 4 to 32 bits, for 1 to 8 channels. Containers,
// file handling and metadata interpretation are left to callers.
//
// # Encoding
//
// A Writer takes interleaved samples and emits one frame per full block.
// For each channel it asks an Estimator for the cheapest subframe method
// allowed by a Policy, and for stereo input it also picks the channel
// layout:
//
//	policy, _ := flac.PolicyFromLevel(8)
//	w := flac.NewWriter(out)
//	if err := w.StartStream(info, policy); err != nil {
//		return err
//	}
//	if err := w.WriteSamples(samples); err != nil {
//		return err
//	}
//	if err := w.EndStream(); err != nil {
//		return err
//	}
//
// StreamInfo, taken after EndStream, carries the frame sizes and sample
// count a caller may want to patch into the STREAMINFO written up front.
//
// # Decoding
//
// A Reader is a pull parser. Every call to Next moves to the following
// record (stream marker, metadata block, frame header, subframe, frame
// footer) and the accessors describe that record:
//
//	r := flac.NewReader(in)
//	for {
//		ok, err := r.Next()
//		if err != nil || !ok {
//			return err
//		}
//		if r.State() == flac.RecordFrame {
//			samples, err := r.ReadFrameSamples()
//			...
//		}
//	}
//
// Subframe samples are decoded lazily through a SampleIter. Any decoding
// failure is sticky; FindSync skips ahead to the next frame sync code so
// that decoding can resume past damaged data.
package flac
