// SPDX-License-Identifier: EPL-2.0

package audflac

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ik5/audflac/audio"
	"github.com/ik5/audflac/formats/flac"
	"github.com/ik5/audflac/formats/wav"
)

// ErrUnknownFormat indicates a format name with no registered codec.
var ErrUnknownFormat = errors.New("unknown audio format")

// NewRegistry returns a registry holding the WAV and FLAC codecs. FLAC is
// encoded at the default level and decoded with MD5 verification.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()

	reg.Register("wav", wav.Decoder{})
	reg.RegisterEncoder("wav", wav.Encoder{})
	reg.Register("flac", flac.Decoder{VerifyMD5: true})
	reg.RegisterEncoder("flac", flac.Encoder{Level: 5})

	return reg
}

// FormatFromPath returns the lower case extension of path without its dot.
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Transcode decodes src as srcFormat and writes it to dst as dstFormat
// using the codecs of reg.
func Transcode(reg *audio.Registry, dst io.Writer, dstFormat string, src io.Reader, srcFormat string) error {
	dec, ok := reg.Get(srcFormat)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, srcFormat)
	}
	enc, ok := reg.Encoder(dstFormat)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, dstFormat)
	}

	in, err := dec.Decode(src)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	defer in.Close()

	if err := enc.Encode(dst, in); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// EncodeFLAC writes src to w as FLAC at the given level.
func EncodeFLAC(w io.Writer, src audio.Source, level int) error {
	return flac.Encoder{Level: level}.Encode(w, src)
}
