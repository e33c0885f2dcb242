// SPDX-License-Identifier: EPL-2.0

package audflac

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ik5/audflac/audio"
	"github.com/ik5/audflac/formats/flac"
	"github.com/ik5/audflac/internal/audiotest"
)

func TestNewRegistryFormats(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if got, want := reg.Formats(), []string{"flac", "wav"}; !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
	for _, f := range []string{"flac", "wav"} {
		if _, ok := reg.Encoder(f); !ok {
			t.Errorf("Encoder(%q) missing", f)
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"a.wav", "wav"},
		{"dir.d/B.Flac", "flac"},
		{"noext", ""},
		{".hidden", "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			if got := FormatFromPath(tt.path); got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestTranscodeUnknownFormat(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var out bytes.Buffer

	if err := Transcode(reg, &out, "flac", bytes.NewReader(nil), "mp3"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Transcode() error = %v, want ErrUnknownFormat", err)
	}
	if err := Transcode(reg, &out, "ogg", bytes.NewReader(nil), "wav"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Transcode() error = %v, want ErrUnknownFormat", err)
	}
}

func TestTranscodeFLACToFLAC(t *testing.T) {
	t.Parallel()

	src := audiotest.NewNoiseSource(44100, 2, 20, 5000, 1)
	want := src.Samples()

	var first bytes.Buffer
	require.NoError(t, EncodeFLAC(&first, src, 0))

	var second bytes.Buffer
	require.NoError(t, Transcode(NewRegistry(), &second, "flac", &first, "flac"))

	out, err := flac.Decoder{}.Decode(&second)
	require.NoError(t, err)
	got, err := audio.ReadAll(out)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
