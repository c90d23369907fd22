// Package audio handles clip validation, WAV decoding and the ffmpeg
// normalization step that turns arbitrary uploads into canonical
// 16-bit PCM mono 44.1kHz waveforms.
package audio

import (
	"regexp"

	"github.com/skillsenselab/voicediag/errors"
)

const (
	// MinUploadBytes is the smallest upload accepted for processing.
	MinUploadBytes = 100

	// MinNormalizedBytes is the smallest transcoder output considered a
	// successful normalization. Anything below this is treated as a
	// transcode failure even when ffmpeg exits zero.
	MinNormalizedBytes = 1000

	// CanonicalSampleRate is the sample rate all clips are normalized to.
	CanonicalSampleRate = 44100
)

// filenamePattern accepts a word-character basename and a known audio
// container extension. Path separators and dots in the basename are
// rejected so uploads cannot escape the storage root.
var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+\.(wav|mp3|ogg|flac|webm)$`)

// ValidateUpload checks an uploaded clip's filename and size before any
// processing happens. Returns an AppError suitable for the HTTP layer.
func ValidateUpload(filename string, size int64) error {
	if !filenamePattern.MatchString(filename) {
		return errors.InvalidFilename(filename)
	}
	if size < MinUploadBytes {
		return errors.PayloadTooSmall(size)
	}
	return nil
}

// Clip is decoded mono audio ready for feature extraction.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Segment returns the clip portion starting at offset seconds and
// lasting at most duration seconds. A segment extending past the end of
// the clip is truncated; an offset past the end yields an empty clip.
func (c *Clip) Segment(offset, duration float64) *Clip {
	start := int(offset * float64(c.SampleRate))
	if start < 0 {
		start = 0
	}
	if start >= len(c.Samples) {
		return &Clip{Samples: nil, SampleRate: c.SampleRate}
	}
	end := start + int(duration*float64(c.SampleRate))
	if end > len(c.Samples) {
		end = len(c.Samples)
	}
	return &Clip{Samples: c.Samples[start:end], SampleRate: c.SampleRate}
}
