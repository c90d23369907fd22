package audio

import (
	"math"
	"testing"

	apperrors "github.com/skillsenselab/voicediag/errors"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantCode apperrors.ErrorCode
	}{
		{"valid wav", "recording_01.wav", 5000, ""},
		{"valid mp3", "clip.mp3", 5000, ""},
		{"valid webm", "take_2.webm", 5000, ""},
		{"path traversal", "../etc/passwd.wav", 5000, apperrors.ErrCodeInvalidFilename},
		{"dot in basename", "my.clip.wav", 5000, apperrors.ErrCodeInvalidFilename},
		{"hyphen in basename", "my-clip.wav", 5000, apperrors.ErrCodeInvalidFilename},
		{"unknown extension", "clip.aac", 5000, apperrors.ErrCodeInvalidFilename},
		{"no extension", "clip", 5000, apperrors.ErrCodeInvalidFilename},
		{"empty filename", "", 5000, apperrors.ErrCodeInvalidFilename},
		{"too small", "clip.wav", 99, apperrors.ErrCodePayloadTooSmall},
		{"exactly minimum", "clip.wav", 100, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUpload(tc.filename, tc.size)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			appErr, ok := apperrors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %T: %v", err, err)
			}
			if appErr.Code != tc.wantCode {
				t.Errorf("expected code %s, got %s", tc.wantCode, appErr.Code)
			}
		})
	}
}

func TestClipSegment(t *testing.T) {
	clip := &Clip{Samples: make([]float64, 44100*5), SampleRate: 44100}

	t.Run("interior window", func(t *testing.T) {
		seg := clip.Segment(0.6, 2.5)
		want := int(2.5 * 44100)
		if len(seg.Samples) != want {
			t.Errorf("expected %d samples, got %d", want, len(seg.Samples))
		}
	})

	t.Run("window past end is truncated", func(t *testing.T) {
		seg := clip.Segment(4.0, 2.5)
		want := 44100 // one second left
		if len(seg.Samples) != want {
			t.Errorf("expected %d samples, got %d", want, len(seg.Samples))
		}
	})

	t.Run("offset past end yields empty clip", func(t *testing.T) {
		seg := clip.Segment(10.0, 2.5)
		if len(seg.Samples) != 0 {
			t.Errorf("expected empty segment, got %d samples", len(seg.Samples))
		}
		if seg.SampleRate != 44100 {
			t.Errorf("sample rate not preserved: %d", seg.SampleRate)
		}
	})
}

func TestClipDuration(t *testing.T) {
	clip := &Clip{Samples: make([]float64, 22050), SampleRate: 44100}
	if got := clip.Duration(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected 0.5s, got %f", got)
	}
	empty := &Clip{}
	if got := empty.Duration(); got != 0 {
		t.Errorf("expected 0 for empty clip, got %f", got)
	}
}
