package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/skillsenselab/voicediag/errors"
	"github.com/skillsenselab/voicediag/logger"
	"github.com/skillsenselab/voicediag/observability"
	"github.com/skillsenselab/voicediag/process"
)

// Normalizer transcodes uploaded clips to canonical 16-bit PCM mono
// WAV via ffmpeg.
type Normalizer struct {
	binary      string
	timeout     time.Duration
	gracePeriod time.Duration
	log         *logger.Logger
}

// NormalizerOptions configures a Normalizer.
type NormalizerOptions struct {
	Binary      string
	Timeout     time.Duration
	GracePeriod time.Duration
	Logger      *logger.Logger
}

// NewNormalizer creates a Normalizer. Zero option fields get defaults.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.GracePeriod == 0 {
		opts.GracePeriod = 5 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Normalizer{
		binary:      opts.Binary,
		timeout:     opts.Timeout,
		gracePeriod: opts.GracePeriod,
		log:         log.WithComponent("normalizer"),
	}
}

// CheckHealth reports whether the transcoder binary is resolvable.
func (n *Normalizer) CheckHealth() observability.Health {
	if _, err := exec.LookPath(n.binary); err != nil {
		return observability.Health{
			Name:    "ffmpeg",
			Status:  observability.HealthStatusDown,
			Message: err.Error(),
		}
	}
	return observability.Health{Name: "ffmpeg", Status: observability.HealthStatusUp}
}

// Normalize transcodes inputPath into 16-bit PCM mono WAV at the
// canonical sample rate, writing to outputPath. The output must exist
// and reach MinNormalizedBytes or the normalization is treated as
// failed regardless of the transcoder's exit status.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	args := []string{
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(CanonicalSampleRate),
		"-ac", "1",
		outputPath,
		"-y",
	}

	result, err := process.Run(ctx, process.Command{
		Binary:      n.binary,
		Args:        args,
		GracePeriod: n.gracePeriod,
	})
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = string(result.Stderr)
		}
		n.log.Error("transcode failed", logger.Fields(
			"input", inputPath,
			"stderr", truncate(stderr, 512),
		))
		return errors.TranscodeFailed(err)
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil {
		return errors.TranscodeFailed(fmt.Errorf("output missing: %w", statErr))
	}
	if info.Size() < MinNormalizedBytes {
		return errors.TranscodeFailed(fmt.Errorf("output too small: %d bytes", info.Size()))
	}

	n.log.Debug("transcode complete", logger.Fields(
		"input", inputPath,
		"output_bytes", info.Size(),
		"duration_ms", result.Duration.Milliseconds(),
	))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
