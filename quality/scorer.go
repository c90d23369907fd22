// Package quality estimates how trustworthy a classification is from
// signal properties alone. The composite score is a fixed-weight blend
// of seven normalized sub-metrics with degenerate-input guards.
package quality

import (
	"math"

	"github.com/skillsenselab/voicediag/audio"
	"github.com/skillsenselab/voicediag/dsp"
	"github.com/skillsenselab/voicediag/logger"
)

// SubScores holds the seven normalized sub-metrics.
type SubScores struct {
	EnergyStability     float64 `json:"energy_stability"`
	DurationAdequacy    float64 `json:"duration_adequacy"`
	Silence             float64 `json:"silence"`
	ZCRVariability      float64 `json:"zcr_variability"`
	SpectralVariability float64 `json:"spectral_variability"`
	VoiceActivity       float64 `json:"voice_activity"`
	RespirationBand     float64 `json:"respiration_band"`
}

// Report is the full scoring output. Score is in [ScoreMin, ScoreMax]
// except for degenerate inputs, which get exactly DegenerateFloor.
type Report struct {
	Score            float64   `json:"score"`
	Sub              SubScores `json:"sub_scores"`
	SilenceRatio     float64   `json:"silence_ratio"`
	ActiveRatio      float64   `json:"active_ratio"`
	RespirationRatio float64   `json:"respiration_ratio"`
	Degenerate       bool      `json:"degenerate"`
}

// Scorer computes quality reports from normalized waveforms.
type Scorer struct {
	analyzer *dsp.Analyzer
	log      *logger.Logger
}

// NewScorer creates a Scorer sharing the pipeline's analyzer.
func NewScorer(analyzer *dsp.Analyzer, log *logger.Logger) *Scorer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Scorer{analyzer: analyzer, log: log.WithComponent("quality")}
}

// Score evaluates a waveform. Guard clauses short-circuit to the
// degenerate floor before the weighted blend is computed: those are
// unusable inputs, not ordinary low scores.
func (s *Scorer) Score(clip *audio.Clip) *Report {
	r := &Report{}
	r.SilenceRatio = silenceRatio(clip.Samples)

	frames := s.analyzer.AnalyzeFrames(clip, RespirationLowHz, RespirationHighHz)
	r.ActiveRatio = activeRatio(frames.Energy)
	r.RespirationRatio = frames.BandRatio()

	if frames.NumFrames == 0 || r.SilenceRatio > MaxSilenceRatio || r.ActiveRatio < MinActiveRatio {
		r.Degenerate = true
		r.Score = DegenerateFloor
		s.log.Warn("degenerate recording, applying floor score", logger.Fields(
			"silence_ratio", r.SilenceRatio,
			"active_ratio", r.ActiveRatio,
			"frames", frames.NumFrames,
		))
		return r
	}

	r.Sub = SubScores{
		EnergyStability:     energyStability(frames.Energy),
		DurationAdequacy:    clamp01(frames.Duration / DurationFloorSeconds),
		Silence:             silenceScore(r.SilenceRatio),
		ZCRVariability:      clamp01(1 - stddev(frames.ZCR)/ZCRStdScale),
		SpectralVariability: clamp01(1 - stddev(frames.Centroid)/CentroidStdScaleHz),
		VoiceActivity:       clamp01(r.ActiveRatio / FullActivityRatio),
		RespirationBand:     respirationScore(r.RespirationRatio),
	}

	blend := WeightEnergyStability*r.Sub.EnergyStability +
		WeightDurationAdequacy*r.Sub.DurationAdequacy +
		WeightSilence*r.Sub.Silence +
		WeightZCRVariability*r.Sub.ZCRVariability +
		WeightSpectralVariability*r.Sub.SpectralVariability +
		WeightVoiceActivity*r.Sub.VoiceActivity +
		WeightRespirationBand*r.Sub.RespirationBand

	r.Score = ScoreMin + blend*(ScoreMax-ScoreMin)
	return r
}

// silenceRatio is the fraction of samples whose amplitude falls below
// SilenceAmplitudeRatio of the clip peak. An all-zero clip is fully
// silent.
func silenceRatio(samples []float64) float64 {
	if len(samples) == 0 {
		return 1
	}
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return 1
	}
	threshold := peak * SilenceAmplitudeRatio
	silent := 0
	for _, s := range samples {
		if math.Abs(s) < threshold {
			silent++
		}
	}
	return float64(silent) / float64(len(samples))
}

// activeRatio is the fraction of frames whose energy exceeds
// ActiveEnergyRatio of the peak frame energy.
func activeRatio(energy []float64) float64 {
	if len(energy) == 0 {
		return 0
	}
	peak := 0.0
	for _, e := range energy {
		if e > peak {
			peak = e
		}
	}
	if peak == 0 {
		return 0
	}
	threshold := peak * ActiveEnergyRatio
	active := 0
	for _, e := range energy {
		if e > threshold {
			active++
		}
	}
	return float64(active) / float64(len(energy))
}

// energyStability is the inverse coefficient of variation of frame
// energy, clamped to [0, 1].
func energyStability(energy []float64) float64 {
	m := mean(energy)
	if m <= 0 {
		return 0
	}
	return clamp01(1 - stddev(energy)/m)
}

// silenceScore tolerates silence up to SilenceTolerance and falls off
// linearly toward zero at the degenerate guard threshold.
func silenceScore(ratio float64) float64 {
	if ratio <= SilenceTolerance {
		return 1
	}
	return clamp01(1 - (ratio-SilenceTolerance)/(MaxSilenceRatio-SilenceTolerance))
}

// respirationScore rewards band-energy concentration up to
// FullRespirationRatio; ratios under MinRespirationRatio are halved.
func respirationScore(ratio float64) float64 {
	score := clamp01(ratio / FullRespirationRatio)
	if ratio < MinRespirationRatio {
		score *= 0.5
	}
	return score
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	varSum := 0.0
	for _, x := range xs {
		d := x - m
		varSum += d * d
	}
	return math.Sqrt(varSum / float64(len(xs)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
