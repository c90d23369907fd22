package quality

// Sub-score weights for the final blend. They sum to 1 so the blend
// stays in [0, 1] before rescaling.
const (
	WeightEnergyStability     = 0.20
	WeightDurationAdequacy    = 0.15
	WeightSilence             = 0.15
	WeightZCRVariability      = 0.10
	WeightSpectralVariability = 0.10
	WeightVoiceActivity       = 0.15
	WeightRespirationBand     = 0.15
)

// Thresholds and scales for the individual sub-metrics.
const (
	// DurationFloorSeconds is the recording length at which duration
	// adequacy reaches full score.
	DurationFloorSeconds = 2.0

	// SilenceAmplitudeRatio marks a sample silent when its amplitude is
	// below this fraction of the clip peak.
	SilenceAmplitudeRatio = 0.02
	// SilenceTolerance is the silence ratio tolerated without penalty;
	// the silence sub-score falls off linearly between the tolerance
	// and MaxSilenceRatio.
	SilenceTolerance = 0.20
	// MaxSilenceRatio is the degenerate-input guard: above it the
	// recording short-circuits to the floor score.
	MaxSilenceRatio = 0.70

	// ActiveEnergyRatio marks a frame active when its energy exceeds
	// this fraction of the peak frame energy.
	ActiveEnergyRatio = 0.10
	// MinActiveRatio is the degenerate-input guard on the fraction of
	// active frames.
	MinActiveRatio = 0.10
	// FullActivityRatio is the active-frame fraction at which the
	// voice-activity sub-score reaches full marks.
	FullActivityRatio = 0.50

	// ZCRStdScale normalizes the zero-crossing-rate standard deviation.
	ZCRStdScale = 0.25
	// CentroidStdScaleHz normalizes the spectral-centroid standard
	// deviation.
	CentroidStdScaleHz = 2000.0

	// RespirationLowHz and RespirationHighHz bound the breath-energy band.
	RespirationLowHz  = 200.0
	RespirationHighHz = 800.0
	// FullRespirationRatio is the band-energy fraction at which the
	// respiration sub-score reaches full marks.
	FullRespirationRatio = 0.40
	// MinRespirationRatio halves the respiration sub-score when the
	// band carries less energy than this, since the recording likely
	// is not breath or voice content.
	MinRespirationRatio = 0.05
)

// Final score band. The score is never exactly 0 or 1 so it cannot be
// read as an absolute confidence claim.
const (
	DegenerateFloor = 0.3
	ScoreMin        = 0.05
	ScoreMax        = 0.95
)
