// Package dsp implements the deterministic short-time spectral
// analysis behind feature extraction and quality scoring. All
// transforms are pure functions of the input samples.
package dsp

import (
	"math"

	"github.com/skillsenselab/voicediag/audio"
	"github.com/skillsenselab/voicediag/logger"
)

const (
	// AnalysisOffsetSeconds is skipped at the start of every clip to
	// avoid lead-in silence before feature extraction.
	AnalysisOffsetSeconds = 0.6
	// AnalysisWindowSeconds is the fixed duration analyzed for the
	// feature vector.
	AnalysisWindowSeconds = 2.5
)

// Config controls short-time analysis parameters.
type Config struct {
	SampleRate  int
	FrameSize   int
	HopSize     int
	NumMels     int
	LowFreq     float64
	HighFreq    float64
	PreEmphasis float64
}

// DefaultConfig returns analysis parameters for the canonical sample
// rate: 2048-sample frames with 512-sample hop, a 40-band mel
// filterbank spanning 20 Hz to Nyquist.
func DefaultConfig() Config {
	return Config{
		SampleRate:  audio.CanonicalSampleRate,
		FrameSize:   2048,
		HopSize:     512,
		NumMels:     40,
		LowFreq:     20,
		HighFreq:    float64(audio.CanonicalSampleRate) / 2,
		PreEmphasis: 0.97,
	}
}

// Analyzer computes frame series and feature vectors from PCM samples.
// It precomputes the window and filterbanks so repeated extraction is
// cheap and, critically, deterministic.
type Analyzer struct {
	cfg     Config
	window  []float64
	melBank [][]float64
	chroma  []int
	log     *logger.Logger
}

// NewAnalyzer creates an Analyzer for the given config.
func NewAnalyzer(cfg Config, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Analyzer{
		cfg:     cfg,
		window:  hammingWindow(cfg.FrameSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FrameSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
		chroma:  chromaMap(cfg.FrameSize, cfg.SampleRate),
		log:     log.WithComponent("dsp"),
	}
}

// FrameSeries holds per-frame measurements over a full waveform plus
// the aggregate band-energy split used by the quality scorer.
type FrameSeries struct {
	SampleRate int
	Duration   float64
	NumFrames  int

	Energy   []float64 // sum of squared samples per frame
	RMS      []float64
	ZCR      []float64
	Centroid []float64 // spectral centroid in Hz

	// BandEnergy is the spectral energy inside [bandLow, bandHigh] Hz
	// summed over all frames; TotalEnergy is the full-spectrum sum.
	BandEnergy  float64
	TotalEnergy float64
}

// BandRatio returns the fraction of spectral energy inside the
// requested band, or 0 when the clip carries no energy at all.
func (fs *FrameSeries) BandRatio() float64 {
	if fs.TotalEnergy <= 0 {
		return 0
	}
	return fs.BandEnergy / fs.TotalEnergy
}

// AnalyzeFrames computes the per-frame series over the whole waveform.
// bandLowHz and bandHighHz bound the band-energy accumulator.
func (a *Analyzer) AnalyzeFrames(clip *audio.Clip, bandLowHz, bandHighHz float64) *FrameSeries {
	cfg := a.cfg
	samples := clip.Samples
	fs := &FrameSeries{
		SampleRate: clip.SampleRate,
		Duration:   clip.Duration(),
	}
	if len(samples) < cfg.FrameSize {
		return fs
	}

	numFrames := (len(samples)-cfg.FrameSize)/cfg.HopSize + 1
	fs.NumFrames = numFrames
	fs.Energy = make([]float64, numFrames)
	fs.RMS = make([]float64, numFrames)
	fs.ZCR = make([]float64, numFrames)
	fs.Centroid = make([]float64, numFrames)

	re := make([]float64, cfg.FrameSize)
	im := make([]float64, cfg.FrameSize)
	halfFFT := cfg.FrameSize/2 + 1
	binHz := float64(cfg.SampleRate) / float64(cfg.FrameSize)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize
		frame := samples[start : start+cfg.FrameSize]

		energy := 0.0
		crossings := 0
		for i, s := range frame {
			energy += s * s
			if i > 0 && (s >= 0) != (frame[i-1] >= 0) {
				crossings++
			}
		}
		fs.Energy[t] = energy
		fs.RMS[t] = math.Sqrt(energy / float64(cfg.FrameSize))
		fs.ZCR[t] = float64(crossings) / float64(cfg.FrameSize-1)

		for i := range re {
			re[i] = frame[i] * a.window[i]
			im[i] = 0
		}
		fft(re, im)

		var weighted, total float64
		for k := 0; k < halfFFT; k++ {
			power := re[k]*re[k] + im[k]*im[k]
			freq := float64(k) * binHz
			weighted += freq * power
			total += power
			if freq >= bandLowHz && freq <= bandHighHz {
				fs.BandEnergy += power
			}
		}
		fs.TotalEnergy += total
		if total > 0 {
			fs.Centroid[t] = weighted / total
		}
	}
	return fs
}

// ExtractFeatures computes the fixed-order feature vector from the
// analysis sub-window of the clip. Waveforms too short to fill a single
// frame after the lead-in offset degrade to the zero vector; the
// degradation is logged, never silently swallowed.
func (a *Analyzer) ExtractFeatures(clip *audio.Clip) *FeatureVector {
	seg := clip.Segment(AnalysisOffsetSeconds, AnalysisWindowSeconds)
	if len(seg.Samples) < a.cfg.FrameSize {
		a.log.Warn("waveform too short for extraction, degrading to zero vector", logger.Fields(
			"segment_samples", len(seg.Samples),
			"frame_size", a.cfg.FrameSize,
		))
		return ZeroVector()
	}

	cfg := a.cfg
	samples := seg.Samples
	numFrames := (len(samples)-cfg.FrameSize)/cfg.HopSize + 1
	halfFFT := cfg.FrameSize/2 + 1

	re := make([]float64, cfg.FrameSize)
	im := make([]float64, cfg.FrameSize)

	var fv FeatureVector
	var zcrSum, rmsSum, melSum float64
	chromaSum := make([]float64, NumChroma)
	mfccSum := make([]float64, NumMFCC)
	logMel := make([]float64, cfg.NumMels)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize
		frame := samples[start : start+cfg.FrameSize]

		energy := 0.0
		crossings := 0
		for i, s := range frame {
			energy += s * s
			if i > 0 && (s >= 0) != (frame[i-1] >= 0) {
				crossings++
			}
		}
		zcrSum += float64(crossings) / float64(cfg.FrameSize-1)
		rmsSum += math.Sqrt(energy / float64(cfg.FrameSize))

		// Pre-emphasis + window + FFT
		for i := range re {
			s := frame[i]
			if i > 0 {
				s -= cfg.PreEmphasis * frame[i-1]
			}
			re[i] = s * a.window[i]
			im[i] = 0
		}
		fft(re, im)

		power := make([]float64, halfFFT)
		for k := 0; k < halfFFT; k++ {
			power[k] = re[k]*re[k] + im[k]*im[k]
		}

		// Chroma accumulation
		frameChroma := make([]float64, NumChroma)
		for k, pc := range a.chroma {
			if pc >= 0 {
				frameChroma[pc] += power[k]
			}
		}
		// Normalize per frame so loud frames do not dominate the profile.
		maxC := 0.0
		for _, c := range frameChroma {
			if c > maxC {
				maxC = c
			}
		}
		if maxC > 0 {
			for pc := range frameChroma {
				chromaSum[pc] += frameChroma[pc] / maxC
			}
		}

		// Log mel energies + cepstral coefficients
		for m := 0; m < cfg.NumMels; m++ {
			sum := 0.0
			for k, w := range a.melBank[m] {
				sum += w * power[k]
			}
			if sum < 1e-10 {
				sum = 1e-10
			}
			logMel[m] = math.Log(sum)
			melSum += logMel[m]
		}
		for k, c := range dctII(logMel, NumMFCC) {
			mfccSum[k] += c
		}
	}

	n := float64(numFrames)
	fv.ZCR = zcrSum / n
	fv.RMS = rmsSum / n
	fv.MelSummary = melSum / (n * float64(cfg.NumMels))
	for i := range chromaSum {
		fv.Chroma[i] = chromaSum[i] / n
	}
	for i := range mfccSum {
		fv.MFCC[i] = mfccSum[i] / n
	}
	return &fv
}
