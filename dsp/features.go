package dsp

// NumMFCC is the number of cepstral coefficients in the feature vector.
const NumMFCC = 13

// FeatureDim is the total length of a serialized feature vector:
// ZCR + chroma profile + cepstral coefficients + RMS + mel summary.
const FeatureDim = 1 + NumChroma + NumMFCC + 1 + 1

// FeatureVector is the fixed-order acoustic summary consumed by the
// classifier. Order is part of the contract: the classifier addresses
// features positionally.
type FeatureVector struct {
	ZCR        float64
	Chroma     [NumChroma]float64
	MFCC       [NumMFCC]float64
	RMS        float64
	MelSummary float64

	// Degraded marks a vector produced by the zero-vector fallback
	// when extraction could not run on the given waveform.
	Degraded bool
}

// Vector serializes the features in contract order.
func (f *FeatureVector) Vector() []float64 {
	v := make([]float64, 0, FeatureDim)
	v = append(v, f.ZCR)
	v = append(v, f.Chroma[:]...)
	v = append(v, f.MFCC[:]...)
	v = append(v, f.RMS, f.MelSummary)
	return v
}

// ZeroVector returns the all-zero degraded fallback vector.
func ZeroVector() *FeatureVector {
	return &FeatureVector{Degraded: true}
}
