package dsp

import (
	"math"
	"testing"

	"github.com/skillsenselab/voicediag/audio"
)

func testClip(freq float64, seconds float64) *audio.Clip {
	sr := audio.CanonicalSampleRate
	n := int(seconds * float64(sr))
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / float64(sr)
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*t)
	}
	return &audio.Clip{Samples: samples, SampleRate: sr}
}

func TestFFT(t *testing.T) {
	// DC + one-cycle cosine in an 8-sample window has energy at bins 0 and 1.
	n := 8
	re := make([]float64, n)
	im := make([]float64, n)
	for i := range re {
		re[i] = 1.0 + math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	fft(re, im)

	if math.Abs(re[0]-8.0) > 1e-9 {
		t.Errorf("DC bin = %f, want 8", re[0])
	}
	if math.Abs(re[1]-4.0) > 1e-9 {
		t.Errorf("bin 1 = %f, want 4", re[1])
	}
	for k := 2; k <= n/2; k++ {
		mag := math.Hypot(re[k], im[k])
		if mag > 1e-9 {
			t.Errorf("bin %d magnitude = %g, want 0", k, mag)
		}
	}
}

func TestHammingWindow(t *testing.T) {
	w := hammingWindow(2048)
	if math.Abs(w[0]-0.08) > 0.01 {
		t.Errorf("w[0] = %f, want ~0.08", w[0])
	}
	if math.Abs(w[1023]-1.0) > 0.02 {
		t.Errorf("w[1023] = %f, want ~1.0", w[1023])
	}
}

func TestMelRoundTrip(t *testing.T) {
	hz := melToHz(hzToMel(1000))
	if math.Abs(hz-1000) > 0.1 {
		t.Errorf("round trip = %f, want 1000", hz)
	}
}

func TestChromaMapPitchClasses(t *testing.T) {
	cfg := DefaultConfig()
	classes := chromaMap(cfg.FrameSize, cfg.SampleRate)
	binHz := float64(cfg.SampleRate) / float64(cfg.FrameSize)

	// A4 sits at 440 Hz; its bin must map to pitch class 9 (A).
	bin := int(math.Round(440 / binHz))
	if classes[bin] != 9 {
		t.Errorf("440 Hz bin class = %d, want 9", classes[bin])
	}
	// Sub-audio bins are excluded.
	if classes[0] != -1 {
		t.Errorf("DC bin class = %d, want -1", classes[0])
	}
}

func TestExtractFeaturesDeterministic(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	clip := testClip(440, 5)

	first := a.ExtractFeatures(clip)
	second := a.ExtractFeatures(clip)

	fv1, fv2 := first.Vector(), second.Vector()
	if len(fv1) != FeatureDim {
		t.Fatalf("vector length = %d, want %d", len(fv1), FeatureDim)
	}
	for i := range fv1 {
		if fv1[i] != fv2[i] {
			t.Fatalf("position %d not bit-identical: %v vs %v", i, fv1[i], fv2[i])
		}
	}
}

func TestExtractFeaturesTone(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	fv := a.ExtractFeatures(testClip(440, 5))

	if fv.Degraded {
		t.Fatal("tone clip should not degrade")
	}
	if fv.RMS <= 0 {
		t.Errorf("RMS = %f, want > 0", fv.RMS)
	}
	// A 440 Hz tone concentrates chroma energy in pitch class A.
	maxClass := 0
	for i := range fv.Chroma {
		if fv.Chroma[i] > fv.Chroma[maxClass] {
			maxClass = i
		}
	}
	if maxClass != 9 {
		t.Errorf("dominant chroma class = %d, want 9 (A)", maxClass)
	}
}

func TestExtractFeaturesShortClipDegrades(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	fv := a.ExtractFeatures(testClip(440, 0.5))

	if !fv.Degraded {
		t.Fatal("expected degradation for clip shorter than the lead-in offset")
	}
	for i, v := range fv.Vector() {
		if v != 0 {
			t.Fatalf("position %d = %f, want 0", i, v)
		}
	}
}

func TestAnalyzeFramesBandRatio(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	t.Run("tone inside band", func(t *testing.T) {
		fs := a.AnalyzeFrames(testClip(400, 3), 200, 800)
		if ratio := fs.BandRatio(); ratio < 0.9 {
			t.Errorf("400 Hz tone band ratio = %f, want >= 0.9", ratio)
		}
	})

	t.Run("tone outside band", func(t *testing.T) {
		fs := a.AnalyzeFrames(testClip(3000, 3), 200, 800)
		if ratio := fs.BandRatio(); ratio > 0.1 {
			t.Errorf("3 kHz tone band ratio = %f, want <= 0.1", ratio)
		}
	})

	t.Run("silent clip", func(t *testing.T) {
		clip := &audio.Clip{Samples: make([]float64, 44100), SampleRate: 44100}
		fs := a.AnalyzeFrames(clip, 200, 800)
		if fs.BandRatio() != 0 {
			t.Errorf("silent band ratio = %f, want 0", fs.BandRatio())
		}
		for _, r := range fs.RMS {
			if r != 0 {
				t.Fatalf("silent frame RMS = %f, want 0", r)
			}
		}
	})
}

func TestAnalyzeFramesCentroid(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	fs := a.AnalyzeFrames(testClip(1000, 2), 200, 800)
	if fs.NumFrames == 0 {
		t.Fatal("expected frames")
	}
	for i, c := range fs.Centroid {
		if math.Abs(c-1000) > 100 {
			t.Fatalf("frame %d centroid = %f, want ~1000", i, c)
		}
	}
}
