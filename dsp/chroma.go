package dsp

import "math"

// NumChroma is the number of pitch classes in the chroma profile.
const NumChroma = 12

// chromaMap assigns each FFT bin below the Nyquist to one of 12 pitch
// classes (0 = C). Bins below 20 Hz map to -1 and are ignored.
func chromaMap(fftSize, sampleRate int) []int {
	halfFFT := fftSize/2 + 1
	classes := make([]int, halfFFT)
	for k := 0; k < halfFFT; k++ {
		freq := float64(k) * float64(sampleRate) / float64(fftSize)
		if freq < 20 {
			classes[k] = -1
			continue
		}
		// MIDI note number; A4 (440 Hz) = 69, C has pitch class 0.
		midi := 69.0 + 12.0*math.Log2(freq/440.0)
		pc := int(math.Round(midi)) % NumChroma
		if pc < 0 {
			pc += NumChroma
		}
		classes[k] = pc
	}
	return classes
}
