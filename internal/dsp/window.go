package dsp

import "math"

// makeWindow builds a periodic (DFT-even) taper of length n. Supported
// types: hann, hamming, blackman, boxcar. Unknown names fall back to hann
// so a typo degrades gracefully instead of silently producing a rectangle.
func makeWindow(kind string, n int) []float64 {
	w := make([]float64, n)
	if n <= 1 {
		for i := range w {
			w[i] = 1
		}
		return w
	}

	switch kind {
	case "boxcar":
		for i := range w {
			w[i] = 1
		}
	case "hamming":
		for i := range w {
			w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n))
		}
	case "blackman":
		for i := range w {
			c := 2 * math.Pi * float64(i) / float64(n)
			w[i] = 0.42 - 0.5*math.Cos(c) + 0.08*math.Cos(2*c)
		}
	default: // hann
		for i := range w {
			w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
		}
	}
	return w
}

// rfftFreqs returns the one-sided frequency axis for an n-sample real FFT.
func rfftFreqs(n int, fs float64) []float64 {
	bins := n/2 + 1
	freqs := make([]float64, bins)
	df := fs / float64(n)
	for i := range freqs {
		freqs[i] = float64(i) * df
	}
	return freqs
}
