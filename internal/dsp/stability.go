package dsp

import "math"

// Stability scores how concentrated the spectrum of x is inside
// [fmin, fmax] on a 0..1 scale: 1 means all power in a single bin, 0 means
// power spread evenly across the range. It is one minus the normalized
// spectral entropy of the band-limited, renormalized PSD.
//
// Returns NaN for windows under 4 samples, an empty frequency range, or a
// degenerate (zero-power) spectrum; the last two also fire the Observer's
// DegenerateSpectrum event.
func (e *Engine) Stability(x []float64, method string, fmin, fmax float64) (float64, error) {
	if len(x) < 4 {
		return math.NaN(), nil
	}
	if fmin <= 0 {
		fmin = 0.5
	}
	if fmax <= fmin {
		fmax = 40.0
	}

	y := e.Preprocess(x)
	freqs, psd, err := e.ComputePSD(y, method)
	if err != nil {
		return math.NaN(), err
	}
	if freqs == nil {
		return math.NaN(), nil
	}

	var band []float64
	for i, f := range freqs {
		if f >= fmin && f <= fmax {
			band = append(band, psd[i])
		}
	}
	if len(band) < 2 {
		e.cfg.Observer.DegenerateSpectrum(fmin, fmax)
		return math.NaN(), nil
	}

	var total float64
	for i, p := range band {
		if p < 1e-20 {
			p = 1e-20
		}
		band[i] = p
		total += p
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		e.cfg.Observer.DegenerateSpectrum(fmin, fmax)
		return math.NaN(), nil
	}

	var entropy float64
	for _, p := range band {
		q := p / total
		entropy -= q * math.Log(q)
	}
	stability := 1 - entropy/math.Log(float64(len(band)))
	if math.IsNaN(stability) || math.IsInf(stability, 0) {
		e.cfg.Observer.DegenerateSpectrum(fmin, fmax)
		return math.NaN(), nil
	}
	return stability, nil
}
