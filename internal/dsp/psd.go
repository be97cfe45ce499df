package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ComputePSD estimates the one-sided power spectral density of x using the
// named method. The returned frequency axis and PSD have n/2+1 bins where n
// is the effective analysis length, and the PSD is in units of power per Hz.
//
// Inputs shorter than 4 samples produce (nil, nil, nil): too short to say
// anything, but not an error. An unknown method wraps ErrUnsupportedMethod.
func (e *Engine) ComputePSD(x []float64, method string) (freqs, psd []float64, err error) {
	if len(x) < 4 {
		return nil, nil, nil
	}
	switch method {
	case MethodPeriodogram:
		freqs, psd = e.periodogram(x)
	case MethodWelch:
		freqs, psd = e.welch(x)
	case MethodMultitaper:
		freqs, psd = e.multitaper(x)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	return freqs, psd, nil
}

// periodogram computes a single modified periodogram over the full input
// with the configured taper and density scaling.
func (e *Engine) periodogram(x []float64) (freqs, psd []float64) {
	return e.modifiedPeriodogram(x, makeWindow(e.cfg.WindowType, len(x)))
}

// welch averages modified periodograms over overlapping segments. The
// segment length is the engine's analysis window clamped to the input
// length; the overlap fraction comes from the configuration.
func (e *Engine) welch(x []float64) (freqs, psd []float64) {
	n := len(x)
	nperseg := e.windowSamples
	if nperseg > n {
		nperseg = n
	}
	if nperseg < 4 {
		return nil, nil
	}

	noverlap := int(float64(nperseg) * e.cfg.WelchOverlap)
	if noverlap < 0 {
		noverlap = 0
	}
	if noverlap >= nperseg {
		noverlap = nperseg - 1
	}
	step := nperseg - noverlap

	win := makeWindow(e.cfg.WindowType, nperseg)
	var acc []float64
	nSeg := 0
	for start := 0; start+nperseg <= n; start += step {
		f, p := e.modifiedPeriodogram(x[start:start+nperseg], win)
		if acc == nil {
			freqs = f
			acc = make([]float64, len(p))
		}
		for i, v := range p {
			acc[i] += v
		}
		nSeg++
	}
	if nSeg == 0 {
		return nil, nil
	}
	for i := range acc {
		acc[i] /= float64(nSeg)
	}
	return freqs, acc
}

// modifiedPeriodogram computes a one-sided density-scaled periodogram of a
// segment after removing its mean. The scale factor is 1/(fs * sum(w^2));
// all bins except DC and Nyquist are doubled to fold negative frequencies.
func (e *Engine) modifiedPeriodogram(seg, win []float64) (freqs, psd []float64) {
	n := len(seg)

	var mean float64
	for _, v := range seg {
		mean += v
	}
	mean /= float64(n)

	var winSq float64
	tapered := make([]float64, n)
	for i, v := range seg {
		tapered[i] = (v - mean) * win[i]
		winSq += win[i] * win[i]
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, tapered)

	scale := 1.0 / (e.cfg.Fs * winSq)
	psd = make([]float64, len(coeffs))
	for i, c := range coeffs {
		p := (real(c)*real(c) + imag(c)*imag(c)) * scale
		// One-sided: double everything except DC and (for even n) Nyquist.
		if i != 0 && !(n%2 == 0 && i == len(coeffs)-1) {
			p *= 2
		}
		psd[i] = p
	}
	return rfftFreqs(n, e.cfg.Fs), psd
}

// multitaper computes a Thomson multitaper estimate over the trailing
// analysis window of x. Eigenspectra from each unit-energy DPSS taper are
// averaged with uniform weights; no one-sided folding is applied, matching
// the conventional dt/N * |X_k|^2 eigenspectrum scaling.
func (e *Engine) multitaper(x []float64) (freqs, psd []float64) {
	nWin := e.windowSamples
	if nWin > len(x) {
		nWin = len(x)
	}
	if nWin < 4 {
		return nil, nil
	}
	seg := x[len(x)-nWin:]

	tapers := e.tapersFor(nWin)
	if len(tapers) == 0 {
		return nil, nil
	}

	fft := fourier.NewFFT(nWin)
	scale := 1.0 / (e.cfg.Fs * float64(nWin))
	tapered := make([]float64, nWin)
	var acc []float64
	for _, taper := range tapers {
		for i, v := range seg {
			tapered[i] = v * taper[i]
		}
		coeffs := fft.Coefficients(nil, tapered)
		if acc == nil {
			acc = make([]float64, len(coeffs))
		}
		for i, c := range coeffs {
			acc[i] += (real(c)*real(c) + imag(c)*imag(c)) * scale
		}
	}
	for i := range acc {
		acc[i] /= float64(len(tapers))
	}
	return rfftFreqs(nWin, e.cfg.Fs), acc
}
