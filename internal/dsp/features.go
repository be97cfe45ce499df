package dsp

import (
	"math"

	"gonum.org/v1/gonum/integrate"
)

// Bandpower integrates the PSD over [band.Lo, band.Hi] with the trapezoid
// rule. When relative is true the result is divided by the integral over
// the full spectrum; an empty band or zero total power yields 0.
func Bandpower(freqs, psd []float64, band Band, relative bool) float64 {
	var bf, bp []float64
	for i, f := range freqs {
		if f >= band.Lo && f <= band.Hi {
			bf = append(bf, f)
			bp = append(bp, psd[i])
		}
	}
	if len(bf) == 0 {
		return 0
	}
	var power float64
	if len(bf) == 1 {
		power = 0
	} else {
		power = integrate.Trapezoidal(bf, bp)
	}
	if !relative {
		return power
	}
	if len(freqs) < 2 {
		return 0
	}
	total := integrate.Trapezoidal(freqs, psd)
	if total <= 0 {
		return 0
	}
	return power / total
}

// Features is the per-window spectral summary produced by ComputeFeatures.
type Features struct {
	RMS   float64   // root mean square of the preprocessed window
	Freqs []float64 // frequency axis of the PSD
	PSD   []float64 // power spectral density

	// Per-band values, keyed by band name.
	BandpowerAbs map[string]float64 // absolute power, rescaled to sum to RMS^2
	BandpowerRel map[string]float64 // fraction of summed band power
	BandPeaks    map[string]float64 // peak frequency within each band (NaN if empty)

	PeakFreq float64 // frequency of the global PSD maximum
}

// ComputeFeatures preprocesses a window and derives the full feature set
// with the given PSD method. Windows shorter than 4 samples return nil.
//
// Absolute band powers are rescaled so their sum equals the window's RMS
// power, which keeps them comparable across estimation methods; relative
// powers are each band's share of the summed band power.
func (e *Engine) ComputeFeatures(x []float64, method string) (*Features, error) {
	if len(x) < 4 {
		return nil, nil
	}

	y := e.Preprocess(x)

	var sumSq float64
	for _, v := range y {
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(y)))

	freqs, psd, err := e.ComputePSD(y, method)
	if err != nil {
		return nil, err
	}
	if freqs == nil {
		return nil, nil
	}

	f := &Features{
		RMS:          rms,
		Freqs:        freqs,
		PSD:          psd,
		BandpowerAbs: make(map[string]float64, len(e.cfg.Bands)),
		BandpowerRel: make(map[string]float64, len(e.cfg.Bands)),
		BandPeaks:    make(map[string]float64, len(e.cfg.Bands)),
	}

	var total float64
	for _, b := range e.cfg.Bands {
		p := Bandpower(freqs, psd, b, false)
		f.BandpowerAbs[b.Name] = p
		total += p
		f.BandPeaks[b.Name] = bandPeakFreq(freqs, psd, b)
	}
	for _, b := range e.cfg.Bands {
		if total > 0 {
			f.BandpowerRel[b.Name] = f.BandpowerAbs[b.Name] / total
		} else {
			f.BandpowerRel[b.Name] = 0
		}
	}
	// Rescale absolute powers onto the RMS power budget.
	if total > 0 {
		scale := rms * rms / total
		for name := range f.BandpowerAbs {
			f.BandpowerAbs[name] *= scale
		}
	}

	f.PeakFreq = freqs[argmax(psd)]
	return f, nil
}

// bandPeakFreq returns the frequency of the PSD maximum within the band,
// or NaN when no bin falls inside it.
func bandPeakFreq(freqs, psd []float64, band Band) float64 {
	best := -1
	for i, f := range freqs {
		if f < band.Lo || f > band.Hi {
			continue
		}
		if best < 0 || psd[i] > psd[best] {
			best = i
		}
	}
	if best < 0 {
		return math.NaN()
	}
	return freqs[best]
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}
