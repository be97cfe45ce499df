package dsp

import (
	"math"
	"sort"
)

// Preprocess cleans a raw window before spectral estimation:
//
//  1. linear detrend (removes DC offset and drift) when >= 4 samples,
//  2. clipping detection (informational only, reported via the Observer),
//  3. robust outlier detection with an MAD-based z-score; flagged samples
//     are linearly interpolated from the surrounding good samples, or
//     soft-clamped to the threshold boundary when interpolation is not
//     possible.
//
// The input slice is never modified; a copy is returned. Inputs shorter
// than 5 samples skip outlier repair, and a zero MAD disables it entirely.
func (e *Engine) Preprocess(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}

	y := make([]float64, len(x))
	copy(y, x)

	if len(y) >= 4 {
		detrendLinear(y)
	}

	e.detectClipping(y)

	if len(y) >= 5 {
		e.repairOutliers(y)
	}
	return y
}

// detrendLinear subtracts the least-squares line from y in place.
func detrendLinear(y []float64) {
	n := float64(len(y))
	var sumT, sumY, sumTT, sumTY float64
	for i, v := range y {
		t := float64(i)
		sumT += t
		sumY += v
		sumTT += t * t
		sumTY += t * v
	}
	den := n*sumTT - sumT*sumT
	if den == 0 {
		return
	}
	slope := (n*sumTY - sumT*sumY) / den
	intercept := (sumY - slope*sumT) / n
	for i := range y {
		y[i] -= intercept + slope*float64(i)
	}
}

// detectClipping flags windows where too many samples sit exactly at the
// window extremes. Scale-independent heuristic; the data is left untouched.
func (e *Engine) detectClipping(y []float64) {
	if len(y) < 4 {
		return
	}
	min, max := y[0], y[0]
	for _, v := range y[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	const atol = 1e-9
	var nExtreme int
	for _, v := range y {
		if math.Abs(v-max) <= atol || math.Abs(v-min) <= atol {
			nExtreme++
		}
	}
	frac := float64(nExtreme) / float64(len(y))
	if frac >= e.cfg.ClippingFraction {
		e.cfg.Observer.ClippingDetected(frac, min, max)
	}
}

// repairOutliers replaces samples whose robust z-score 0.6745*(x-med)/MAD
// exceeds the configured threshold.
func (e *Engine) repairOutliers(y []float64) {
	med := median(y)
	absDev := make([]float64, len(y))
	for i, v := range y {
		absDev[i] = math.Abs(v - med)
	}
	mad := median(absDev)
	if mad == 0 {
		return
	}

	zThresh := e.cfg.OutlierZScore
	out := make([]bool, len(y))
	nOut := 0
	for i, v := range y {
		z := 0.6745 * (v - med) / mad
		if math.Abs(z) > zThresh {
			out[i] = true
			nOut++
		}
	}
	if nOut == 0 {
		return
	}
	e.cfg.Observer.OutliersDetected(nOut, len(y))

	nGood := len(y) - nOut
	if e.cfg.InterpolateOutliers && nGood >= 2 {
		interpolateMasked(y, out)
		return
	}

	// Soft clamp: pull each outlier back to the z-score boundary.
	for i, v := range y {
		if !out[i] {
			continue
		}
		z := 0.6745 * (v - med) / mad
		if z > zThresh {
			z = zThresh
		} else if z < -zThresh {
			z = -zThresh
		}
		y[i] = med + z*mad/0.6745
	}
}

// interpolateMasked overwrites masked samples with linear interpolation
// between the nearest unmasked neighbours, holding the edge value flat when
// a masked run touches either end of the window.
func interpolateMasked(y []float64, masked []bool) {
	n := len(y)
	prev := -1 // index of last good sample seen
	for i := 0; i < n; i++ {
		if !masked[i] {
			prev = i
			continue
		}
		// find next good sample
		next := -1
		for j := i + 1; j < n; j++ {
			if !masked[j] {
				next = j
				break
			}
		}
		switch {
		case prev >= 0 && next >= 0:
			frac := float64(i-prev) / float64(next-prev)
			y[i] = y[prev] + frac*(y[next]-y[prev])
		case prev >= 0:
			y[i] = y[prev]
		case next >= 0:
			y[i] = y[next]
		}
	}
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return 0.5 * (s[mid-1] + s[mid])
}
