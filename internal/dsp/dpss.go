package dsp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// dpssTapers returns the first k discrete prolate spheroidal (Slepian)
// sequences of length n for time-bandwidth product nw, each normalized to
// unit energy. Tapers are ordered by decreasing eigenvalue (concentration).
//
// The sequences are computed as eigenvectors of the standard symmetric
// tridiagonal matrix (Percival & Walden, ch. 8):
//
//	diag[i]    = ((n-1-2i)/2)^2 * cos(2*pi*W)
//	offdiag[i] = i*(n-i)/2
//
// with W = nw/n. The eigenproblem is solved densely via gonum's EigenSym;
// results are cached per length by the caller.
func dpssTapers(n, k int, nw float64) [][]float64 {
	if n < 2 || k < 1 {
		return nil
	}
	if k > n {
		k = n
	}
	w := nw / float64(n)
	cos2piW := math.Cos(2 * math.Pi * w)

	// Dense symmetric matrix with tridiagonal structure.
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		half := float64(n-1-2*i) / 2.0
		data[i*n+i] = half * half * cos2piW
		if i > 0 {
			off := float64(i) * float64(n-i) / 2.0
			data[i*n+i-1] = off
			data[(i-1)*n+i] = off
		}
	}
	sym := mat.NewSymDense(n, data)

	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// EigenSym returns eigenvalues in ascending order; the most
	// concentrated tapers correspond to the largest eigenvalues.
	tapers := make([][]float64, k)
	for j := 0; j < k; j++ {
		col := n - 1 - j
		taper := make([]float64, n)
		var norm float64
		for i := 0; i < n; i++ {
			taper[i] = vecs.At(i, col)
			norm += taper[i] * taper[i]
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for i := range taper {
				taper[i] /= norm
			}
		}
		fixTaperSign(taper)
		tapers[j] = taper
	}
	return tapers
}

// fixTaperSign applies the usual polarity convention: symmetric tapers get
// a positive mean, antisymmetric tapers start positive.
func fixTaperSign(t []float64) {
	var sum float64
	for _, v := range t {
		sum += v
	}
	thresh := math.Max(1e-7, 1.0/float64(len(t)))
	if math.Abs(sum) > thresh {
		if sum < 0 {
			flip(t)
		}
		return
	}
	for _, v := range t {
		if math.Abs(v) > thresh {
			if v < 0 {
				flip(t)
			}
			return
		}
	}
}

func flip(t []float64) {
	for i := range t {
		t[i] = -t[i]
	}
}

// tapersFor returns the cached DPSS taper set for a window length,
// computing and caching it on first use.
func (e *Engine) tapersFor(n int) [][]float64 {
	if t, ok := e.taperCache[n]; ok {
		return t
	}
	t := dpssTapers(n, e.cfg.MTTapers, e.cfg.MTTimeBandwidth)
	e.taperCache[n] = t
	return t
}
