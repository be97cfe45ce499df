package pipeline

import (
	"math"

	"eeg-backend/internal/dsp"
)

// barStabilities scores each of nBars equal chunks of a segment with the
// multitaper spectral stability metric, then spreads the scores across
// [0.2, 0.8] by min-max normalization so every segment exercises the full
// chord table. Segments too short to split get a single bar; a flat score
// profile falls back to an even ramp.
func barStabilities(e *dsp.Engine, x []float64, method string, nBars int, fmin, fmax float64) []float64 {
	n := len(x)
	if nBars < 1 {
		nBars = 1
	}
	if n/nBars < 4 {
		nBars = 1
	}
	chunk := n / nBars

	raw := make([]float64, nBars)
	for i := 0; i < nBars; i++ {
		lo := i * chunk
		hi := lo + chunk
		if i == nBars-1 {
			hi = n
		}
		s, err := e.Stability(x[lo:hi], method, fmin, fmax)
		if err != nil || math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0.5
		}
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		raw[i] = s
	}
	return spreadScores(raw)
}

// spreadScores rescales scores onto [0.2, 0.8]. Without this, resting EEG
// keeps stability in a narrow band and every bar lands on the same chord.
func spreadScores(raw []float64) []float64 {
	if len(raw) == 1 {
		return raw
	}
	min, max := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(raw))
	if max-min > 1e-6 {
		for i, v := range raw {
			out[i] = 0.2 + 0.6*(v-min)/(max-min)
		}
		return out
	}
	// Flat profile: even ramp so chords still move.
	for i := range raw {
		out[i] = 0.2 + 0.6*float64(i)/float64(len(raw)-1)
	}
	return out
}

// amplitudeSlots computes the per-slot RMS envelope of each bar chunk:
// nBars rows of slotsPerBar values, driving rhythm slot activation.
func amplitudeSlots(x []float64, nBars, slotsPerBar int) [][]float64 {
	n := len(x)
	if nBars < 1 {
		nBars = 1
	}
	chunk := n / nBars
	if chunk < 1 {
		chunk = n
		nBars = 1
	}

	out := make([][]float64, nBars)
	for i := 0; i < nBars; i++ {
		lo := i * chunk
		hi := lo + chunk
		if i == nBars-1 {
			hi = n
		}
		out[i] = slotRMS(x[lo:hi], slotsPerBar)
	}
	return out
}

// slotRMS divides a chunk into slotsPerBar pieces and returns the RMS of
// each. Empty pieces (chunks shorter than the slot count) read as silence.
func slotRMS(chunk []float64, slots int) []float64 {
	out := make([]float64, slots)
	n := len(chunk)
	if n == 0 {
		return out
	}
	for s := 0; s < slots; s++ {
		lo := s * n / slots
		hi := (s + 1) * n / slots
		if hi <= lo {
			continue
		}
		var sumSq float64
		for _, v := range chunk[lo:hi] {
			sumSq += v * v
		}
		out[s] = math.Sqrt(sumSq / float64(hi-lo))
	}
	return out
}
