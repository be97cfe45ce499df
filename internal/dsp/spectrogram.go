package dsp

import (
	"fmt"
	"math"
)

// Spectrogram is a time-frequency power map: Power[t][f] is the PSD of the
// window centered at Times[t], evaluated at Freqs[f].
type Spectrogram struct {
	Times []float64   // window center times in seconds
	Freqs []float64   // shared frequency axis
	Power [][]float64 // one PSD row per window
}

// LogPower returns the spectrogram in dB, 10*log10(p + 1e-12), leaving the
// linear values untouched.
func (s *Spectrogram) LogPower() [][]float64 {
	out := make([][]float64, len(s.Power))
	for i, row := range s.Power {
		lr := make([]float64, len(row))
		for j, p := range row {
			lr[j] = 10 * math.Log10(p+1e-12)
		}
		out[i] = lr
	}
	return out
}

// ComputeSpectrogram slides a window over x and estimates a PSD per
// position. windowSec <= 0 uses the engine's analysis window; stepSamples
// <= 0 derives the step from the configured Welch overlap. Inputs too short
// for a single window return nil without error.
func (e *Engine) ComputeSpectrogram(x []float64, method string, windowSec float64, stepSamples int) (*Spectrogram, error) {
	n := len(x)
	win := e.windowSamples
	if windowSec > 0 {
		win = int(math.Round(windowSec * e.cfg.Fs))
	}
	if win > n {
		win = n
	}
	if win < 1 {
		win = 1
	}
	if win < 4 || n < 4 {
		return nil, nil
	}

	step := stepSamples
	if step <= 0 {
		step = int(math.Round(float64(win) * (1 - e.cfg.WelchOverlap)))
	}
	if step < 1 {
		step = 1
	}

	sg := &Spectrogram{}
	for start := 0; start+win <= n; start += step {
		freqs, psd, err := e.ComputePSD(x[start:start+win], method)
		if err != nil {
			return nil, err
		}
		if freqs == nil {
			continue
		}
		if sg.Freqs == nil {
			sg.Freqs = freqs
		} else if !sameAxis(sg.Freqs, freqs) {
			return nil, fmt.Errorf("%w: window at sample %d", ErrInconsistentSpectrum, start)
		}
		sg.Power = append(sg.Power, psd)
		sg.Times = append(sg.Times, (float64(start)+float64(win)/2)/e.cfg.Fs)
	}
	if len(sg.Power) == 0 {
		return nil, nil
	}
	return sg, nil
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
