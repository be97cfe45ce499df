package dsp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testEngine(fs float64) *Engine {
	return NewEngine(Config{Fs: fs})
}

func sine(fs, freq, amp float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return x
}

func TestComputePSDShortInput(t *testing.T) {
	e := testEngine(250)
	freqs, psd, err := e.ComputePSD([]float64{1, 2, 3}, MethodWelch)
	require.NoError(t, err)
	require.Nil(t, freqs)
	require.Nil(t, psd)
}

func TestComputePSDUnknownMethod(t *testing.T) {
	e := testEngine(250)
	_, _, err := e.ComputePSD(sine(250, 10, 1, 1000), "burg")
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestSinusoidBandConcentration(t *testing.T) {
	const fs = 250.0
	e := testEngine(fs)
	x := sine(fs, 10, 50, int(10*fs)) // 10 Hz alpha, 10 seconds
	alpha := Band{Name: "alpha", Lo: 8, Hi: 13}

	for _, method := range []string{MethodPeriodogram, MethodWelch, MethodMultitaper} {
		freqs, psd, err := e.ComputePSD(x, method)
		require.NoError(t, err, method)
		require.NotNil(t, psd, method)
		require.Len(t, psd, len(freqs), method)

		rel := Bandpower(freqs, psd, alpha, true)
		require.Greater(t, rel, 0.95, "method %s should concentrate power in alpha", method)
	}
}

func TestBandpowerZeroSpectrum(t *testing.T) {
	freqs := []float64{0, 1, 2, 3, 4, 5}
	psd := make([]float64, len(freqs))
	require.Zero(t, Bandpower(freqs, psd, Band{Name: "b", Lo: 1, Hi: 4}, false))
	require.Zero(t, Bandpower(freqs, psd, Band{Name: "b", Lo: 1, Hi: 4}, true))
}

func TestBandpowerEmptyBand(t *testing.T) {
	freqs := []float64{0, 10, 20}
	psd := []float64{1, 1, 1}
	require.Zero(t, Bandpower(freqs, psd, Band{Name: "b", Lo: 100, Hi: 200}, false))
}

func TestComputeFeaturesSinusoid(t *testing.T) {
	const fs = 250.0
	e := testEngine(fs)
	x := sine(fs, 10, 50, int(8*fs))

	f, err := e.ComputeFeatures(x, MethodWelch)
	require.NoError(t, err)
	require.NotNil(t, f)

	require.InDelta(t, 10, f.PeakFreq, 0.5)
	require.Greater(t, f.BandpowerRel["alpha"], 0.9)
	require.InDelta(t, 50/math.Sqrt2, f.RMS, 1.0)

	// Absolute band powers are rescaled to sum to the RMS power.
	var sum float64
	for _, v := range f.BandpowerAbs {
		sum += v
	}
	require.InDelta(t, f.RMS*f.RMS, sum, 1e-9*f.RMS*f.RMS+1e-12)
}

func TestComputeFeaturesZeroSignal(t *testing.T) {
	e := testEngine(250)
	f, err := e.ComputeFeatures(make([]float64, 1000), MethodWelch)
	require.NoError(t, err)
	require.NotNil(t, f)

	require.Zero(t, f.RMS)
	require.Zero(t, f.PeakFreq) // argmax of a flat spectrum is the lowest bin
	for name, v := range f.BandpowerRel {
		require.Zero(t, v, name)
	}
}

func TestComputeFeaturesShortInput(t *testing.T) {
	e := testEngine(250)
	f, err := e.ComputeFeatures([]float64{1, 2}, MethodWelch)
	require.NoError(t, err)
	require.Nil(t, f)
}

func TestStability(t *testing.T) {
	const fs = 250.0
	e := testEngine(fs)

	pure := sine(fs, 10, 50, int(8*fs))
	sPure, err := e.Stability(pure, MethodMultitaper, 0.5, 40)
	require.NoError(t, err)
	require.False(t, math.IsNaN(sPure))
	require.Greater(t, sPure, 0.5)
	require.LessOrEqual(t, sPure, 1.0)

	rng := rand.New(rand.NewSource(42))
	noise := make([]float64, int(8*fs))
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}
	sNoise, err := e.Stability(noise, MethodMultitaper, 0.5, 40)
	require.NoError(t, err)
	require.Less(t, sNoise, sPure, "noise should be less stable than a pure tone")
}

func TestStabilityShortInput(t *testing.T) {
	e := testEngine(250)
	s, err := e.Stability([]float64{1, 2, 3}, MethodMultitaper, 0.5, 40)
	require.NoError(t, err)
	require.True(t, math.IsNaN(s))
}

func TestStabilityDegenerateRange(t *testing.T) {
	var obs recordingObserver
	e := NewEngine(Config{Fs: 250, Observer: &obs})
	// Band above Nyquist: no bins fall inside it.
	s, err := e.Stability(sine(250, 10, 1, 1000), MethodWelch, 200, 300)
	require.NoError(t, err)
	require.True(t, math.IsNaN(s))
	require.True(t, obs.degenerate)
}

func TestSpectrogram(t *testing.T) {
	const fs = 250.0
	e := NewEngine(Config{Fs: fs, WindowSec: 1})
	x := sine(fs, 10, 1, int(8*fs))

	sg, err := e.ComputeSpectrogram(x, MethodPeriodogram, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, sg)
	require.NotEmpty(t, sg.Power)
	require.Len(t, sg.Times, len(sg.Power))
	for i, row := range sg.Power {
		require.Len(t, row, len(sg.Freqs), "row %d", i)
	}
	for i := 1; i < len(sg.Times); i++ {
		require.Greater(t, sg.Times[i], sg.Times[i-1])
	}

	logp := sg.LogPower()
	require.Len(t, logp, len(sg.Power))
}

func TestSpectrogramShortInput(t *testing.T) {
	e := testEngine(250)
	sg, err := e.ComputeSpectrogram([]float64{1, 2, 3}, MethodWelch, 0, 0)
	require.NoError(t, err)
	require.Nil(t, sg)
}

func TestPreprocessDetrend(t *testing.T) {
	e := testEngine(250)
	x := make([]float64, 500)
	for i := range x {
		x[i] = 3.0 + 0.01*float64(i)
	}
	y := e.Preprocess(x)
	require.Len(t, y, len(x))

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	require.InDelta(t, 0, mean, 1e-9)

	// Input untouched.
	require.Equal(t, 3.0, x[0])
}

func TestPreprocessOutlierRepair(t *testing.T) {
	var obs recordingObserver
	e := NewEngine(Config{Fs: 250, InterpolateOutliers: true, Observer: &obs})

	x := sine(250, 10, 1, 500)
	x[250] = 1e6
	y := e.Preprocess(x)

	require.True(t, obs.outliers)
	require.InDelta(t, (y[249]+y[251])/2, y[250], 1e-9, "spike should be interpolated from neighbours")
}

func TestDPSSTapers(t *testing.T) {
	tapers := dpssTapers(128, 4, 2.5)
	require.Len(t, tapers, 4)
	for k, taper := range tapers {
		require.Len(t, taper, 128)
		var energy float64
		for _, v := range taper {
			energy += v * v
		}
		require.InDelta(t, 1.0, energy, 1e-9, "taper %d should have unit energy", k)
	}
	// The first taper is symmetric and positive.
	require.Greater(t, tapers[0][64], 0.0)
	require.InDelta(t, tapers[0][10], tapers[0][117], 1e-9)
}

type recordingObserver struct {
	clipping   bool
	outliers   bool
	degenerate bool
}

func (o *recordingObserver) ClippingDetected(fraction, min, max float64) { o.clipping = true }
func (o *recordingObserver) OutliersDetected(count, total int)           { o.outliers = true }
func (o *recordingObserver) DegenerateSpectrum(fmin, fmax float64)       { o.degenerate = true }
