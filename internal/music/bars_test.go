package music

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func musicSegment(t *testing.T, cadence Cadence, dur float64) MusicSegment {
	t.Helper()
	return MusicSegment{
		TStart:       0,
		TEnd:         dur,
		Scale:        cMajor(t),
		MainNote:     60,
		Cadence:      cadence,
		RegisterHint: 0.5,
	}
}

func uniformAmps(nBars, slots int) [][]float64 {
	amps := make([][]float64, nBars)
	for i := range amps {
		amps[i] = make([]float64, slots)
		for j := range amps[i] {
			amps[i][j] = 1.0
		}
	}
	return amps
}

func TestChordFromStability(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	seg := musicSegment(t, CadenceMedium, 9.0)

	bars, err := g.Generate(seg, []float64{0.1, 0.5, 0.9}, uniformAmps(3, 16))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	// Tonic, subdominant, dominant triads of C major rooted at C4.
	require.Equal(t, []int{60, 64, 67}, bars[0].Chord)
	require.Equal(t, []int{65, 69, 72}, bars[1].Chord)
	require.Equal(t, []int{67, 71, 74}, bars[2].Chord)
}

func TestChordUndefinedStability(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	seg := musicSegment(t, CadenceMedium, 3.0)

	bars, err := g.Generate(seg, []float64{math.NaN()}, uniformAmps(1, 16))
	require.NoError(t, err)
	require.Equal(t, 0.5, bars[0].Stability)
	require.Equal(t, 3, bars[0].Degree) // mid stability picks the subdominant
}

func TestChordSmallScaleStaysOnTonic(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	quartal, err := BuildScale("Ambient", "Quartal", "C4")
	require.NoError(t, err)

	seg := musicSegment(t, CadenceMedium, 3.0)
	seg.Scale = quartal

	bars, err := g.Generate(seg, []float64{0.9}, uniformAmps(1, 16))
	require.NoError(t, err)
	require.Equal(t, 0, bars[0].Degree)
}

func TestBarTimeSpans(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	seg := musicSegment(t, CadenceMedium, 12.0)
	seg.TStart = 3.0
	seg.TEnd = 15.0

	bars, err := g.Generate(seg, []float64{0.2, 0.4, 0.6, 0.8}, uniformAmps(4, 16))
	require.NoError(t, err)
	require.Len(t, bars, 4)

	require.Equal(t, 3.0, bars[0].TStart)
	for i, b := range bars {
		require.InDelta(t, 3.0, b.TEnd-b.TStart, 1e-9, "bar %d", i)
		if i > 0 {
			require.InDelta(t, bars[i-1].TEnd, b.TStart, 1e-9)
		}
	}
	require.InDelta(t, 15.0, bars[3].TEnd, 1e-9)
}

func TestActivationCountsPerCadence(t *testing.T) {
	g := NewBarGenerator(BarConfig{})

	countActive := func(c Cadence) int {
		seg := musicSegment(t, c, 3.0)
		bars, err := g.Generate(seg, []float64{0.5}, uniformAmps(1, 16))
		require.NoError(t, err)
		n := 0
		for _, on := range bars[0].ActiveSlots {
			if on {
				n++
			}
		}
		return n
	}

	require.Equal(t, 3, countActive(CadenceLow))
	require.Equal(t, 6, countActive(CadenceMedium))
	require.Equal(t, 16, countActive(CadenceHigh))
}

func TestActivationPrefersLoudSlots(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	seg := musicSegment(t, CadenceLow, 3.0)

	amps := make([]float64, 16)
	amps[2] = 10
	amps[7] = 8
	amps[11] = 9
	amps[14] = 1
	bars, err := g.Generate(seg, []float64{0.5}, [][]float64{amps})
	require.NoError(t, err)

	active := bars[0].ActiveSlots
	require.True(t, active[2])
	require.True(t, active[7])
	require.True(t, active[11])
	require.False(t, active[14], "weak slot loses to the three loud ones")
}

func TestSilentBarStillActivates(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	seg := musicSegment(t, CadenceLow, 3.0)

	bars, err := g.Generate(seg, []float64{0.5}, [][]float64{make([]float64, 16)})
	require.NoError(t, err)

	n := 0
	for _, on := range bars[0].ActiveSlots {
		if on {
			n++
		}
	}
	require.Equal(t, 3, n, "silent bars fall back to all slots as candidates")
}

func TestSlotCountMismatch(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	seg := musicSegment(t, CadenceMedium, 3.0)

	_, err := g.Generate(seg, []float64{0.5}, [][]float64{make([]float64, 12)})
	require.ErrorIs(t, err, ErrSlotCount)
}

func TestAmplitudeRowCountMismatch(t *testing.T) {
	g := NewBarGenerator(BarConfig{})
	seg := musicSegment(t, CadenceMedium, 6.0)

	_, err := g.Generate(seg, []float64{0.5, 0.5}, uniformAmps(1, 16))
	require.Error(t, err)
}
