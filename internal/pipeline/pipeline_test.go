package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"eeg-backend/internal/dsp"
	"eeg-backend/internal/music"
	"eeg-backend/internal/segmenter"
)

func testPipeline(t *testing.T, fs float64) *Pipeline {
	t.Helper()
	scale, err := music.BuildScale("Diatonic", "Major", "C4")
	require.NoError(t, err)
	composer, err := music.NewComposer(music.ComposerConfig{Scale: scale})
	require.NoError(t, err)

	p, err := New(Config{
		Engine:   dsp.NewEngine(dsp.Config{Fs: fs}),
		Composer: composer,
		Bars:     music.NewBarGenerator(music.BarConfig{}),
		Notes:    music.NewNoteGenerator(music.NoteConfig{}),
		BPM:      120,
	})
	require.NoError(t, err)
	return p
}

// alphaSignal builds an alpha-dominant test signal with a level shift
// halfway through, loud enough for the segmenter to split on.
func alphaSignal(fs float64, seconds float64) []float64 {
	n := int(fs * seconds)
	x := make([]float64, n)
	for i := range x {
		amp := 10.0
		if i >= n/2 {
			amp = 60.0
		}
		ti := float64(i) / fs
		x[i] = amp * math.Sin(2*math.Pi*10*ti)
	}
	return x
}

func TestPipelineRequiresComponents(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestProcessChannelEndToEnd(t *testing.T) {
	const fs = 250.0
	p := testPipeline(t, fs)

	sgm, err := segmenter.New(segmenter.Config{Fs: fs, Threshold: 0.8, MinDuration: 1.0, UseAbs: true})
	require.NoError(t, err)

	x := alphaSignal(fs, 16)
	results, err := p.ProcessChannel(x, sgm)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	totalDur := 16.0
	for _, res := range results {
		require.NotEmpty(t, res.Bars)
		require.NotEmpty(t, res.Notes)

		// Alpha dominates, so its relative power should too.
		require.Greater(t, res.Features.AlphaRel, 0.5)

		for _, n := range res.Notes {
			require.GreaterOrEqual(t, n.TStart, res.Segment.TStart-1e-9)
			require.LessOrEqual(t, n.TEnd, totalDur+1e-9)
			require.GreaterOrEqual(t, n.Pitch, 0)
			require.LessOrEqual(t, n.Pitch, 127)
		}

		// Bars tile the segment.
		require.InDelta(t, res.Segment.TStart, res.Bars[0].TStart, 1e-9)
		require.InDelta(t, res.Segment.TEnd, res.Bars[len(res.Bars)-1].TEnd, 1e-9)
	}

	notes := AllNotes(results)
	require.NotEmpty(t, notes)
}

func TestComposeSegmentTooShort(t *testing.T) {
	p := testPipeline(t, 250)
	res, err := p.ComposeSegment([]float64{1, 2}, segmenter.Segment{})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestBarCountFollowsTempo(t *testing.T) {
	const fs = 250.0
	p := testPipeline(t, fs) // 120 BPM -> 2-second bars

	x := make([]float64, int(8*fs))
	for i := range x {
		x[i] = 20 * math.Sin(2*math.Pi*10*float64(i)/fs)
	}
	seg := segmenter.Segment{StartIdx: 0, EndIdx: len(x) - 1, TStart: 0, TEnd: 8}

	res, err := p.ComposeSegment(x, seg)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Bars, 4)
}

func TestSpreadScores(t *testing.T) {
	spread := spreadScores([]float64{0.4, 0.5, 0.6})
	require.InDelta(t, 0.2, spread[0], 1e-9)
	require.InDelta(t, 0.5, spread[1], 1e-9)
	require.InDelta(t, 0.8, spread[2], 1e-9)

	// Flat profiles become an even ramp instead of collapsing.
	flat := spreadScores([]float64{0.5, 0.5, 0.5})
	require.InDelta(t, 0.2, flat[0], 1e-9)
	require.InDelta(t, 0.8, flat[2], 1e-9)
	require.Less(t, flat[0], flat[1])

	single := spreadScores([]float64{0.7})
	require.Equal(t, []float64{0.7}, single)
}

func TestAmplitudeSlots(t *testing.T) {
	x := make([]float64, 320)
	for i := range x {
		x[i] = 1.0
	}
	amps := amplitudeSlots(x, 2, 16)
	require.Len(t, amps, 2)
	for _, row := range amps {
		require.Len(t, row, 16)
		for _, v := range row {
			require.InDelta(t, 1.0, v, 1e-9)
		}
	}
}

func TestBarStabilitiesShortSegment(t *testing.T) {
	e := dsp.NewEngine(dsp.Config{Fs: 250})
	// Too short to split into 4 bars of at least 4 samples each.
	stabs := barStabilities(e, []float64{1, 2, 3, 4, 5}, dsp.MethodMultitaper, 4, 0.5, 40)
	require.Len(t, stabs, 1)
}
