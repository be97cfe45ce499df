package segmenter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstantSignalSingleSegment(t *testing.T) {
	sg, err := New(Config{Fs: 100, Threshold: 0.5, MinDuration: 0.1, UseAbs: true})
	require.NoError(t, err)

	x := make([]float64, 300)
	for i := range x {
		x[i] = 1.0
	}
	segs := sg.SegmentArray(x)
	require.Len(t, segs, 1)
	require.Equal(t, 0, segs[0].StartIdx)
	require.Equal(t, 299, segs[0].EndIdx)
	require.Equal(t, 0.0, segs[0].TStart)
	require.InDelta(t, 2.99, segs[0].TEnd, 1e-9)
}

func TestLevelShiftSplitsSegments(t *testing.T) {
	sg, err := New(Config{Fs: 100, Threshold: 0.5, MinDuration: 0.1, UseAbs: true})
	require.NoError(t, err)

	x := make([]float64, 200)
	for i := 0; i < 100; i++ {
		x[i] = 1.0
	}
	for i := 100; i < 200; i++ {
		x[i] = 10.0
	}
	segs := sg.SegmentArray(x)
	require.Len(t, segs, 2)

	require.Equal(t, 0, segs[0].StartIdx)
	require.Equal(t, 99, segs[0].EndIdx)
	require.Equal(t, 100, segs[1].StartIdx)
	require.Equal(t, 199, segs[1].EndIdx)
}

func TestMinDurationSuppressesEarlySplit(t *testing.T) {
	sg, err := New(Config{Fs: 100, Threshold: 0.5, MinDuration: 5.0, UseAbs: true})
	require.NoError(t, err)

	x := make([]float64, 200)
	for i := 0; i < 100; i++ {
		x[i] = 1.0
	}
	for i := 100; i < 200; i++ {
		x[i] = 10.0
	}
	// 2 seconds of data but a 5-second minimum: no boundary allowed.
	segs := sg.SegmentArray(x)
	require.Len(t, segs, 1)
}

func TestUseAbsFoldsPolarity(t *testing.T) {
	sg, err := New(Config{Fs: 100, Threshold: 0.5, MinDuration: 0.1, UseAbs: true})
	require.NoError(t, err)

	// Alternating sign, constant magnitude: no boundary when tracking |x|.
	x := make([]float64, 200)
	for i := range x {
		x[i] = 2.0
		if i%2 == 1 {
			x[i] = -2.0
		}
	}
	segs := sg.SegmentArray(x)
	require.Len(t, segs, 1)
}

func TestStreamingMatchesBatch(t *testing.T) {
	cfg := Config{Fs: 100, Threshold: 0.4, MinDuration: 0.2, UseAbs: true}

	x := make([]float64, 500)
	for i := range x {
		base := 1.0
		if i >= 150 && i < 320 {
			base = 4.0
		}
		x[i] = base + 0.05*math.Sin(float64(i))
	}

	batchSg, err := New(cfg)
	require.NoError(t, err)
	batch := batchSg.SegmentArray(x)

	streamSg, err := New(cfg)
	require.NoError(t, err)
	var streamed []Segment
	for i, v := range x {
		if seg, ok := streamSg.ProcessSample(i, v); ok {
			streamed = append(streamed, seg)
		}
	}
	if seg, ok := streamSg.Flush(len(x) - 1); ok {
		streamed = append(streamed, seg)
	}

	require.Equal(t, batch, streamed)
	require.NotEmpty(t, streamed)
}

func TestOnSegmentCallback(t *testing.T) {
	sg, err := New(Config{Fs: 100, Threshold: 0.5, MinDuration: 0.1, UseAbs: true})
	require.NoError(t, err)

	var closed []Segment
	sg.OnSegment(func(s Segment) { closed = append(closed, s) })

	x := make([]float64, 200)
	for i := range x {
		x[i] = 1.0
		if i >= 100 {
			x[i] = 10.0
		}
	}
	segs := sg.SegmentArray(x)
	require.Equal(t, segs, closed)
}

func TestFlushEmptyState(t *testing.T) {
	sg, err := New(Config{Fs: 100})
	require.NoError(t, err)
	_, ok := sg.Flush(0)
	require.False(t, ok)
}
