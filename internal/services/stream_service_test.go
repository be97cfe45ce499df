package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"eeg-backend/internal/models"
	"eeg-backend/internal/segmenter"
)

func sampleBlock(deviceID string, fs float64, samples []float64) *models.SampleBlock {
	return &models.SampleBlock{
		DeviceID: deviceID,
		Fs:       fs,
		Samples:  [][]float64{samples},
	}
}

func TestOpenSegmentForcedClosed(t *testing.T) {
	const fs = 250.0
	cfg := DefaultStreamServiceConfig()
	cfg.MaxSegmentSec = 2
	// Make the boundary rule unreachable so only the cap can close.
	cfg.Segmenter = segmenter.Config{Threshold: 1e9, MinDuration: 0.1, UseAbs: true}
	svc := NewStreamService(nil, cfg)

	block := make([]float64, int(fs))
	for sec := 0; sec < 5; sec++ {
		for i := range block {
			ti := float64(sec*len(block)+i) / fs
			block[i] = 20 * math.Sin(2*math.Pi*10*ti)
		}
		svc.processBlock(sampleBlock("dev", fs, block))
	}

	// Five seconds of steady signal with a 2-second cap: two forced
	// segments, one second still open.
	require.Len(t, svc.JobChan, 2)
	for i := 0; i < 2; i++ {
		job := <-svc.JobChan
		require.Len(t, job.Samples, int(2*fs))
		require.InDelta(t, 2.0, job.Segment.Duration(), 0.01)
	}

	cs := svc.devices["dev"].chans[0]
	require.Len(t, cs.samples, int(fs), "accumulator keeps only the open second")
	require.Equal(t, int(4*fs), cs.baseIdx)
}

func TestSegmentsComposeFilteredSamples(t *testing.T) {
	const fs = 250.0
	cfg := DefaultStreamServiceConfig()
	cfg.MaxSegmentSec = 1
	svc := NewStreamService(nil, cfg)

	// A pure DC offset carries no signal; the conditioning chain must
	// remove it before segmentation, so the dispatched segment is silent.
	block := make([]float64, int(fs))
	for i := range block {
		block[i] = 100.0
	}
	svc.processBlock(sampleBlock("dev", fs, block))

	require.Len(t, svc.JobChan, 1)
	job := <-svc.JobChan
	require.Len(t, job.Samples, int(fs))
	for i, v := range job.Samples {
		require.InDelta(t, 0, v, 1e-6, "sample %d still carries the offset", i)
	}
}

func TestDeviceChannelCountEnforced(t *testing.T) {
	cfg := DefaultStreamServiceConfig()
	cfg.Channels = 2
	svc := NewStreamService(nil, cfg)

	svc.processBlock(sampleBlock("dev", 250, make([]float64, 250)))
	require.Empty(t, svc.devices, "single-channel device must be rejected")
}
