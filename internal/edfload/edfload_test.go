package edfload

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/edf"
	"github.com/stretchr/testify/require"
)

// writeTestEDF creates a two-signal EDF file: a 10 Hz sine and a constant,
// both sampled at 250 Hz in one-second records.
func writeTestEDF(t *testing.T, records int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.edf")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X",
		RecordingID:        "test recording",
		StartTime:          time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        2,
		Signals: []edf.SignalHeader{
			{
				Label:             "EEG Fpz-Cz",
				PhysicalDimension: "uV",
				PhysicalMin:       -200,
				PhysicalMax:       200,
				DigitalMin:        -32768,
				DigitalMax:        32767,
				SamplesPerRecord:  250,
			},
			{
				Label:             "EEG Pz-Oz",
				PhysicalDimension: "uV",
				PhysicalMin:       -200,
				PhysicalMax:       200,
				DigitalMin:        -32768,
				DigitalMax:        32767,
				SamplesPerRecord:  250,
			},
		},
	}

	w, err := edf.Create(f, hdr)
	require.NoError(t, err)

	for r := 0; r < records; r++ {
		sine := make([]float64, 250)
		constant := make([]float64, 250)
		for i := range sine {
			ti := float64(r*250+i) / 250.0
			sine[i] = 100 * math.Sin(2*math.Pi*10*ti)
			constant[i] = 50
		}
		require.NoError(t, w.WriteRecord([][]float64{sine, constant}))
	}
	require.NoError(t, w.Close())
	return path
}

func TestLoadRoundTrip(t *testing.T) {
	path := writeTestEDF(t, 4)

	rec, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rec.Channels, 2)

	sine := rec.Channels[0]
	require.Equal(t, "EEG Fpz-Cz", sine.Label)
	require.InDelta(t, 250.0, sine.Fs, 1e-9)
	require.Len(t, sine.Samples, 1000)

	// Calibration is 16-bit over +-200 uV; expect sub-uV accuracy.
	require.InDelta(t, 0.0, sine.Samples[0], 0.1)
	require.InDelta(t, 100*math.Sin(2*math.Pi*10*(1.0/250.0)), sine.Samples[1], 0.1)

	constant := rec.Channels[1]
	require.Equal(t, "EEG Pz-Oz", constant.Label)
	for i := 0; i < 10; i++ {
		require.InDelta(t, 50.0, constant.Samples[i], 0.1)
	}
}

func TestChannelByLabel(t *testing.T) {
	path := writeTestEDF(t, 1)
	rec, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, rec.ChannelByLabel("EEG Pz-Oz"))
	require.NotNil(t, rec.ChannelByLabel("eeg pz-oz"))
	require.Nil(t, rec.ChannelByLabel("EMG"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.edf"))
	require.Error(t, err)
}
