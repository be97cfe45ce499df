// Package edfload reads EEG recordings from EDF/EDF+ files into per-channel
// sample slices. Sample decoding and calibration go through the edf
// library; the loader additionally scans the fixed-layout header for the
// signal labels and sampling rates the library does not expose.
package edfload

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/OpenPSG/edf"
)

// Channel is one loaded signal: its label, sampling rate and full sample
// sequence in physical units.
type Channel struct {
	Label   string
	Fs      float64
	Samples []float64
}

// Recording is a fully loaded EDF file.
type Recording struct {
	Channels []Channel
}

// ChannelByLabel returns the channel with the given label, matched
// case-insensitively, or nil.
func (r *Recording) ChannelByLabel(label string) *Channel {
	for i := range r.Channels {
		if strings.EqualFold(r.Channels[i].Label, label) {
			return &r.Channels[i]
		}
	}
	return nil
}

// signalMeta is the per-signal header information needed to size reads.
type signalMeta struct {
	label            string
	samplesPerRecord int
}

// fileMeta is the subset of the EDF header the loader scans itself.
type fileMeta struct {
	dataRecords    int
	recordDuration float64 // seconds
	signals        []signalMeta
}

// Load reads every signal of an EDF file.
func Load(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("edfload: opening %s: %w", path, err)
	}
	defer f.Close()

	meta, err := scanHeader(f)
	if err != nil {
		return nil, fmt.Errorf("edfload: %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("edfload: rewinding %s: %w", path, err)
	}

	reader, err := edf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("edfload: parsing %s: %w", path, err)
	}

	rec := &Recording{Channels: make([]Channel, 0, len(meta.signals))}
	for i, sig := range meta.signals {
		sr, err := reader.Signal(i)
		if err != nil {
			return nil, fmt.Errorf("edfload: opening signal %d: %w", i, err)
		}

		total := sig.samplesPerRecord * meta.dataRecords
		samples := make([]float64, total)
		n, err := sr.Read(samples)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("edfload: reading signal %q: %w", sig.label, err)
		}
		samples = samples[:n]

		fs := 0.0
		if meta.recordDuration > 0 {
			fs = float64(sig.samplesPerRecord) / meta.recordDuration
		}
		rec.Channels = append(rec.Channels, Channel{
			Label:   sig.label,
			Fs:      fs,
			Samples: samples,
		})
	}

	log.Printf("EDFLoad: %s: %d signals, %d records of %.3fs",
		path, len(rec.Channels), meta.dataRecords, meta.recordDuration)
	return rec, nil
}

// scanHeader reads the fixed-layout EDF header fields the loader needs:
// record count, record duration, and per-signal labels and samples per
// record.
func scanHeader(r io.Reader) (*fileMeta, error) {
	fixed := make([]byte, 256)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	dataRecords, err := strconv.Atoi(strings.TrimSpace(string(fixed[236:244])))
	if err != nil {
		return nil, fmt.Errorf("parsing record count: %w", err)
	}
	recordDuration, err := strconv.ParseFloat(strings.TrimSpace(string(fixed[244:252])), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing record duration: %w", err)
	}
	signalCount, err := strconv.Atoi(strings.TrimSpace(string(fixed[252:256])))
	if err != nil {
		return nil, fmt.Errorf("parsing signal count: %w", err)
	}
	if signalCount < 1 {
		return nil, fmt.Errorf("file declares %d signals", signalCount)
	}

	meta := &fileMeta{
		dataRecords:    dataRecords,
		recordDuration: recordDuration,
		signals:        make([]signalMeta, signalCount),
	}

	// Signal header: arrays of fixed-width fields, one array per field.
	labels := make([]byte, 16*signalCount)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("reading signal labels: %w", err)
	}
	for i := 0; i < signalCount; i++ {
		meta.signals[i].label = strings.TrimSpace(string(labels[i*16 : (i+1)*16]))
	}

	// Skip transducer (80), dimension (8), physical min/max (8+8),
	// digital min/max (8+8), prefiltering (80) to reach samples per
	// record.
	skip := signalCount * (80 + 8 + 8 + 8 + 8 + 8 + 80)
	if _, err := io.CopyN(io.Discard, r, int64(skip)); err != nil {
		return nil, fmt.Errorf("skipping signal metadata: %w", err)
	}

	spr := make([]byte, 8*signalCount)
	if _, err := io.ReadFull(r, spr); err != nil {
		return nil, fmt.Errorf("reading samples per record: %w", err)
	}
	for i := 0; i < signalCount; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(string(spr[i*8 : (i+1)*8])))
		if err != nil {
			return nil, fmt.Errorf("parsing samples per record for signal %d: %w", i, err)
		}
		meta.signals[i].samplesPerRecord = n
	}
	return meta, nil
}
