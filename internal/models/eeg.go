package models

import "time"

// SampleBlock is a chunk of raw EEG samples from one device, one inner
// slice per channel. Values are microvolts.
type SampleBlock struct {
	Timestamp time.Time   `json:"timestamp"`
	DeviceID  string      `json:"device_id"`
	Fs        float64     `json:"fs"`
	Samples   [][]float64 `json:"samples"`
}

// SamplePayload is the wire format devices publish on the samples topic.
// The device ID comes from the topic, the timestamp is assigned server-side.
type SamplePayload struct {
	Fs      float64     `json:"fs"`
	Samples [][]float64 `json:"samples"`
}

// FeatureRecord is one channel's spectral summary for a window, as stored
// in eeg_features.
type FeatureRecord struct {
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Channel   int       `json:"channel"`
	Method    string    `json:"method"`

	RMS      float64 `json:"rms"`
	PeakFreq float64 `json:"peak_freq"`

	// Band power maps keyed by band name, serialized to JSON strings for
	// storage.
	BandpowerAbs map[string]float64 `json:"bandpower_abs"`
	BandpowerRel map[string]float64 `json:"bandpower_rel"`
}

// SegmentRecord is one closed segment with its musical interpretation, as
// stored in eeg_segments.
type SegmentRecord struct {
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Channel   int       `json:"channel"`

	TStart   float64 `json:"t_start"`
	TEnd     float64 `json:"t_end"`
	AlphaRel float64 `json:"alpha_rel"`
	BetaRel  float64 `json:"beta_rel"`
	RMS      float64 `json:"rms"`

	Cadence      string  `json:"cadence"`
	RegisterHint float64 `json:"register_hint"`
	MainNote     int     `json:"main_note"`
	BarCount     int     `json:"bar_count"`
	NoteCount    int     `json:"note_count"`
}

// NoteMessage is one note event on the wire and in note_events. Channel
// and Program are MIDI fields, distinct from the EEG channel on the batch.
type NoteMessage struct {
	Pitch    int     `json:"pitch"`
	Velocity int     `json:"velocity"`
	Channel  int     `json:"channel"`
	Program  int     `json:"program"`
	TStart   float64 `json:"t_start"`
	TEnd     float64 `json:"t_end"`
}

// NoteBatch is the payload published on the notes topic: every note of one
// composed segment.
type NoteBatch struct {
	Timestamp time.Time     `json:"timestamp"`
	DeviceID  string        `json:"device_id"`
	Channel   int           `json:"channel"`
	BPM       float64       `json:"bpm"`
	TStart    float64       `json:"t_start"`
	TEnd      float64       `json:"t_end"`
	Notes     []NoteMessage `json:"notes"`
}

// Device describes a registered EEG source.
type Device struct {
	DeviceID     string    `json:"device_id"`
	Name         string    `json:"name"`
	Channels     int       `json:"channels"`
	Fs           float64   `json:"fs"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
	IsActive     bool      `json:"is_active"`
}
