package midifile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"eeg-backend/internal/music"
)

func TestWriteAndReadBack(t *testing.T) {
	notes := []music.NoteEvent{
		{Pitch: 60, Velocity: 100, TStart: 0.0, TEnd: 0.5},
		{Pitch: 64, Velocity: 90, TStart: 0.5, TEnd: 1.0},
		{Pitch: 67, Velocity: 80, TStart: 1.0, TEnd: 2.0},
	}

	path := filepath.Join(t.TempDir(), "test.mid")
	require.NoError(t, Write(path, notes, Config{BPM: 120}))

	s, err := smf.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, s.Tracks)

	var ons, offs int
	var pitches []uint8
	for _, ev := range s.Tracks[0] {
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			ons++
			pitches = append(pitches, key)
		} else if ev.Message.GetNoteEnd(&ch, &key) {
			offs++
		}
	}
	require.Equal(t, len(notes), ons)
	require.Equal(t, len(notes), offs)
	require.Equal(t, []uint8{60, 64, 67}, pitches)
}

func TestWriteShiftsToEarliestNote(t *testing.T) {
	// Notes starting late in absolute time still begin at tick zero.
	notes := []music.NoteEvent{
		{Pitch: 72, Velocity: 100, TStart: 100.0, TEnd: 100.5},
	}
	path := filepath.Join(t.TempDir(), "late.mid")
	require.NoError(t, Write(path, notes, Config{BPM: 60}))

	s, err := smf.ReadFile(path)
	require.NoError(t, err)

	var firstOnDelta uint32
	var cursor uint32
	for _, ev := range s.Tracks[0] {
		cursor += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			firstOnDelta = cursor
			break
		}
	}
	require.Zero(t, firstOnDelta)
}

func TestWriteZeroDurationGetsMinimumLength(t *testing.T) {
	notes := []music.NoteEvent{
		{Pitch: 60, Velocity: 100, TStart: 1.0, TEnd: 1.0},
	}
	path := filepath.Join(t.TempDir(), "zero.mid")
	require.NoError(t, Write(path, notes, Config{BPM: 120}))

	s, err := smf.ReadFile(path)
	require.NoError(t, err)

	var onTick, offTick uint32
	var cursor uint32
	for _, ev := range s.Tracks[0] {
		cursor += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			onTick = cursor
		} else if ev.Message.GetNoteEnd(&ch, &key) {
			offTick = cursor
		}
	}
	require.Greater(t, offTick, onTick)
}

func TestWriteRejectsBadChannel(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "bad.mid"), nil, Config{Channel: 16})
	require.Error(t, err)
}

func TestWriteSkipsOutOfRangePitches(t *testing.T) {
	notes := []music.NoteEvent{
		{Pitch: -3, Velocity: 100, TStart: 0, TEnd: 1},
		{Pitch: 200, Velocity: 100, TStart: 0, TEnd: 1},
		{Pitch: 60, Velocity: 100, TStart: 0, TEnd: 1},
	}
	path := filepath.Join(t.TempDir(), "range.mid")
	require.NoError(t, Write(path, notes, Config{}))

	s, err := smf.ReadFile(path)
	require.NoError(t, err)

	ons := 0
	for _, ev := range s.Tracks[0] {
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			ons++
		}
	}
	require.Equal(t, 1, ons)
}
