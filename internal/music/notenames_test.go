package music

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoteNameToMIDI(t *testing.T) {
	cases := map[string]int{
		"C4":  60,
		"A4":  69,
		"C#4": 61,
		"Db4": 61,
		"Bb3": 58,
		"BB3": 58,
		"bb3": 58,
		"F#2": 42,
		"C-1": 0,
		"G9":  127,
	}
	for name, want := range cases {
		got, err := NoteNameToMIDI(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
}

func TestNoteNameToMIDIInvalid(t *testing.T) {
	for _, name := range []string{"", "C", "H4", "C##4", "Cx", "4C", "C4x"} {
		_, err := NoteNameToMIDI(name)
		require.Error(t, err, name)
	}
}

func TestNoteNameToMIDIOutOfRange(t *testing.T) {
	_, err := NoteNameToMIDI("C10")
	require.Error(t, err)
}

func TestMIDIToNoteName(t *testing.T) {
	require.Equal(t, "C4", MIDIToNoteName(60))
	require.Equal(t, "A4", MIDIToNoteName(69))
	require.Equal(t, "C#4", MIDIToNoteName(61))
	require.Equal(t, "B3", MIDIToNoteName(59))
}

func TestNoteNameRoundTrip(t *testing.T) {
	for midi := 12; midi <= 120; midi++ {
		name := MIDIToNoteName(midi)
		back, err := NoteNameToMIDI(name)
		require.NoError(t, err, name)
		require.Equal(t, midi, back, name)
	}
}
