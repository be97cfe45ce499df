// Package music turns segment-level EEG descriptors into symbolic music:
// scales, chord bars and note events. It knows nothing about signals; its
// inputs are the few numbers the analysis side distills per segment.
package music

import (
	"fmt"
	"strconv"
	"strings"
)

// Pitch-class offsets from C for note letters with optional accidental.
var noteOffsets = map[string]int{
	"C": 0, "C#": 1, "Db": 1,
	"D": 2, "D#": 3, "Eb": 3,
	"E": 4,
	"F": 5, "F#": 6, "Gb": 6,
	"G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10,
	"B": 11,
}

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNameToMIDI parses names like "C4", "F#3", "Bb2" or "Eb-1" into a MIDI
// note number (C4 = 60, A4 = 69). Accidentals accept '#', 'b' and the
// unicode signs; letters are case-insensitive, so "bb3" is B flat 3.
func NoteNameToMIDI(name string) (int, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return 0, fmt.Errorf("music: invalid note name %q", name)
	}

	letter := strings.ToUpper(s[:1])
	if _, ok := noteOffsets[letter]; !ok {
		return 0, fmt.Errorf("music: invalid note letter in %q", name)
	}
	rest := s[1:]

	key := letter
	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			key += "#"
			rest = rest[1:]
		case 'b', 'B':
			key += "b"
			rest = rest[1:]
		default:
			if strings.HasPrefix(rest, "♯") {
				key += "#"
				rest = strings.TrimPrefix(rest, "♯")
			} else if strings.HasPrefix(rest, "♭") {
				key += "b"
				rest = strings.TrimPrefix(rest, "♭")
			}
		}
	}

	offset, ok := noteOffsets[key]
	if !ok {
		return 0, fmt.Errorf("music: invalid note %q", name)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("music: invalid octave in %q", name)
	}

	midi := 12 + offset + 12*octave
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("music: note %q is outside the MIDI range", name)
	}
	return midi, nil
}

// MIDIToNoteName renders a MIDI note number with sharp spelling, e.g.
// 61 -> "C#4".
func MIDIToNoteName(midi int) string {
	pc := ((midi % 12) + 12) % 12
	octave := midi/12 - 1
	return fmt.Sprintf("%s%d", sharpNames[pc], octave)
}
