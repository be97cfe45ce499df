package music

import "fmt"

// Scale is a root note plus a set of semitone intervals from that root.
// Intervals are pitch classes in [0, 12); the root carries the octave.
type Scale struct {
	Name      string
	Root      int   // MIDI note of the root, e.g. 60 for a C4-rooted scale
	Intervals []int // ascending semitone offsets, first entry 0
}

// NewScale builds a scale from a root note name, e.g. NewScale("Major",
// "C4", []int{0,2,4,5,7,9,11}).
func NewScale(name, root string, intervals []int) (Scale, error) {
	rootMIDI, err := NoteNameToMIDI(root)
	if err != nil {
		return Scale{}, err
	}
	if len(intervals) == 0 {
		return Scale{}, fmt.Errorf("music: scale %q has no intervals", name)
	}
	return Scale{Name: name, Root: rootMIDI, Intervals: intervals}, nil
}

// Len returns the number of scale degrees.
func (s Scale) Len() int { return len(s.Intervals) }

// Contains reports whether the MIDI note's pitch class belongs to the scale.
func (s Scale) Contains(midi int) bool {
	pc := ((midi - s.Root) % 12 + 12) % 12
	for _, iv := range s.Intervals {
		if iv%12 == pc {
			return true
		}
	}
	return false
}

// DegreePitch returns the MIDI note of scale degree d (zero-based, wrapping
// past the octave) shifted by octaveOffset octaves.
func (s Scale) DegreePitch(d, octaveOffset int) int {
	n := len(s.Intervals)
	wrapped := ((d % n) + n) % n
	octaves := octaveOffset
	if d >= 0 {
		octaves += d / n
	} else {
		octaves += (d - n + 1) / n
	}
	return s.Root + s.Intervals[wrapped] + 12*octaves
}

// PitchesBetween lists every scale member in [lo, hi], ascending.
func (s Scale) PitchesBetween(lo, hi int) []int {
	if lo < 0 {
		lo = 0
	}
	if hi > 127 {
		hi = 127
	}
	var out []int
	for p := lo; p <= hi; p++ {
		if s.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}
