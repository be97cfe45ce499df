// Package midifile renders note events into a standard MIDI file with a
// single track, a tempo event and a program change.
package midifile

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"eeg-backend/internal/music"
)

// Config controls the rendered file. Zero values take the documented
// defaults.
type Config struct {
	BPM          float64 // tempo written to the file (default 80)
	TicksPerBeat uint16  // SMF resolution (default 480)
	Channel      uint8   // MIDI channel 0..15 (default 0)
	Program      uint8   // GM program number (default 0, acoustic grand)
}

type timedEvent struct {
	tick  uint32
	isOff bool
	msg   []byte
}

// Write renders the notes into an SMF type-0 file at path. Note times are
// shifted so the earliest note starts at tick zero; every note sounds for
// at least one tick.
func Write(path string, notes []music.NoteEvent, cfg Config) error {
	if cfg.BPM <= 0 {
		cfg.BPM = 80
	}
	if cfg.TicksPerBeat == 0 {
		cfg.TicksPerBeat = 480
	}
	if cfg.Channel > 15 {
		return fmt.Errorf("midifile: channel %d out of range", cfg.Channel)
	}

	t0 := 0.0
	if len(notes) > 0 {
		t0 = notes[0].TStart
		for _, n := range notes[1:] {
			if n.TStart < t0 {
				t0 = n.TStart
			}
		}
	}

	tickOf := func(t float64) uint32 {
		ticks := (t - t0) * float64(cfg.TicksPerBeat) * cfg.BPM / 60.0
		if ticks < 0 {
			ticks = 0
		}
		return uint32(math.Round(ticks))
	}

	events := make([]timedEvent, 0, 2*len(notes))
	for _, n := range notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			continue
		}
		start := tickOf(n.TStart)
		end := tickOf(n.TEnd)
		if end <= start {
			end = start + 1
		}
		vel := n.Velocity
		if vel < 1 {
			vel = 1
		}
		if vel > 127 {
			vel = 127
		}
		events = append(events,
			timedEvent{tick: start, msg: midi.NoteOn(cfg.Channel, uint8(n.Pitch), uint8(vel))},
			timedEvent{tick: end, isOff: true, msg: midi.NoteOff(cfg.Channel, uint8(n.Pitch))},
		)
	}

	// Offs sort before ons at the same tick so retriggered pitches are
	// released before they restart.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].isOff && !events[j].isOff
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(cfg.TicksPerBeat)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(cfg.BPM))
	tr.Add(0, midi.ProgramChange(cfg.Channel, cfg.Program))

	var cursor uint32
	for _, ev := range events {
		tr.Add(ev.tick-cursor, ev.msg)
		cursor = ev.tick
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return fmt.Errorf("midifile: adding track: %w", err)
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("midifile: writing %s: %w", path, err)
	}
	return nil
}
