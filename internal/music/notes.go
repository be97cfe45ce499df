package music

import (
	"math"
	"sort"
)

// NoteEvent is one scheduled note: absolute times in seconds, MIDI pitch,
// velocity, and the channel and GM program it should sound on.
type NoteEvent struct {
	Pitch    int
	Velocity int
	Channel  int
	Program  int
	TStart   float64
	TEnd     float64
}

// NoteConfig tunes melody and voicing generation. Zero values take the
// documented defaults.
type NoteConfig struct {
	SlotsPerBeat int // slots per beat for downbeat detection (default 4)

	Channel int // MIDI channel stamped on every event (default 0)
	Program int // GM program stamped on every event (default 0)

	RegisterSpan float64 // semitone span the register hint sweeps (default 12)
	RegisterLow  int     // lowest allowed register center (default 36)
	RegisterHigh int     // highest allowed register center (default 96)

	TensionSpan float64 // semitone span the tension target sweeps (default 14)
	MaxInterval int     // largest melodic leap in semitones (default 12)

	// Candidate cost weights: the first note of a segment balances
	// closeness to the register center against the tension target, later
	// notes balance closeness to the previous pitch against the target.
	FirstCenterWeight float64 // default 0.5
	FirstTargetWeight float64 // default 0.5
	StepPrevWeight    float64 // default 0.7
	StepTargetWeight  float64 // default 0.3

	// Normalized slot amplitudes above AccentHigh push the note up an
	// octave, below AccentLow down one.
	AccentHigh float64 // default 0.8
	AccentLow  float64 // default 0.2

	VelocityBarStart  int // base velocity on the first slot of a bar (default 105)
	VelocityBeatStart int // base velocity on other downbeats (default 90)
	VelocityOffbeat   int // base velocity elsewhere (default 75)
	VelocityMin       int // default 30
	VelocityMax       int // default 120

	MaxChordVoices int // voices sounded on a bar's first slot (default 3)
}

// NoteGenerator renders bars into note events: a block chord on each bar's
// first slot and a cost-guided melody over the remaining active slots.
type NoteGenerator struct {
	cfg NoteConfig
}

// NewNoteGenerator applies defaults and returns a generator.
func NewNoteGenerator(cfg NoteConfig) *NoteGenerator {
	if cfg.SlotsPerBeat <= 0 {
		cfg.SlotsPerBeat = 4
	}
	if cfg.RegisterSpan <= 0 {
		cfg.RegisterSpan = 12
	}
	if cfg.RegisterLow <= 0 {
		cfg.RegisterLow = 36
	}
	if cfg.RegisterHigh <= cfg.RegisterLow {
		cfg.RegisterHigh = 96
	}
	if cfg.TensionSpan <= 0 {
		cfg.TensionSpan = 14
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 12
	}
	if cfg.FirstCenterWeight <= 0 {
		cfg.FirstCenterWeight = 0.5
	}
	if cfg.FirstTargetWeight <= 0 {
		cfg.FirstTargetWeight = 0.5
	}
	if cfg.StepPrevWeight <= 0 {
		cfg.StepPrevWeight = 0.7
	}
	if cfg.StepTargetWeight <= 0 {
		cfg.StepTargetWeight = 0.3
	}
	if cfg.AccentHigh <= 0 {
		cfg.AccentHigh = 0.8
	}
	if cfg.AccentLow <= 0 {
		cfg.AccentLow = 0.2
	}
	if cfg.VelocityBarStart <= 0 {
		cfg.VelocityBarStart = 105
	}
	if cfg.VelocityBeatStart <= 0 {
		cfg.VelocityBeatStart = 90
	}
	if cfg.VelocityOffbeat <= 0 {
		cfg.VelocityOffbeat = 75
	}
	if cfg.VelocityMin <= 0 {
		cfg.VelocityMin = 30
	}
	if cfg.VelocityMax <= cfg.VelocityMin {
		cfg.VelocityMax = 120
	}
	if cfg.MaxChordVoices <= 0 {
		cfg.MaxChordVoices = 3
	}
	return &NoteGenerator{cfg: cfg}
}

// Generate renders the bars of one segment into note events sorted by
// start time. Melodic continuity (the previous-pitch cost) runs across
// bars but resets between segments.
func (g *NoteGenerator) Generate(seg MusicSegment, bars []Bar) []NoteEvent {
	if len(bars) == 0 {
		return nil
	}

	center := g.registerCenter(seg)
	tension := tension(seg.AlphaRel, seg.BetaRel)
	target := float64(center) + (tension-0.5)*g.cfg.TensionSpan

	candidates := seg.Scale.PitchesBetween(center-12, center+12)
	velScale := rmsVelocityFactor(seg.RMS)

	var notes []NoteEvent
	prev := -1
	for _, bar := range bars {
		chordTones, nonChord := splitByChord(candidates, bar.Chord)
		slotDur := bar.SlotDuration()

		for slot, active := range bar.ActiveSlots {
			if !active {
				continue
			}
			tStart := bar.TStart + float64(slot)*slotDur
			tEnd := bar.TStart + float64(nextActiveSlot(bar.ActiveSlots, slot))*slotDur
			if tEnd > bar.TEnd {
				tEnd = bar.TEnd
			}
			if tEnd <= tStart {
				continue
			}

			if slot == 0 {
				voiced := g.voiceChord(chordTones, center, tStart, tEnd,
					g.velocity(slot, velScale))
				if len(voiced) > 0 {
					notes = append(notes, voiced...)
					prev = voiced[len(voiced)-1].Pitch
					continue
				}
			}

			pool := g.slotPool(slot, chordTones, nonChord)
			var pitch int
			if len(pool) == 0 {
				pitch = seg.MainNote
			} else {
				pitch = g.pickPitch(pool, prev, center, target)
			}
			pitch = g.accentShift(pitch, bar.Amplitudes[slot])
			pitch = g.constrainInterval(pitch, prev, center)

			notes = append(notes, NoteEvent{
				Pitch:    pitch,
				Velocity: g.velocity(slot, velScale),
				Channel:  g.cfg.Channel,
				Program:  g.cfg.Program,
				TStart:   tStart,
				TEnd:     tEnd,
			})
			prev = pitch
		}
	}

	sort.SliceStable(notes, func(i, j int) bool { return notes[i].TStart < notes[j].TStart })
	return notes
}

// registerCenter maps the segment's register hint onto a MIDI note around
// the main note.
func (g *NoteGenerator) registerCenter(seg MusicSegment) int {
	c := float64(seg.MainNote) + (seg.RegisterHint-0.5)*g.cfg.RegisterSpan
	center := int(math.Round(c))
	if center < g.cfg.RegisterLow {
		center = g.cfg.RegisterLow
	}
	if center > g.cfg.RegisterHigh {
		center = g.cfg.RegisterHigh
	}
	return center
}

// tension is the beta share of alpha plus beta power, the usual
// arousal-like ratio. Undefined inputs land in the middle.
func tension(alphaRel, betaRel float64) float64 {
	total := alphaRel + betaRel
	if math.IsNaN(total) || total <= 0 {
		return 0.5
	}
	t := betaRel / total
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// splitByChord partitions candidate pitches by chord membership (pitch
// class). When no candidate matches the chord, the chord pitches themselves
// become the chord-tone pool.
func splitByChord(candidates, chord []int) (chordTones, nonChord []int) {
	inChord := func(p int) bool {
		for _, c := range chord {
			if ((p-c)%12+12)%12 == 0 {
				return true
			}
		}
		return false
	}
	for _, p := range candidates {
		if inChord(p) {
			chordTones = append(chordTones, p)
		} else {
			nonChord = append(nonChord, p)
		}
	}
	if len(chordTones) == 0 {
		chordTones = append(chordTones, chord...)
	}
	return chordTones, nonChord
}

// slotPool returns the candidate pool for a slot: downbeats take chord
// tones, offbeats prefer non-chord tones and fall back to chord tones.
func (g *NoteGenerator) slotPool(slot int, chordTones, nonChord []int) []int {
	if slot%g.cfg.SlotsPerBeat == 0 {
		return chordTones
	}
	if len(nonChord) > 0 {
		return nonChord
	}
	return chordTones
}

// pickPitch chooses the minimum-cost candidate. The first note of a
// segment weighs the register center; later notes weigh the previous pitch.
func (g *NoteGenerator) pickPitch(pool []int, prev, center int, target float64) int {
	best := pool[0]
	bestCost := math.Inf(1)
	for _, p := range pool {
		var cost float64
		if prev < 0 {
			cost = g.cfg.FirstCenterWeight*math.Abs(float64(p-center)) +
				g.cfg.FirstTargetWeight*math.Abs(float64(p)-target)
		} else {
			cost = g.cfg.StepPrevWeight*math.Abs(float64(p-prev)) +
				g.cfg.StepTargetWeight*math.Abs(float64(p)-target)
		}
		if cost < bestCost {
			bestCost = cost
			best = p
		}
	}
	return best
}

// accentShift moves strongly accented slots up an octave and weak ones
// down.
func (g *NoteGenerator) accentShift(pitch int, amp float64) int {
	switch {
	case amp > g.cfg.AccentHigh:
		return pitch + 12
	case amp < g.cfg.AccentLow:
		return pitch - 12
	default:
		return pitch
	}
}

// constrainInterval folds the pitch by octaves until the leap from prev is
// within MaxInterval, bailing out to the register center if octave folding
// cannot resolve it, then clamps to the MIDI range.
func (g *NoteGenerator) constrainInterval(pitch, prev, center int) int {
	if prev >= 0 {
		for tries := 0; math.Abs(float64(pitch-prev)) > float64(g.cfg.MaxInterval); tries++ {
			if tries >= 10 {
				pitch = center
				break
			}
			if pitch > prev {
				pitch -= 12
			} else {
				pitch += 12
			}
		}
	}
	if pitch < 0 {
		pitch = 0
	}
	if pitch > 127 {
		pitch = 127
	}
	return pitch
}

// voiceChord emits up to MaxChordVoices pitches from the in-register
// chord-tone pool, nearest the register center first, then sounded low to
// high with each higher voice slightly softer.
func (g *NoteGenerator) voiceChord(chordTones []int, center int, tStart, tEnd float64, baseVel int) []NoteEvent {
	if len(chordTones) == 0 {
		return nil
	}
	picked := make([]int, len(chordTones))
	copy(picked, chordTones)
	sort.SliceStable(picked, func(i, j int) bool {
		return abs(picked[i]-center) < abs(picked[j]-center)
	})
	if len(picked) > g.cfg.MaxChordVoices {
		picked = picked[:g.cfg.MaxChordVoices]
	}
	sort.Ints(picked)

	voices := make([]NoteEvent, 0, len(picked))
	for i, p := range picked {
		if p < 0 || p > 127 {
			continue
		}
		vel := int(math.Round(float64(baseVel) * (1 - 0.1*float64(i))))
		voices = append(voices, NoteEvent{
			Pitch:    p,
			Velocity: g.clampVelocity(vel),
			Channel:  g.cfg.Channel,
			Program:  g.cfg.Program,
			TStart:   tStart,
			TEnd:     tEnd,
		})
	}
	return voices
}

// velocity computes the slot's base velocity scaled by the segment's RMS
// loudness factor.
func (g *NoteGenerator) velocity(slot int, rmsFactor float64) int {
	var base int
	switch {
	case slot == 0:
		base = g.cfg.VelocityBarStart
	case slot%g.cfg.SlotsPerBeat == 0:
		base = g.cfg.VelocityBeatStart
	default:
		base = g.cfg.VelocityOffbeat
	}
	return g.clampVelocity(int(math.Round(float64(base) * rmsFactor)))
}

func (g *NoteGenerator) clampVelocity(v int) int {
	if v < g.cfg.VelocityMin {
		return g.cfg.VelocityMin
	}
	if v > g.cfg.VelocityMax {
		return g.cfg.VelocityMax
	}
	return v
}

// rmsVelocityFactor compresses the window RMS into a gentle loudness
// multiplier around 1. Signals near 1 microvolt RMS are neutral; the tanh
// keeps the factor within [0.8, 1.2] regardless of scale.
func rmsVelocityFactor(rms float64) float64 {
	if rms <= 0 || math.IsNaN(rms) {
		return 1.0
	}
	return 1 + 0.2*math.Tanh(math.Log10(rms+1e-20)+6.0)
}

// nextActiveSlot returns the index of the next active slot after i, or the
// slot count when the rest of the bar is silent.
func nextActiveSlot(active []bool, i int) int {
	for j := i + 1; j < len(active); j++ {
		if active[j] {
			return j
		}
	}
	return len(active)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
