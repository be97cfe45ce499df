package music

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrSlotCount is returned when a bar's amplitude grid does not match the
// configured slots per bar.
var ErrSlotCount = errors.New("music: amplitude slot count mismatch")

// Bar is one chord's worth of a segment: its time span, the triad chosen
// from the bar's spectral stability, and the rhythm slots activated by the
// amplitude envelope.
type Bar struct {
	Index  int
	TStart float64
	TEnd   float64

	Stability float64
	Degree    int   // chosen scale degree of the triad root
	Chord     []int // triad MIDI pitches, ascending

	Amplitudes  []float64 // normalized slot amplitudes, 0..1
	ActiveSlots []bool    // which slots sound
}

// SlotDuration returns the length of one rhythm slot in seconds.
func (b Bar) SlotDuration() float64 {
	return (b.TEnd - b.TStart) / float64(len(b.ActiveSlots))
}

// BarConfig tunes bar generation. Zero values take the documented defaults.
type BarConfig struct {
	SlotsPerBar  int // rhythm resolution per bar (default 16)
	OctaveOffset int // shifts all chords by whole octaves

	// Stability breakpoints for the chord table: at or below Low picks
	// the tonic, at or below High the subdominant, above it the dominant.
	StabilityLow  float64 // default 0.33
	StabilityHigh float64 // default 0.66

	// Slot activation: how many slots each cadence aims to fill, and the
	// normalized amplitude a slot needs to be a first-choice candidate.
	TargetLow       int     // default 3
	TargetMedium    int     // default 6
	TargetHigh      int     // default 16
	ActivationLevel float64 // default 0.5
}

// BarGenerator divides segments into bars, picks a triad per bar from its
// stability, and activates rhythm slots from the amplitude envelope.
type BarGenerator struct {
	cfg BarConfig
}

// NewBarGenerator applies defaults and returns a generator.
func NewBarGenerator(cfg BarConfig) *BarGenerator {
	if cfg.SlotsPerBar <= 0 {
		cfg.SlotsPerBar = 16
	}
	if cfg.StabilityLow <= 0 {
		cfg.StabilityLow = 0.33
	}
	if cfg.StabilityHigh <= cfg.StabilityLow {
		cfg.StabilityHigh = 0.66
	}
	if cfg.TargetLow <= 0 {
		cfg.TargetLow = 3
	}
	if cfg.TargetMedium <= 0 {
		cfg.TargetMedium = 6
	}
	if cfg.TargetHigh <= 0 {
		cfg.TargetHigh = 16
	}
	if cfg.ActivationLevel <= 0 {
		cfg.ActivationLevel = 0.5
	}
	return &BarGenerator{cfg: cfg}
}

// SlotsPerBar returns the configured rhythm resolution.
func (g *BarGenerator) SlotsPerBar() int { return g.cfg.SlotsPerBar }

// Generate splits the segment into len(stabilities) equal bars. Each bar i
// gets its chord from stabilities[i] and its rhythm from amplitudes[i],
// which must hold exactly SlotsPerBar values.
func (g *BarGenerator) Generate(seg MusicSegment, stabilities []float64, amplitudes [][]float64) ([]Bar, error) {
	nBars := len(stabilities)
	if nBars == 0 {
		return nil, nil
	}
	if len(amplitudes) != nBars {
		return nil, fmt.Errorf("music: %d amplitude rows for %d bars", len(amplitudes), nBars)
	}

	barDur := seg.Duration() / float64(nBars)
	target := g.targetSlots(seg.Cadence)

	bars := make([]Bar, nBars)
	for i := 0; i < nBars; i++ {
		if len(amplitudes[i]) != g.cfg.SlotsPerBar {
			return nil, fmt.Errorf("%w: bar %d has %d slots, expected %d",
				ErrSlotCount, i, len(amplitudes[i]), g.cfg.SlotsPerBar)
		}

		stab := stabilities[i]
		if math.IsNaN(stab) || math.IsInf(stab, 0) {
			stab = 0.5
		}
		degree := g.chordDegree(stab, seg.Scale)

		norm := normalizeAmplitudes(amplitudes[i])
		bars[i] = Bar{
			Index:       i,
			TStart:      seg.TStart + float64(i)*barDur,
			TEnd:        seg.TStart + float64(i+1)*barDur,
			Stability:   stab,
			Degree:      degree,
			Chord:       triad(seg.Scale, degree, g.cfg.OctaveOffset),
			Amplitudes:  norm,
			ActiveSlots: g.activateSlots(norm, target),
		}
	}
	return bars, nil
}

// chordDegree maps stability onto the tonic / subdominant / dominant
// degrees: calm segments sit on the tonic, unstable ones push to the
// dominant. Scales without enough degrees for distinct triads stay on the
// tonic.
func (g *BarGenerator) chordDegree(stability float64, scale Scale) int {
	if scale.Len() < 5 {
		return 0
	}
	switch {
	case stability <= g.cfg.StabilityLow:
		return 0
	case stability <= g.cfg.StabilityHigh:
		return 3
	default:
		return 4
	}
}

// triad stacks two thirds on the given degree, wrapping degrees into the
// next octave as needed.
func triad(scale Scale, degree, octaveOffset int) []int {
	return []int{
		scale.DegreePitch(degree, octaveOffset),
		scale.DegreePitch(degree+2, octaveOffset),
		scale.DegreePitch(degree+4, octaveOffset),
	}
}

// targetSlots returns how many slots the cadence wants active, clamped to
// the bar's capacity.
func (g *BarGenerator) targetSlots(c Cadence) int {
	var t int
	switch c {
	case CadenceLow:
		t = g.cfg.TargetLow
	case CadenceHigh:
		t = g.cfg.TargetHigh
	default:
		t = g.cfg.TargetMedium
	}
	if t < 1 {
		t = 1
	}
	if t > g.cfg.SlotsPerBar {
		t = g.cfg.SlotsPerBar
	}
	return t
}

// normalizeAmplitudes scales slot amplitudes by the largest magnitude. A
// silent bar stays all zero.
func normalizeAmplitudes(amps []float64) []float64 {
	var max float64
	for _, a := range amps {
		if m := math.Abs(a); m > max {
			max = m
		}
	}
	out := make([]float64, len(amps))
	if max <= 0 {
		return out
	}
	for i, a := range amps {
		out[i] = math.Abs(a) / max
	}
	return out
}

// activateSlots turns on the target number of slots, preferring slots whose
// normalized amplitude clears the activation level. When no slot clears it,
// every slot competes so quiet bars still sound.
func (g *BarGenerator) activateSlots(norm []float64, target int) []bool {
	candidates := make([]int, 0, len(norm))
	for i, a := range norm {
		if a >= g.cfg.ActivationLevel {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		for i := range norm {
			candidates = append(candidates, i)
		}
	}

	// Strongest slots first; earlier slot wins ties for determinism.
	sort.SliceStable(candidates, func(a, b int) bool {
		return norm[candidates[a]] > norm[candidates[b]]
	})
	if target > len(candidates) {
		target = len(candidates)
	}

	active := make([]bool, len(norm))
	for _, idx := range candidates[:target] {
		active[idx] = true
	}
	return active
}
