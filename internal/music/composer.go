package music

import (
	"fmt"
	"math"
)

// Cadence is the coarse pacing class of a segment, derived from its
// relative alpha power.
type Cadence int

const (
	CadenceLow Cadence = iota
	CadenceMedium
	CadenceHigh
)

// String returns the lowercase cadence name.
func (c Cadence) String() string {
	switch c {
	case CadenceLow:
		return "low"
	case CadenceHigh:
		return "high"
	default:
		return "medium"
	}
}

// SegmentFeatures are the per-segment numbers the analysis side hands the
// composer. Relative powers are fractions of total band power; PeakFreq is
// the dominant spectral frequency in Hz.
type SegmentFeatures struct {
	TStart   float64
	TEnd     float64
	AlphaRel float64
	BetaRel  float64
	PeakFreq float64
	RMS      float64
}

// MusicSegment is a segment annotated with its musical interpretation,
// ready for bar and note generation.
type MusicSegment struct {
	TStart float64
	TEnd   float64

	Scale    Scale
	MainNote int // tonal anchor, a MIDI note

	Cadence      Cadence
	RegisterHint float64 // 0..1, low to high register preference

	// Raw features carried along for downstream tension and velocity.
	AlphaRel float64
	BetaRel  float64
	RMS      float64
}

// Duration returns the segment length in seconds.
func (m MusicSegment) Duration() float64 { return m.TEnd - m.TStart }

// ComposerConfig tunes the feature-to-music mapping. Zero values take the
// documented defaults.
type ComposerConfig struct {
	Scale    Scale
	MainNote string // note name; empty means the scale root

	AlphaLow  float64 // below this relative alpha the cadence is low (default 0.2)
	AlphaHigh float64 // above this relative alpha the cadence is high (default 0.5)

	PeakFreqMin float64 // register mapping floor in Hz (default 0.5)
	PeakFreqMax float64 // register mapping ceiling in Hz (default 30)
}

// Composer maps segment features onto a scale, a cadence and a register
// preference. The tonal anchor never comes from the signal: it is the
// configured note or the scale root, so the output stays in key no matter
// what the EEG does.
type Composer struct {
	cfg      ComposerConfig
	mainNote int
}

// NewComposer resolves the main note and validates the configuration.
func NewComposer(cfg ComposerConfig) (*Composer, error) {
	if cfg.Scale.Len() == 0 {
		return nil, fmt.Errorf("music: composer needs a scale")
	}
	if cfg.AlphaLow <= 0 {
		cfg.AlphaLow = 0.2
	}
	if cfg.AlphaHigh <= 0 {
		cfg.AlphaHigh = 0.5
	}
	if cfg.PeakFreqMin <= 0 {
		cfg.PeakFreqMin = 0.5
	}
	if cfg.PeakFreqMax <= cfg.PeakFreqMin {
		cfg.PeakFreqMax = 30.0
	}

	main := cfg.Scale.Root
	if cfg.MainNote != "" {
		m, err := NoteNameToMIDI(cfg.MainNote)
		if err != nil {
			return nil, fmt.Errorf("music: resolving main note: %w", err)
		}
		main = m
	}
	return &Composer{cfg: cfg, mainNote: main}, nil
}

// MainNote returns the resolved tonal anchor.
func (c *Composer) MainNote() int { return c.mainNote }

// Compose interprets one segment's features.
func (c *Composer) Compose(f SegmentFeatures) MusicSegment {
	return MusicSegment{
		TStart:       f.TStart,
		TEnd:         f.TEnd,
		Scale:        c.cfg.Scale,
		MainNote:     c.mainNote,
		Cadence:      c.cadence(f.AlphaRel),
		RegisterHint: c.registerHint(f.PeakFreq),
		AlphaRel:     f.AlphaRel,
		BetaRel:      f.BetaRel,
		RMS:          f.RMS,
	}
}

// cadence classifies relative alpha power; an undefined value lands in the
// middle.
func (c *Composer) cadence(alphaRel float64) Cadence {
	switch {
	case math.IsNaN(alphaRel):
		return CadenceMedium
	case alphaRel < c.cfg.AlphaLow:
		return CadenceLow
	case alphaRel > c.cfg.AlphaHigh:
		return CadenceHigh
	default:
		return CadenceMedium
	}
}

// registerHint maps the dominant frequency onto [0, 1]. Undefined or
// non-positive peaks map to the neutral middle register.
func (c *Composer) registerHint(peak float64) float64 {
	if math.IsNaN(peak) || peak <= 0 {
		return 0.5
	}
	lo, hi := c.cfg.PeakFreqMin, c.cfg.PeakFreqMax
	if peak < lo {
		peak = lo
	}
	if peak > hi {
		peak = hi
	}
	return (peak - lo) / (hi - lo)
}
