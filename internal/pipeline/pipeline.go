// Package pipeline wires the analysis stages end to end: filtered signal
// in, segments, spectral features, bars and note events out. It serves
// both the offline file path and the streaming services.
package pipeline

import (
	"fmt"
	"log"
	"math"

	"eeg-backend/internal/dsp"
	"eeg-backend/internal/music"
	"eeg-backend/internal/segmenter"
)

// Config assembles a Pipeline. Engine, Composer, Bars and Notes must be
// constructed by the caller; the remaining fields tune the glue.
type Config struct {
	Engine   *dsp.Engine
	Composer *music.Composer
	Bars     *music.BarGenerator
	Notes    *music.NoteGenerator

	PSDMethod string  // feature estimation method (default welch)
	BPM       float64 // tempo used to size bars (default 80)

	// Stability band for chord selection (defaults 0.5 and 40 Hz).
	StabilityFmin float64
	StabilityFmax float64
}

// Pipeline converts one channel's cleaned samples into symbolic music.
// Safe for use from one goroutine at a time.
type Pipeline struct {
	cfg    Config
	barSec float64
}

// New validates the configuration and computes the bar duration: four
// beats at the configured tempo.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Engine == nil || cfg.Composer == nil || cfg.Bars == nil || cfg.Notes == nil {
		return nil, fmt.Errorf("pipeline: engine, composer, bar and note generators are all required")
	}
	if cfg.PSDMethod == "" {
		cfg.PSDMethod = dsp.MethodWelch
	}
	if cfg.BPM <= 0 {
		cfg.BPM = 80
	}
	if cfg.StabilityFmin <= 0 {
		cfg.StabilityFmin = 0.5
	}
	if cfg.StabilityFmax <= cfg.StabilityFmin {
		cfg.StabilityFmax = 40
	}
	return &Pipeline{cfg: cfg, barSec: 4 * 60 / cfg.BPM}, nil
}

// BPM returns the configured tempo.
func (p *Pipeline) BPM() float64 { return p.cfg.BPM }

// SegmentResult bundles everything derived from one segment.
type SegmentResult struct {
	Segment  segmenter.Segment
	Features music.SegmentFeatures
	Music    music.MusicSegment
	Bars     []music.Bar
	Notes    []music.NoteEvent
}

// ComposeSegment analyzes one segment's samples and renders its music.
// Segments too short for spectral analysis return (nil, nil).
func (p *Pipeline) ComposeSegment(x []float64, seg segmenter.Segment) (*SegmentResult, error) {
	feats, err := p.cfg.Engine.ComputeFeatures(x, p.cfg.PSDMethod)
	if err != nil {
		return nil, fmt.Errorf("pipeline: features for segment at %.2fs: %w", seg.TStart, err)
	}
	if feats == nil {
		return nil, nil
	}

	sf := music.SegmentFeatures{
		TStart:   seg.TStart,
		TEnd:     seg.TEnd,
		AlphaRel: feats.BandpowerRel["alpha"],
		BetaRel:  feats.BandpowerRel["beta"],
		PeakFreq: feats.PeakFreq,
		RMS:      feats.RMS,
	}
	ms := p.cfg.Composer.Compose(sf)

	nBars := int(math.Round(ms.Duration() / p.barSec))
	if nBars < 1 {
		nBars = 1
	}

	stabilities := barStabilities(p.cfg.Engine, x, dsp.MethodMultitaper, nBars,
		p.cfg.StabilityFmin, p.cfg.StabilityFmax)
	amps := amplitudeSlots(x, len(stabilities), p.cfg.Bars.SlotsPerBar())

	bars, err := p.cfg.Bars.Generate(ms, stabilities, amps)
	if err != nil {
		return nil, fmt.Errorf("pipeline: bars for segment at %.2fs: %w", seg.TStart, err)
	}
	notes := p.cfg.Notes.Generate(ms, bars)

	return &SegmentResult{
		Segment:  seg,
		Features: sf,
		Music:    ms,
		Bars:     bars,
		Notes:    notes,
	}, nil
}

// ProcessChannel segments a complete cleaned channel and composes every
// segment. Segments that are too short to analyze are skipped with a log
// line rather than failing the run.
func (p *Pipeline) ProcessChannel(x []float64, sgm *segmenter.Segmenter) ([]SegmentResult, error) {
	segs := sgm.SegmentArray(x)
	results := make([]SegmentResult, 0, len(segs))
	for _, seg := range segs {
		res, err := p.ComposeSegment(x[seg.StartIdx:seg.EndIdx+1], seg)
		if err != nil {
			return nil, err
		}
		if res == nil {
			log.Printf("Pipeline: skipping segment %.2fs-%.2fs, too short for analysis",
				seg.TStart, seg.TEnd)
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// AllNotes flattens the note events of a result list, already sorted
// because segments and their notes are both time-ordered.
func AllNotes(results []SegmentResult) []music.NoteEvent {
	var out []music.NoteEvent
	for _, r := range results {
		out = append(out, r.Notes...)
	}
	return out
}
