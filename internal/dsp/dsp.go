// Package dsp implements single-channel spectral analysis for EEG windows:
// robust preprocessing, PSD estimation (periodogram, Welch, multitaper),
// band power aggregation, spectrograms and a spectral-stability metric.
// It does not manage buffers or channels; that is the conditioner's job.
package dsp

import (
	"errors"
	"math"
)

// PSD estimation methods accepted by ComputePSD and ComputeSpectrogram.
const (
	MethodPeriodogram = "periodogram"
	MethodWelch       = "welch"
	MethodMultitaper  = "multitaper"
)

// ErrUnsupportedMethod is returned for an unrecognized PSD method name.
// It indicates a configuration bug, not a runtime condition.
var ErrUnsupportedMethod = errors.New("dsp: unsupported PSD method")

// ErrInconsistentSpectrum is returned when spectrogram windows disagree on
// their frequency axis, which should be impossible for a fixed window size.
var ErrInconsistentSpectrum = errors.New("dsp: frequency axis varies between windows")

// Band is a named frequency range in Hz.
type Band struct {
	Name string
	Lo   float64
	Hi   float64
}

// DefaultBands returns the standard EEG band table.
func DefaultBands() []Band {
	return []Band{
		{"delta", 0.5, 4},
		{"theta", 4, 8},
		{"alpha", 8, 13},
		{"beta", 13, 30},
		{"gamma", 30, 50},
	}
}

// Observer receives diagnostic events from the numeric routines so they can
// stay free of logging side effects. All methods may be called from the
// goroutine running the analysis; implementations must not block.
type Observer interface {
	// ClippingDetected reports the fraction of samples sitting at the
	// window extremes, with the extreme values themselves.
	ClippingDetected(fraction, min, max float64)
	// OutliersDetected reports how many samples exceeded the robust
	// z-score threshold and were repaired.
	OutliersDetected(count, total int)
	// DegenerateSpectrum reports that a stability computation hit a
	// zero-power or empty-range spectrum and produced no value.
	DegenerateSpectrum(fmin, fmax float64)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) ClippingDetected(fraction, min, max float64) {}
func (NopObserver) OutliersDetected(count, total int)           {}
func (NopObserver) DegenerateSpectrum(fmin, fmax float64)       {}

// Config holds the tunable parameters of an Engine. The zero value is not
// usable; fill in Fs and call NewEngine, which applies defaults.
type Config struct {
	Fs           float64 // sampling rate in Hz (required)
	WindowSec    float64 // main analysis window length in seconds (default 4)
	WindowType   string  // taper for periodogram/Welch (default "hann")
	WelchOverlap float64 // Welch segment overlap fraction (default 0.5)
	Bands        []Band  // band table (default DefaultBands)

	// Multitaper parameters.
	MTTimeBandwidth float64 // NW time-bandwidth product (default 2.5)
	MTTapers        int     // number of DPSS tapers (default round(2*NW-1))

	// Preprocessing parameters.
	OutlierZScore       float64 // robust z threshold (default 5)
	InterpolateOutliers bool    // repair outliers by interpolation
	ClippingFraction    float64 // min/max occupancy flagged as clipping (default 0.01)

	Observer Observer // diagnostic sink (default NopObserver)
}

// Engine computes spectral quantities for one channel at a fixed sampling
// rate. It is not safe for concurrent use; the pipeline is tick-driven and
// single-threaded by design.
type Engine struct {
	cfg           Config
	windowSamples int

	// DPSS tapers are expensive to compute (symmetric eigenproblem), so
	// they are cached per window length.
	taperCache map[int][][]float64
}

// NewEngine builds an Engine, filling unset Config fields with defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.WindowSec <= 0 {
		cfg.WindowSec = 4.0
	}
	if cfg.WindowType == "" {
		cfg.WindowType = "hann"
	}
	if cfg.WelchOverlap <= 0 {
		cfg.WelchOverlap = 0.5
	}
	if cfg.Bands == nil {
		cfg.Bands = DefaultBands()
	}
	if cfg.MTTimeBandwidth <= 0 {
		cfg.MTTimeBandwidth = 2.5
	}
	if cfg.MTTapers <= 0 {
		cfg.MTTapers = int(math.Max(1, math.Round(2*cfg.MTTimeBandwidth-1)))
	}
	if cfg.OutlierZScore <= 0 {
		cfg.OutlierZScore = 5.0
	}
	if cfg.ClippingFraction <= 0 {
		cfg.ClippingFraction = 0.01
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}

	ws := int(math.Round(cfg.Fs * cfg.WindowSec))
	if ws < 1 {
		ws = 1
	}

	return &Engine{
		cfg:           cfg,
		windowSamples: ws,
		taperCache:    make(map[int][][]float64),
	}
}

// Fs returns the configured sampling rate.
func (e *Engine) Fs() float64 { return e.cfg.Fs }

// WindowSamples returns the length of the main analysis window in samples.
func (e *Engine) WindowSamples() int { return e.windowSamples }

// Bands returns the configured band table.
func (e *Engine) Bands() []Band { return e.cfg.Bands }

// FreqBinSize returns the frequency resolution fs/N for an N-sample window,
// or for the main analysis window when n <= 0.
func (e *Engine) FreqBinSize(n int) float64 {
	if n <= 0 {
		n = e.windowSamples
	}
	return e.cfg.Fs / float64(n)
}
