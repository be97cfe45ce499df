// Package segmenter splits a signal into contiguous segments wherever the
// running amplitude level shifts. A segment boundary opens when a sample
// deviates from the segment's running mean by more than a relative
// threshold, provided the segment has reached a minimum duration.
package segmenter

import (
	"fmt"
	"math"
)

// Segment is a half-open run of samples [StartIdx, EndIdx] with both
// endpoints inclusive, plus the corresponding times in seconds.
type Segment struct {
	StartIdx int
	EndIdx   int
	TStart   float64
	TEnd     float64
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.TEnd - s.TStart }

// Config sets the boundary rule.
type Config struct {
	Fs          float64 // sampling rate in Hz (required)
	Threshold   float64 // relative deviation that opens a boundary (default 0.5)
	MinDuration float64 // shortest allowed segment in seconds (default 1)
	UseAbs      bool    // track |x| instead of x; amplitude-level segmentation
}

// DefaultConfig returns the standard amplitude-tracking setup.
func DefaultConfig(fs float64) Config {
	return Config{Fs: fs, Threshold: 0.5, MinDuration: 1.0, UseAbs: true}
}

// Segmenter carries the streaming state: the open segment's start index and
// the running mean of its samples. Not safe for concurrent use.
type Segmenter struct {
	cfg Config

	startIdx int
	sum      float64
	count    int

	// onSegment, when set, fires for every closed segment, in both
	// streaming and batch mode.
	onSegment func(Segment)
}

// New validates the configuration and returns a fresh Segmenter.
func New(cfg Config) (*Segmenter, error) {
	if cfg.Fs <= 0 {
		return nil, fmt.Errorf("segmenter: sampling rate must be positive, got %v", cfg.Fs)
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.5
	}
	if cfg.MinDuration < 0 {
		cfg.MinDuration = 0
	}
	return &Segmenter{cfg: cfg}, nil
}

// OnSegment registers a callback invoked synchronously whenever a segment
// closes.
func (sg *Segmenter) OnSegment(fn func(Segment)) { sg.onSegment = fn }

// ProcessSample feeds one sample at absolute index idx. When the sample
// closes the open segment, that segment is returned (and the callback
// fires); otherwise the second result is false.
func (sg *Segmenter) ProcessSample(idx int, x float64) (Segment, bool) {
	if sg.cfg.UseAbs {
		x = math.Abs(x)
	}

	if sg.count > 0 {
		mean := sg.sum / float64(sg.count)
		relDev := math.Abs(x-mean) / (math.Abs(mean) + 1e-9)
		elapsed := float64(idx-sg.startIdx) / sg.cfg.Fs
		if relDev > sg.cfg.Threshold && elapsed >= sg.cfg.MinDuration {
			seg := sg.close(idx - 1)
			sg.startIdx = idx
			sg.sum = 0
			sg.count = 0
			sg.accumulate(x)
			return seg, true
		}
	} else {
		// First sample of a fresh segment.
		sg.startIdx = idx
	}

	sg.accumulate(x)
	return Segment{}, false
}

func (sg *Segmenter) accumulate(x float64) {
	sg.sum += x
	sg.count++
}

func (sg *Segmenter) close(endIdx int) Segment {
	seg := Segment{
		StartIdx: sg.startIdx,
		EndIdx:   endIdx,
		TStart:   float64(sg.startIdx) / sg.cfg.Fs,
		TEnd:     float64(endIdx) / sg.cfg.Fs,
	}
	if sg.onSegment != nil {
		sg.onSegment(seg)
	}
	return seg
}

// Flush closes the open segment at lastIdx, if any samples are pending, and
// resets the streaming state.
func (sg *Segmenter) Flush(lastIdx int) (Segment, bool) {
	if sg.count == 0 {
		return Segment{}, false
	}
	seg := sg.close(lastIdx)
	sg.startIdx = 0
	sg.sum = 0
	sg.count = 0
	return seg, true
}

// SegmentArray runs the boundary rule over a complete signal and returns
// all segments, always closing the final one at the last sample. The
// streaming state is consumed; the Segmenter is reset afterwards.
func (sg *Segmenter) SegmentArray(x []float64) []Segment {
	if len(x) == 0 {
		return nil
	}
	var segs []Segment
	for i, v := range x {
		if seg, ok := sg.ProcessSample(i, v); ok {
			segs = append(segs, seg)
		}
	}
	if seg, ok := sg.Flush(len(x) - 1); ok {
		segs = append(segs, seg)
	}
	return segs
}
