// Package conditioner buffers raw multichannel EEG samples and prepares
// clean windows for spectral analysis: fixed-capacity per-channel history
// plus a zero-phase filter chain (high-pass, low-pass, mains notch).
package conditioner

import (
	"fmt"
	"log"
	"math"
	"sync"
)

// Config sets up a Conditioner.
type Config struct {
	Fs        float64 // sampling rate in Hz (required)
	Channels  int     // expected channel count (required)
	BufferSec float64 // history length per channel in seconds (default 30)
	Filter    FilterConfig
}

// Conditioner holds a rolling window of the most recent samples for each
// channel. Writes and reads may come from different goroutines; all methods
// are safe for concurrent use.
type Conditioner struct {
	mu       sync.RWMutex
	fs       float64
	channels int
	capacity int

	buf     [][]float64 // per-channel ring storage
	writeAt int         // next write position, shared across channels
	filled  bool        // ring has wrapped at least once
	total   uint64      // samples accepted per channel since start

	filters *FilterBank
}

// New builds a Conditioner and designs its filter bank.
func New(cfg Config) (*Conditioner, error) {
	if cfg.Fs <= 0 {
		return nil, fmt.Errorf("conditioner: sampling rate must be positive, got %v", cfg.Fs)
	}
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("conditioner: need at least one channel, got %d", cfg.Channels)
	}
	if cfg.BufferSec <= 0 {
		cfg.BufferSec = 30.0
	}
	capacity := int(math.Round(cfg.Fs * cfg.BufferSec))
	if capacity < 1 {
		capacity = 1
	}

	cfg.Filter.Fs = cfg.Fs
	c := &Conditioner{
		fs:       cfg.Fs,
		channels: cfg.Channels,
		capacity: capacity,
		buf:      make([][]float64, cfg.Channels),
		filters:  NewFilterBank(cfg.Filter),
	}
	for ch := range c.buf {
		c.buf[ch] = make([]float64, capacity)
	}
	log.Printf("Conditioner: initialized %d channels at %.1f Hz, %d-sample history",
		cfg.Channels, cfg.Fs, capacity)
	return c, nil
}

// AddSample appends one frame (one value per channel) to the history. The
// frame is accepted atomically: a channel-count mismatch rejects the whole
// frame so the channels can never drift out of step.
func (c *Conditioner) AddSample(frame []float64) error {
	if len(frame) != c.channels {
		return fmt.Errorf("conditioner: frame has %d values, expected %d", len(frame), c.channels)
	}

	c.mu.Lock()
	for ch, v := range frame {
		c.buf[ch][c.writeAt] = v
	}
	c.writeAt++
	if c.writeAt == c.capacity {
		c.writeAt = 0
		c.filled = true
	}
	c.total++
	c.mu.Unlock()
	return nil
}

// AddBlock appends a block of frames, one slice per channel, all of equal
// length. Used by batch sources that deliver chunks instead of frames.
func (c *Conditioner) AddBlock(block [][]float64) error {
	if len(block) != c.channels {
		return fmt.Errorf("conditioner: block has %d channels, expected %d", len(block), c.channels)
	}
	n := len(block[0])
	for ch := 1; ch < len(block); ch++ {
		if len(block[ch]) != n {
			return fmt.Errorf("conditioner: channel %d has %d samples, expected %d", ch, len(block[ch]), n)
		}
	}

	c.mu.Lock()
	for i := 0; i < n; i++ {
		for ch := range block {
			c.buf[ch][c.writeAt] = block[ch][i]
		}
		c.writeAt++
		if c.writeAt == c.capacity {
			c.writeAt = 0
			c.filled = true
		}
		c.total++
	}
	c.mu.Unlock()
	return nil
}

// Len returns how many samples per channel are currently buffered.
func (c *Conditioner) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lenLocked()
}

func (c *Conditioner) lenLocked() int {
	if c.filled {
		return c.capacity
	}
	return c.writeAt
}

// Total returns the number of samples accepted per channel since start,
// including samples already evicted from the ring.
func (c *Conditioner) Total() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// Fs returns the sampling rate.
func (c *Conditioner) Fs() float64 { return c.fs }

// Channels returns the configured channel count.
func (c *Conditioner) Channels() int { return c.channels }

// Window copies out the most recent windowSec seconds of one channel,
// oldest sample first. It returns whatever is available when the buffer
// holds less than requested, everything buffered when windowSec is not
// positive, and nil for an invalid channel.
func (c *Conditioner) Window(channel int, windowSec float64) []float64 {
	if channel < 0 || channel >= c.channels {
		log.Printf("Conditioner: window request for invalid channel %d", channel)
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	have := c.lenLocked()
	want := have
	if windowSec > 0 {
		want = int(math.Round(windowSec * c.fs))
		if want > have {
			want = have
		}
	}
	if want < 1 {
		return nil
	}

	out := make([]float64, want)
	start := c.writeAt - want
	if start >= 0 {
		copy(out, c.buf[channel][start:c.writeAt])
		return out
	}
	// Wrapped: tail of the ring, then the head.
	start += c.capacity
	n := copy(out, c.buf[channel][start:])
	copy(out[n:], c.buf[channel][:c.writeAt])
	return out
}

// FilteredWindow returns the most recent window of one channel after the
// zero-phase filter chain. Windows too short to filter return nil.
func (c *Conditioner) FilteredWindow(channel int, windowSec float64) []float64 {
	raw := c.Window(channel, windowSec)
	if raw == nil {
		return nil
	}
	return c.filters.Apply(raw)
}

// Filters exposes the bank so batch pipelines can run the same chain over
// full-length recordings without going through the ring buffer.
func (c *Conditioner) Filters() *FilterBank { return c.filters }
