package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"eeg-backend/internal/conditioner"
	"eeg-backend/internal/database"
	"eeg-backend/internal/dsp"
	"eeg-backend/internal/models"
	"eeg-backend/internal/segmenter"
)

// StreamService consumes raw sample blocks from MQTT, maintains per-device
// conditioners and segmenters, persists periodic spectral features, and
// hands closed segments to the composer service.
type StreamService struct {
	db *database.ClickHouseDB

	// Input channel from the MQTT subscriber
	SampleChan chan *models.SampleBlock

	// Output channel to the composer service
	JobChan chan *SegmentJob

	cfg     StreamServiceConfig
	devices map[string]*deviceState
}

// SegmentJob is one closed segment ready for composition: the raw samples
// it covers plus its bounds.
type SegmentJob struct {
	DeviceID string
	Channel  int
	Segment  segmenter.Segment
	Samples  []float64
}

// StreamServiceConfig holds configuration for the stream service.
type StreamServiceConfig struct {
	SampleChannelSize  int     // buffered sample blocks (default 100)
	JobChannelSize     int     // buffered segment jobs (default 50)
	Channels           int     // expected channel count per device (0 accepts any)
	DefaultFs          float64 // fallback when a device does not declare its rate
	FeatureIntervalSec float64 // how often window features are persisted (default 2)
	FeatureWindowSec   float64 // feature window length (default 4)
	PSDMethod          string  // feature estimation method (default welch)
	MaxSegmentSec      float64 // force-close an open segment at this length (default 30)

	Conditioner conditioner.Config
	Segmenter   segmenter.Config
	Engine      dsp.Config
}

// DefaultStreamServiceConfig returns default configuration.
func DefaultStreamServiceConfig() StreamServiceConfig {
	return StreamServiceConfig{
		SampleChannelSize:  100,
		JobChannelSize:     50,
		DefaultFs:          250,
		FeatureIntervalSec: 2.0,
		FeatureWindowSec:   4.0,
		PSDMethod:          dsp.MethodWelch,
		MaxSegmentSec:      30.0,
	}
}

// deviceState is everything the service tracks per device: the sample
// buffer plus one causal filter, segmenter and segment accumulator per
// channel.
type deviceState struct {
	cond          *conditioner.Conditioner
	engine        *dsp.Engine
	chans         []*channelState
	maxSegSamples int // open-segment cap in samples
}

// channelState accumulates the open segment's filtered samples so a closed
// segment can be composed without re-reading the ring buffer. The filter
// carries its state across blocks; segmentation and composition always see
// the conditioned signal.
type channelState struct {
	filter  *conditioner.StreamFilter
	seg     *segmenter.Segmenter
	samples []float64
	baseIdx int // absolute index of samples[0]
	nextIdx int // absolute index of the next sample
}

// NewStreamService creates a stream service writing segment jobs to its
// JobChan.
func NewStreamService(db *database.ClickHouseDB, cfg StreamServiceConfig) *StreamService {
	if cfg.SampleChannelSize <= 0 {
		cfg.SampleChannelSize = 100
	}
	if cfg.JobChannelSize <= 0 {
		cfg.JobChannelSize = 50
	}
	if cfg.FeatureIntervalSec <= 0 {
		cfg.FeatureIntervalSec = 2.0
	}
	if cfg.FeatureWindowSec <= 0 {
		cfg.FeatureWindowSec = 4.0
	}
	if cfg.PSDMethod == "" {
		cfg.PSDMethod = dsp.MethodWelch
	}
	if cfg.MaxSegmentSec <= 0 {
		cfg.MaxSegmentSec = 30.0
	}
	return &StreamService{
		db:         db,
		SampleChan: make(chan *models.SampleBlock, cfg.SampleChannelSize),
		JobChan:    make(chan *SegmentJob, cfg.JobChannelSize),
		cfg:        cfg,
		devices:    make(map[string]*deviceState),
	}
}

// Start processes sample blocks and emits periodic features until the
// context is cancelled.
func (s *StreamService) Start(ctx context.Context) {
	log.Println("StreamService: Starting...")

	ticker := time.NewTicker(time.Duration(s.cfg.FeatureIntervalSec * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("StreamService: Shutting down...")
			s.flushAll()
			close(s.JobChan)
			log.Println("StreamService: Shutdown complete")
			return

		case block, ok := <-s.SampleChan:
			if !ok {
				s.flushAll()
				close(s.JobChan)
				return
			}
			s.processBlock(block)

		case <-ticker.C:
			s.emitFeatures()
		}
	}
}

// processBlock routes one sample block into its device's conditioner and
// segmenters, creating the device state on first contact.
func (s *StreamService) processBlock(block *models.SampleBlock) {
	state, ok := s.devices[block.DeviceID]
	if !ok {
		var err error
		state, err = s.newDeviceState(block)
		if err != nil {
			log.Printf("StreamService: rejecting device %s: %v", block.DeviceID, err)
			return
		}
		s.devices[block.DeviceID] = state
		s.registerDevice(block, state.cond)
	}

	if len(block.Samples) != state.cond.Channels() {
		log.Printf("StreamService: dropping block from %s: %d channels, expected %d",
			block.DeviceID, len(block.Samples), state.cond.Channels())
		return
	}
	if err := state.cond.AddBlock(block.Samples); err != nil {
		log.Printf("StreamService: dropping block from %s: %v", block.DeviceID, err)
		return
	}

	for ch, cs := range state.chans {
		for _, raw := range block.Samples[ch] {
			v := cs.filter.Process(raw)
			cs.samples = append(cs.samples, v)
			seg, closed := cs.seg.ProcessSample(cs.nextIdx, v)
			cs.nextIdx++
			if closed {
				s.dispatchSegment(block.DeviceID, ch, cs, seg)
				continue
			}
			// A signal that never crosses the boundary rule must not
			// accumulate forever; cut it at the configured maximum.
			if len(cs.samples) >= state.maxSegSamples {
				if forced, ok := cs.seg.Flush(cs.nextIdx - 1); ok {
					s.dispatchSegment(block.DeviceID, ch, cs, forced)
				}
			}
		}
	}
}

// newDeviceState builds the per-device analysis state from the block's
// declared sampling rate, falling back to the configured default.
func (s *StreamService) newDeviceState(block *models.SampleBlock) (*deviceState, error) {
	fs := block.Fs
	if fs <= 0 {
		fs = s.cfg.DefaultFs
	}
	channels := len(block.Samples)
	if s.cfg.Channels > 0 && channels != s.cfg.Channels {
		return nil, fmt.Errorf("device declares %d channels, expected %d", channels, s.cfg.Channels)
	}

	condCfg := s.cfg.Conditioner
	condCfg.Fs = fs
	condCfg.Channels = channels
	cond, err := conditioner.New(condCfg)
	if err != nil {
		return nil, err
	}

	engCfg := s.cfg.Engine
	engCfg.Fs = fs
	if engCfg.Observer == nil {
		engCfg.Observer = logObserver{deviceID: block.DeviceID}
	}
	engine := dsp.NewEngine(engCfg)

	maxSegSamples := int(s.cfg.MaxSegmentSec * fs)
	if maxSegSamples < 1 {
		maxSegSamples = 1
	}
	state := &deviceState{
		cond:          cond,
		engine:        engine,
		chans:         make([]*channelState, channels),
		maxSegSamples: maxSegSamples,
	}
	for ch := range state.chans {
		segCfg := s.cfg.Segmenter
		if segCfg.Threshold == 0 {
			segCfg = segmenter.DefaultConfig(fs)
		}
		segCfg.Fs = fs
		sgm, err := segmenter.New(segCfg)
		if err != nil {
			return nil, err
		}
		state.chans[ch] = &channelState{
			filter: cond.Filters().NewStream(),
			seg:    sgm,
		}
	}

	log.Printf("StreamService: tracking device %s: %d channels at %.1f Hz",
		block.DeviceID, channels, fs)
	return state, nil
}

// dispatchSegment cuts the closed segment's samples out of the channel
// accumulator and queues a composition job.
func (s *StreamService) dispatchSegment(deviceID string, ch int, cs *channelState, seg segmenter.Segment) {
	lo := seg.StartIdx - cs.baseIdx
	hi := seg.EndIdx - cs.baseIdx + 1
	if lo < 0 || hi > len(cs.samples) || lo >= hi {
		log.Printf("StreamService: segment bounds out of range for %s ch %d", deviceID, ch)
		return
	}

	samples := make([]float64, hi-lo)
	copy(samples, cs.samples[lo:hi])

	// Drop everything up to the segment end; the open segment keeps its
	// samples.
	cs.samples = append(cs.samples[:0], cs.samples[hi:]...)
	cs.baseIdx = seg.EndIdx + 1

	job := &SegmentJob{DeviceID: deviceID, Channel: ch, Segment: seg, Samples: samples}
	select {
	case s.JobChan <- job:
		// Queued
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Job channel full, dropping segment %.2fs-%.2fs from %s",
			seg.TStart, seg.TEnd, deviceID)
	}
}

// flushAll closes the open segment of every channel so shutdown composes
// the trailing material instead of discarding it.
func (s *StreamService) flushAll() {
	for deviceID, state := range s.devices {
		for ch, cs := range state.chans {
			if seg, ok := cs.seg.Flush(cs.nextIdx - 1); ok {
				s.dispatchSegment(deviceID, ch, cs, seg)
			}
		}
	}
}

// emitFeatures computes and persists window features for every tracked
// channel. A nil database skips persistence entirely.
func (s *StreamService) emitFeatures() {
	if s.db == nil {
		return
	}
	for deviceID, state := range s.devices {
		for ch := 0; ch < state.cond.Channels(); ch++ {
			window := state.cond.FilteredWindow(ch, s.cfg.FeatureWindowSec)
			if window == nil {
				continue
			}
			feats, err := state.engine.ComputeFeatures(window, s.cfg.PSDMethod)
			if err != nil {
				log.Printf("StreamService: feature computation failed for %s ch %d: %v",
					deviceID, ch, err)
				continue
			}
			if feats == nil {
				continue
			}

			rec := &models.FeatureRecord{
				Timestamp:    time.Now(),
				DeviceID:     deviceID,
				Channel:      ch,
				Method:       s.cfg.PSDMethod,
				RMS:          feats.RMS,
				PeakFreq:     feats.PeakFreq,
				BandpowerAbs: feats.BandpowerAbs,
				BandpowerRel: feats.BandpowerRel,
			}
			if err := s.db.SaveFeatures(rec); err != nil {
				log.Printf("Error saving features: %v", err)
			}
		}
	}
}

// logObserver surfaces signal-quality events from the numeric routines in
// the service log, tagged with the device they came from.
type logObserver struct {
	deviceID string
}

func (o logObserver) ClippingDetected(fraction, min, max float64) {
	log.Printf("StreamService: %s: %.1f%% of window at extremes [%.1f, %.1f], possible clipping",
		o.deviceID, fraction*100, min, max)
}

func (o logObserver) OutliersDetected(count, total int) {
	log.Printf("StreamService: %s: repaired %d/%d outlier samples", o.deviceID, count, total)
}

func (o logObserver) DegenerateSpectrum(fmin, fmax float64) {
	log.Printf("StreamService: %s: degenerate spectrum in %.1f-%.1f Hz, stability undefined",
		o.deviceID, fmin, fmax)
}

// registerDevice auto-registers a device on first contact. Best effort; a
// nil database skips registration.
func (s *StreamService) registerDevice(block *models.SampleBlock, cond *conditioner.Conditioner) {
	if s.db == nil {
		return
	}
	device := &models.Device{
		DeviceID:     block.DeviceID,
		Name:         block.DeviceID,
		Channels:     cond.Channels(),
		Fs:           cond.Fs(),
		RegisteredAt: time.Now(),
		LastSeen:     time.Now(),
		IsActive:     true,
	}
	if err := s.db.UpsertDevice(device); err != nil {
		log.Printf("Error registering device %s: %v", block.DeviceID, err)
	}
}
