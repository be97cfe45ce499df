package services

import (
	"context"
	"log"
	"time"

	"eeg-backend/internal/database"
	"eeg-backend/internal/models"
	"eeg-backend/internal/pipeline"
)

// ComposerService turns closed segments into bars and notes, persists the
// results and forwards note batches to the MQTT publisher.
type ComposerService struct {
	db   *database.ClickHouseDB
	pipe *pipeline.Pipeline

	// Input channel from the stream service
	JobChan chan *SegmentJob

	// Output channel to the MQTT publisher
	NoteChan chan *models.NoteBatch
}

// ComposerServiceConfig holds configuration for the composer service.
type ComposerServiceConfig struct {
	NoteChannelSize int // buffered note batches (default 50)
}

// DefaultComposerServiceConfig returns default configuration.
func DefaultComposerServiceConfig() ComposerServiceConfig {
	return ComposerServiceConfig{NoteChannelSize: 50}
}

// NewComposerService creates a composer service consuming jobChan.
func NewComposerService(db *database.ClickHouseDB, pipe *pipeline.Pipeline, jobChan chan *SegmentJob, cfg ComposerServiceConfig) *ComposerService {
	if cfg.NoteChannelSize <= 0 {
		cfg.NoteChannelSize = 50
	}
	return &ComposerService{
		db:       db,
		pipe:     pipe,
		JobChan:  jobChan,
		NoteChan: make(chan *models.NoteBatch, cfg.NoteChannelSize),
	}
}

// Start composes segment jobs until the context is cancelled or the job
// channel is closed.
func (cs *ComposerService) Start(ctx context.Context) {
	log.Println("ComposerService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("ComposerService: Shutting down...")
			close(cs.NoteChan)
			log.Println("ComposerService: Shutdown complete")
			return

		case job, ok := <-cs.JobChan:
			if !ok {
				log.Println("ComposerService: Job channel closed, shutting down...")
				close(cs.NoteChan)
				return
			}
			cs.composeJob(job)
		}
	}
}

// composeJob runs one segment through the pipeline and fans the results
// out to storage and the publisher.
func (cs *ComposerService) composeJob(job *SegmentJob) {
	res, err := cs.pipe.ComposeSegment(job.Samples, job.Segment)
	if err != nil {
		log.Printf("ComposerService: composing segment from %s: %v", job.DeviceID, err)
		return
	}
	if res == nil {
		log.Printf("ComposerService: segment %.2fs-%.2fs from %s too short, skipped",
			job.Segment.TStart, job.Segment.TEnd, job.DeviceID)
		return
	}

	now := time.Now()
	segRec := &models.SegmentRecord{
		Timestamp:    now,
		DeviceID:     job.DeviceID,
		Channel:      job.Channel,
		TStart:       res.Segment.TStart,
		TEnd:         res.Segment.TEnd,
		AlphaRel:     res.Features.AlphaRel,
		BetaRel:      res.Features.BetaRel,
		RMS:          res.Features.RMS,
		Cadence:      res.Music.Cadence.String(),
		RegisterHint: res.Music.RegisterHint,
		MainNote:     res.Music.MainNote,
		BarCount:     len(res.Bars),
		NoteCount:    len(res.Notes),
	}
	if err := cs.db.SaveSegment(segRec); err != nil {
		log.Printf("Error saving segment: %v", err)
	}

	batch := &models.NoteBatch{
		Timestamp: now,
		DeviceID:  job.DeviceID,
		Channel:   job.Channel,
		BPM:       cs.pipe.BPM(),
		TStart:    res.Segment.TStart,
		TEnd:      res.Segment.TEnd,
		Notes:     make([]models.NoteMessage, 0, len(res.Notes)),
	}
	for _, n := range res.Notes {
		batch.Notes = append(batch.Notes, models.NoteMessage{
			Pitch:    n.Pitch,
			Velocity: n.Velocity,
			Channel:  n.Channel,
			Program:  n.Program,
			TStart:   n.TStart,
			TEnd:     n.TEnd,
		})
	}
	if err := cs.db.SaveNoteBatch(batch); err != nil {
		log.Printf("Error saving note batch: %v", err)
	}

	log.Printf("ComposerService: composed %d bars, %d notes for %s ch %d (%.2fs-%.2fs)",
		len(res.Bars), len(res.Notes), job.DeviceID, job.Channel,
		res.Segment.TStart, res.Segment.TEnd)

	// Forward to the publisher (non-blocking with timeout)
	select {
	case cs.NoteChan <- batch:
		// Successfully sent
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Note channel full, dropping batch for %s", job.DeviceID)
	}
}
