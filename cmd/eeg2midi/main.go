package main

import (
	"flag"
	"log"

	"eeg-backend/internal/conditioner"
	"eeg-backend/internal/dsp"
	"eeg-backend/internal/edfload"
	"eeg-backend/internal/midifile"
	"eeg-backend/internal/music"
	"eeg-backend/internal/pipeline"
	"eeg-backend/internal/segmenter"
)

func main() {
	var (
		inPath   = flag.String("in", "", "input EDF file (required)")
		outPath  = flag.String("out", "out.mid", "output MIDI file")
		channel  = flag.String("channel", "", "channel label; empty picks the first signal")
		family   = flag.String("family", "Diatonic", "scale family")
		scale    = flag.String("scale", "Major", "scale name")
		root     = flag.String("root", "C4", "scale root note")
		mainNote = flag.String("main", "", "main note; empty uses the scale root")
		bpm      = flag.Float64("bpm", 80, "tempo for bar sizing and the MIDI file")
		method   = flag.String("method", dsp.MethodWelch, "PSD method: periodogram, welch or multitaper")
		winSec   = flag.Float64("window", 4, "analysis window in seconds")
		segThr   = flag.Float64("seg-threshold", 0.5, "segment boundary threshold")
		segMin   = flag.Float64("seg-min", 1.0, "minimum segment duration in seconds")
		program  = flag.Uint("program", 0, "GM program number for playback")
	)
	flag.Parse()

	if *inPath == "" {
		log.Fatal("eeg2midi: -in is required")
	}

	rec, err := edfload.Load(*inPath)
	if err != nil {
		log.Fatalf("eeg2midi: %v", err)
	}

	ch := &rec.Channels[0]
	if *channel != "" {
		ch = rec.ChannelByLabel(*channel)
		if ch == nil {
			log.Fatalf("eeg2midi: channel %q not found in %s", *channel, *inPath)
		}
	}
	if ch.Fs <= 0 {
		log.Fatalf("eeg2midi: channel %q has no sampling rate", ch.Label)
	}
	log.Printf("eeg2midi: channel %q: %d samples at %.1f Hz", ch.Label, len(ch.Samples), ch.Fs)

	filters := conditioner.NewFilterBank(conditioner.FilterConfig{Fs: ch.Fs})
	cleaned := filters.Apply(ch.Samples)
	if cleaned == nil {
		log.Fatalf("eeg2midi: recording too short to filter (%d samples)", len(ch.Samples))
	}

	scl, err := music.BuildScale(*family, *scale, *root)
	if err != nil {
		log.Fatalf("eeg2midi: %v", err)
	}
	composer, err := music.NewComposer(music.ComposerConfig{Scale: scl, MainNote: *mainNote})
	if err != nil {
		log.Fatalf("eeg2midi: %v", err)
	}

	pipe, err := pipeline.New(pipeline.Config{
		Engine:    dsp.NewEngine(dsp.Config{Fs: ch.Fs, WindowSec: *winSec}),
		Composer:  composer,
		Bars:      music.NewBarGenerator(music.BarConfig{}),
		Notes:     music.NewNoteGenerator(music.NoteConfig{}),
		PSDMethod: *method,
		BPM:       *bpm,
	})
	if err != nil {
		log.Fatalf("eeg2midi: %v", err)
	}

	sgm, err := segmenter.New(segmenter.Config{
		Fs:          ch.Fs,
		Threshold:   *segThr,
		MinDuration: *segMin,
		UseAbs:      true,
	})
	if err != nil {
		log.Fatalf("eeg2midi: %v", err)
	}

	results, err := pipe.ProcessChannel(cleaned, sgm)
	if err != nil {
		log.Fatalf("eeg2midi: %v", err)
	}

	notes := pipeline.AllNotes(results)
	log.Printf("eeg2midi: %d segments, %d notes", len(results), len(notes))
	if len(notes) == 0 {
		log.Fatal("eeg2midi: nothing to write")
	}

	err = midifile.Write(*outPath, notes, midifile.Config{
		BPM:     *bpm,
		Program: uint8(*program),
	})
	if err != nil {
		log.Fatalf("eeg2midi: %v", err)
	}
	log.Printf("eeg2midi: wrote %s", *outPath)
}
