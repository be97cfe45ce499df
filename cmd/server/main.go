package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eeg-backend/internal/conditioner"
	"eeg-backend/internal/database"
	"eeg-backend/internal/dsp"
	"eeg-backend/internal/mqtt"
	"eeg-backend/internal/music"
	"eeg-backend/internal/pipeline"
	"eeg-backend/internal/segmenter"
	"eeg-backend/internal/services"
	"eeg-backend/pkg/config"
)

func main() {
	log.Println("Starting EEG Backend Service (Channel-Based Architecture)...")

	// Load configuration
	cfg := config.Load()

	// Initialize ClickHouse database
	db, err := database.NewClickHouseDB(
		cfg.ClickHouseAddr,
		cfg.ClickHouseDB,
		cfg.ClickHouseUser,
		cfg.ClickHousePass,
	)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	defer db.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Build the music pipeline ===
	log.Println("Building music pipeline...")
	scale, err := music.BuildScale(cfg.ScaleFamily, cfg.ScaleName, cfg.ScaleRoot)
	if err != nil {
		log.Fatalf("Failed to build scale: %v", err)
	}

	composer, err := music.NewComposer(music.ComposerConfig{
		Scale:    scale,
		MainNote: cfg.MainNote,
	})
	if err != nil {
		log.Fatalf("Failed to build composer: %v", err)
	}

	pipe, err := pipeline.New(pipeline.Config{
		Engine: dsp.NewEngine(dsp.Config{
			Fs:         cfg.DefaultFs,
			WindowSec:  cfg.WindowSec,
			WindowType: cfg.WindowType,
		}),
		Composer:  composer,
		Bars:      music.NewBarGenerator(music.BarConfig{SlotsPerBar: cfg.SlotsPerBar}),
		Notes:     music.NewNoteGenerator(music.NoteConfig{}),
		PSDMethod: cfg.PSDMethod,
		BPM:       cfg.BPM,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	// === Initialize Services ===
	log.Println("Initializing services...")
	streamConfig := services.DefaultStreamServiceConfig()
	streamConfig.Channels = cfg.Channels
	streamConfig.DefaultFs = cfg.DefaultFs
	streamConfig.FeatureIntervalSec = cfg.FeatureIntervalSec
	streamConfig.FeatureWindowSec = cfg.WindowSec
	streamConfig.PSDMethod = cfg.PSDMethod
	streamConfig.MaxSegmentSec = cfg.MaxSegmentSec
	streamConfig.Conditioner = conditioner.Config{
		BufferSec: cfg.BufferSec,
		Filter: conditioner.FilterConfig{
			HighpassHz: cfg.HighpassHz,
			LowpassHz:  cfg.LowpassHz,
			NotchHz:    cfg.NotchHz,
			NotchQ:     cfg.NotchQ,
		},
	}
	streamConfig.Segmenter = segmenter.Config{
		Threshold:   cfg.SegmentThreshold,
		MinDuration: cfg.SegmentMinDuration,
		UseAbs:      true,
	}
	streamConfig.Engine = dsp.Config{
		WindowSec:  cfg.WindowSec,
		WindowType: cfg.WindowType,
	}

	streamService := services.NewStreamService(db, streamConfig)
	composerService := services.NewComposerService(db, pipe, streamService.JobChan,
		services.DefaultComposerServiceConfig())

	// === Initialize MQTT Client ===
	log.Println("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	// === Initialize MQTT Subscriber ===
	log.Println("Setting up MQTT subscriber...")
	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{SamplesTopic: cfg.MQTTTopicSamples},
		streamService.SampleChan,
	)
	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}

	// === Initialize MQTT Publisher ===
	log.Println("Setting up MQTT publisher...")
	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{NotesTopic: cfg.MQTTTopicNotes},
		composerService.NoteChan,
	)

	// === Start service goroutines ===
	go streamService.Start(ctx)
	go composerService.Start(ctx)
	go publisher.Start(ctx)

	// === Log startup info ===
	log.Println("=== EEG Backend Service is running ===")
	log.Printf("Scale: %s %s rooted at %s, main note %d",
		cfg.ScaleFamily, cfg.ScaleName, cfg.ScaleRoot, composer.MainNote())
	log.Printf("Analysis: %s PSD over %.1fs windows, features every %.1fs",
		cfg.PSDMethod, cfg.WindowSec, cfg.FeatureIntervalSec)
	log.Printf("MQTT Topics:")
	log.Printf("  - Samples: %s", cfg.MQTTTopicSamples)
	log.Printf("  - Notes:   %s", cfg.MQTTTopicNotes)
	log.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")
	cancel() // Cancel context to stop all goroutines

	// Give services time to finish processing
	time.Sleep(2 * time.Second)

	log.Println("Shutdown complete. Goodbye!")
}
