package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"eeg-backend/internal/models"
)

// Publisher handles MQTT publishing from channels.
type Publisher struct {
	client mqtt.Client

	// Input channel (read by publisher, written by the composer service)
	NoteChan chan *models.NoteBatch

	notesTopic string // e.g., "music/{device_id}/notes"
}

// PublisherConfig holds configuration for the MQTT publisher.
type PublisherConfig struct {
	NotesTopic string // e.g., "music/{device_id}/notes"
}

// NewPublisher creates a new MQTT publisher reading from noteChan.
func NewPublisher(client mqtt.Client, config PublisherConfig, noteChan chan *models.NoteBatch) *Publisher {
	return &Publisher{
		client:     client,
		NoteChan:   noteChan,
		notesTopic: config.NotesTopic,
	}
}

// Start publishes note batches from the channel until the context is
// cancelled or the channel is closed.
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case batch, ok := <-p.NoteChan:
			if !ok {
				log.Println("MQTT Publisher: Note channel closed, shutting down...")
				return
			}
			if err := p.publishNoteBatch(batch); err != nil {
				log.Printf("Error publishing note batch: %v", err)
			}
		}
	}
}

// publishNoteBatch publishes one composed segment's notes.
func (p *Publisher) publishNoteBatch(batch *models.NoteBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal note batch: %w", err)
	}

	topic := formatTopic(p.notesTopic, batch.DeviceID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish note batch: %w", token.Error())
	}

	log.Printf("Published %d notes for device %s to topic: %s", len(batch.Notes), batch.DeviceID, topic)
	return nil
}

// formatTopic replaces the {device_id} placeholder with the actual device ID.
func formatTopic(topicPattern, deviceID string) string {
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
