package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"eeg-backend/internal/models"
)

// Subscriber handles MQTT subscriptions and writes decoded sample blocks
// to a channel for the streaming service.
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the stream service)
	SampleChan chan *models.SampleBlock

	samplesTopic string
}

// SubscriberConfig holds configuration for the MQTT subscriber.
type SubscriberConfig struct {
	SamplesTopic string // e.g., "eeg/+/samples"
}

// NewSubscriber creates a new MQTT subscriber writing to sampleChan.
func NewSubscriber(client mqtt.Client, config SubscriberConfig, sampleChan chan *models.SampleBlock) *Subscriber {
	return &Subscriber{
		client:       client,
		SampleChan:   sampleChan,
		samplesTopic: config.SamplesTopic,
	}
}

// SubscribeAll subscribes to all configured topics.
func (s *Subscriber) SubscribeAll() error {
	if s.samplesTopic != "" {
		if err := s.subscribeToTopic(s.samplesTopic, s.handleSamples); err != nil {
			return fmt.Errorf("failed to subscribe to samples topic: %w", err)
		}
		log.Printf("Subscribed to samples topic: %s", s.samplesTopic)
	}
	return nil
}

// subscribeToTopic is a helper function to subscribe to a topic with a handler
func (s *Subscriber) subscribeToTopic(topic string, handler mqtt.MessageHandler) error {
	token := s.client.Subscribe(topic, 1, handler)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// handleSamples decodes a sample payload and writes the block to the
// channel. Malformed payloads and empty blocks are dropped with a log line.
func (s *Subscriber) handleSamples(client mqtt.Client, msg mqtt.Message) {
	var payload models.SamplePayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling sample payload: %v", err)
		return
	}
	if len(payload.Samples) == 0 || len(payload.Samples[0]) == 0 {
		log.Printf("Dropping empty sample block from topic: %s", msg.Topic())
		return
	}

	// Extract device ID from topic (eeg/{device_id}/samples)
	deviceID := extractDeviceID(msg.Topic())
	if deviceID == "" {
		log.Printf("Could not extract device ID from topic: %s", msg.Topic())
		return
	}

	block := &models.SampleBlock{
		Timestamp: time.Now(),
		DeviceID:  deviceID,
		Fs:        payload.Fs,
		Samples:   payload.Samples,
	}

	// Write to channel (non-blocking with timeout)
	select {
	case s.SampleChan <- block:
		// Successfully sent
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Sample channel full, dropping %d samples from %s",
			len(payload.Samples[0]), deviceID)
	}
}

// extractDeviceID extracts the device ID from an MQTT topic.
// Example: "eeg/headset-001/samples" -> "headset-001"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
