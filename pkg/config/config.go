package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicSamples string
	MQTTTopicNotes   string

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// Signal configuration
	DefaultFs  float64
	Channels   int
	BufferSec  float64
	WindowSec  float64
	PSDMethod  string
	WindowType string

	// Filter chain
	HighpassHz float64
	LowpassHz  float64
	NotchHz    float64
	NotchQ     float64

	// Feature persistence
	FeatureIntervalSec float64

	// Segmentation
	SegmentThreshold   float64
	SegmentMinDuration float64
	MaxSegmentSec      float64

	// Music configuration
	ScaleFamily string
	ScaleName   string
	ScaleRoot   string
	MainNote    string
	BPM         float64
	SlotsPerBar int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "eeg-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// MQTT topics
		MQTTTopicSamples: getEnv("MQTT_TOPIC_SAMPLES", "eeg/+/samples"),
		MQTTTopicNotes:   getEnv("MQTT_TOPIC_NOTES", "music/{device_id}/notes"),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "eeg"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// Signal configuration
		DefaultFs:  getEnvFloat("DEFAULT_FS", 250),
		Channels:   getEnvInt("CHANNELS", 0),
		BufferSec:  getEnvFloat("BUFFER_SEC", 30),
		WindowSec:  getEnvFloat("WINDOW_SEC", 4),
		PSDMethod:  getEnv("PSD_METHOD", "welch"),
		WindowType: getEnv("WINDOW_TYPE", "hann"),

		// Filter chain
		HighpassHz: getEnvFloat("HIGHPASS_HZ", 0.5),
		LowpassHz:  getEnvFloat("LOWPASS_HZ", 50),
		NotchHz:    getEnvFloat("NOTCH_HZ", 60),
		NotchQ:     getEnvFloat("NOTCH_Q", 30),

		// Feature persistence
		FeatureIntervalSec: getEnvFloat("FEATURE_INTERVAL_SEC", 2),

		// Segmentation
		SegmentThreshold:   getEnvFloat("SEGMENT_THRESHOLD", 0.5),
		SegmentMinDuration: getEnvFloat("SEGMENT_MIN_DURATION", 1.0),
		MaxSegmentSec:      getEnvFloat("MAX_SEGMENT_SEC", 30),

		// Music configuration
		ScaleFamily: getEnv("SCALE_FAMILY", "Diatonic"),
		ScaleName:   getEnv("SCALE_NAME", "Major"),
		ScaleRoot:   getEnv("SCALE_ROOT", "C4"),
		MainNote:    getEnv("MAIN_NOTE", ""),
		BPM:         getEnvFloat("BPM", 80),
		SlotsPerBar: getEnvInt("SLOTS_PER_BAR", 16),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}
