package database

// SQL schemas for all ClickHouse tables

const (
	// FeaturesTableSQL creates the eeg_features table: one row per
	// analysis window per channel.
	FeaturesTableSQL = `
		CREATE TABLE IF NOT EXISTS eeg_features (
			timestamp DateTime64(3),
			device_id String,
			channel UInt16,
			method String,
			rms Float64,
			peak_freq Float64,
			bandpower_abs String,
			bandpower_rel String
		) ENGINE = MergeTree()
		ORDER BY (device_id, channel, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// SegmentsTableSQL creates the eeg_segments table: one row per closed
	// segment with its musical interpretation.
	SegmentsTableSQL = `
		CREATE TABLE IF NOT EXISTS eeg_segments (
			timestamp DateTime64(3),
			device_id String,
			channel UInt16,
			t_start Float64,
			t_end Float64,
			alpha_rel Float64,
			beta_rel Float64,
			rms Float64,
			cadence String,
			register_hint Float64,
			main_note Int16,
			bar_count UInt16,
			note_count UInt32
		) ENGINE = MergeTree()
		ORDER BY (device_id, channel, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// NoteEventsTableSQL creates the note_events table: every generated
	// note, batched per segment.
	NoteEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS note_events (
			timestamp DateTime64(3),
			device_id String,
			channel UInt16,
			pitch Int16,
			velocity UInt8,
			t_start Float64,
			t_end Float64
		) ENGINE = MergeTree()
		ORDER BY (device_id, channel, timestamp, t_start)
		PARTITION BY toYYYYMM(timestamp)
	`

	// DeviceRegistryTableSQL creates the device_registry table
	DeviceRegistryTableSQL = `
		CREATE TABLE IF NOT EXISTS device_registry (
			device_id String,
			name String,
			channels UInt16,
			fs Float64,
			registered_at DateTime64(3),
			last_seen DateTime64(3),
			is_active Bool
		) ENGINE = ReplacingMergeTree(last_seen)
		ORDER BY device_id
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		FeaturesTableSQL,
		SegmentsTableSQL,
		NoteEventsTableSQL,
		DeviceRegistryTableSQL,
	}
}
