package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"eeg-backend/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	tables := AllTables()
	for _, tableSQL := range tables {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveFeatures saves one window's spectral features to the database.
// Band power maps are stored as JSON strings.
func (db *ClickHouseDB) SaveFeatures(rec *models.FeatureRecord) error {
	ctx := context.Background()

	absJSON, err := json.Marshal(rec.BandpowerAbs)
	if err != nil {
		return fmt.Errorf("failed to marshal absolute band powers: %w", err)
	}
	relJSON, err := json.Marshal(rec.BandpowerRel)
	if err != nil {
		return fmt.Errorf("failed to marshal relative band powers: %w", err)
	}

	query := `
		INSERT INTO eeg_features (timestamp, device_id, channel, method, rms, peak_freq, bandpower_abs, bandpower_rel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = db.conn.Exec(ctx, query,
		rec.Timestamp,
		rec.DeviceID,
		uint16(rec.Channel),
		rec.Method,
		rec.RMS,
		rec.PeakFreq,
		string(absJSON),
		string(relJSON),
	)

	if err != nil {
		return fmt.Errorf("failed to insert feature record: %w", err)
	}

	return nil
}

// SaveSegment saves one composed segment's summary to the database.
func (db *ClickHouseDB) SaveSegment(rec *models.SegmentRecord) error {
	ctx := context.Background()

	query := `
		INSERT INTO eeg_segments (timestamp, device_id, channel, t_start, t_end, alpha_rel, beta_rel, rms, cadence, register_hint, main_note, bar_count, note_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		rec.Timestamp,
		rec.DeviceID,
		uint16(rec.Channel),
		rec.TStart,
		rec.TEnd,
		rec.AlphaRel,
		rec.BetaRel,
		rec.RMS,
		rec.Cadence,
		rec.RegisterHint,
		int16(rec.MainNote),
		uint16(rec.BarCount),
		uint32(rec.NoteCount),
	)

	if err != nil {
		return fmt.Errorf("failed to insert segment record: %w", err)
	}

	log.Printf("Saved segment to ClickHouse: %.2fs-%.2fs, DeviceID=%s", rec.TStart, rec.TEnd, rec.DeviceID)
	return nil
}

// SaveNoteBatch saves every note of one composed segment in a single
// batched insert.
func (db *ClickHouseDB) SaveNoteBatch(batch *models.NoteBatch) error {
	if len(batch.Notes) == 0 {
		return nil
	}
	ctx := context.Background()

	prepared, err := db.conn.PrepareBatch(ctx,
		"INSERT INTO note_events (timestamp, device_id, channel, pitch, velocity, t_start, t_end)")
	if err != nil {
		return fmt.Errorf("failed to prepare note batch: %w", err)
	}

	for _, n := range batch.Notes {
		err := prepared.Append(
			batch.Timestamp,
			batch.DeviceID,
			uint16(batch.Channel),
			int16(n.Pitch),
			uint8(n.Velocity),
			n.TStart,
			n.TEnd,
		)
		if err != nil {
			return fmt.Errorf("failed to append note: %w", err)
		}
	}

	if err := prepared.Send(); err != nil {
		return fmt.Errorf("failed to send note batch: %w", err)
	}
	return nil
}

// UpsertDevice inserts or updates a device in the registry
func (db *ClickHouseDB) UpsertDevice(device *models.Device) error {
	ctx := context.Background()

	query := `
		INSERT INTO device_registry (device_id, name, channels, fs, registered_at, last_seen, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		device.DeviceID,
		device.Name,
		uint16(device.Channels),
		device.Fs,
		device.RegisteredAt,
		device.LastSeen,
		device.IsActive,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}

	return nil
}

// GetRecentSegments returns the latest segment records for a device,
// newest first.
func (db *ClickHouseDB) GetRecentSegments(deviceID string, limit int) ([]models.SegmentRecord, error) {
	ctx := context.Background()

	query := `
		SELECT timestamp, device_id, channel, t_start, t_end, alpha_rel, beta_rel, rms, cadence, register_hint, main_note, bar_count, note_count
		FROM eeg_segments
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var out []models.SegmentRecord
	for rows.Next() {
		var rec models.SegmentRecord
		var channel, barCount uint16
		var mainNote int16
		var noteCount uint32
		err := rows.Scan(&rec.Timestamp, &rec.DeviceID, &channel, &rec.TStart, &rec.TEnd,
			&rec.AlphaRel, &rec.BetaRel, &rec.RMS, &rec.Cadence, &rec.RegisterHint,
			&mainNote, &barCount, &noteCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment row: %w", err)
		}
		rec.Channel = int(channel)
		rec.MainNote = int(mainNote)
		rec.BarCount = int(barCount)
		rec.NoteCount = int(noteCount)
		out = append(out, rec)
	}
	return out, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
