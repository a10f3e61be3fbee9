// Package archive writes telemetry records into postgres, one row per
// metric.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kirbo/go-telemetry/internal/models"
)

type Store interface {
	InsertRecord(ctx context.Context, rec models.Record) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type dbStore struct {
	db    execer
	table string
}

// Open connects and pings postgres.
func Open(cfg models.PostgresConfig) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewStore(db *sql.DB, table string) Store {
	return &dbStore{db: db, table: table}
}

type metric struct {
	name  string
	value float64
}

func metrics(s models.SampleSet) []metric {
	return []metric{
		{"temperature", s.Temperature()},
		{"humidity", float64(s.Humidity)},
		{"pressure", float64(s.Pressure)},
		{"light", float64(s.Light)},
		{"accelerometer_x", float64(s.Accel.X)},
		{"accelerometer_y", float64(s.Accel.Y)},
		{"accelerometer_z", float64(s.Accel.Z)},
		{"gyro_x", float64(s.Gyro.X)},
		{"gyro_y", float64(s.Gyro.Y)},
		{"gyro_z", float64(s.Gyro.Z)},
		{"magnetometer_x", float64(s.Mag.X)},
		{"magnetometer_y", float64(s.Mag.Y)},
		{"magnetometer_z", float64(s.Mag.Z)},
		{"magnetometer_r", float64(s.Mag.R)},
		{"battery_mv", float64(s.BatteryMillivolts)},
		{"battery", float64(s.BatteryPercent)},
	}
}

func (store *dbStore) InsertRecord(ctx context.Context, rec models.Record) error {
	query := fmt.Sprintf(`INSERT INTO %s ("time", "deviceId", "metric", "value") VALUES ($1, $2, $3, $4)`,
		pq.QuoteIdentifier(store.table))
	ts := time.UnixMilli(rec.Timestamp).UTC()

	for _, m := range metrics(rec.Sample) {
		if _, err := store.db.ExecContext(ctx, query, ts, rec.DeviceID, m.name, m.value); err != nil {
			return fmt.Errorf("insert %s for %s: %w", m.name, rec.DeviceID, err)
		}
	}
	return nil
}
