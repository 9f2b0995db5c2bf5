package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"datahub-exporter/models"
)

// PostgresWriter is the optional sink that keeps parsed booking records in
// PostgreSQL alongside the per-property report files.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS bookings (
			id          SERIAL PRIMARY KEY,
			property_id INTEGER      NOT NULL,
			hotel       TEXT         NOT NULL DEFAULT '',
			channel     VARCHAR(100) NOT NULL DEFAULT '',
			arrival     VARCHAR(50)  NOT NULL DEFAULT '',
			departure   VARCHAR(50)  NOT NULL DEFAULT '',
			given_name  TEXT         NOT NULL DEFAULT '',
			surname     TEXT         NOT NULL DEFAULT '',
			phone       VARCHAR(100) NOT NULL DEFAULT '',
			email       TEXT         NOT NULL DEFAULT '',
			price       VARCHAR(50)  NOT NULL DEFAULT '',
			currency    VARCHAR(10)  NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_bookings_property ON bookings(property_id);
		CREATE INDEX IF NOT EXISTS idx_bookings_channel  ON bookings(channel);
		CREATE INDEX IF NOT EXISTS idx_bookings_arrival  ON bookings(arrival);
	`)
	return err
}

// Write batch-inserts the parsed records of one property.
func (pw *PostgresWriter) Write(propertyID int, hotel string, records []*models.BookingRecord) error {
	if len(records) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertBatch(propertyID, hotel, records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(propertyID int, hotel string, batch []*models.BookingRecord) error {
	const cols = 11
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			propertyID, hotel, r.Channel, r.Arrival, r.Departure,
			r.GivenName, r.Surname, r.Phone, r.Email, r.Price, r.Currency)
	}

	query := fmt.Sprintf(`
		INSERT INTO bookings (property_id, hotel, channel, arrival, departure,
		                      given_name, surname, phone, email, price, currency)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
