package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT,
    model_version TEXT NOT NULL,
    label TEXT NOT NULL,
    age INTEGER NOT NULL,
    gender TEXT NOT NULL,
    impulse REAL NOT NULL,
    pressure_high REAL NOT NULL,
    pressure_low REAL NOT NULL,
    glucose REAL NOT NULL,
    kcm REAL NOT NULL,
    troponin REAL NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
`

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	ModelVersion string    `json:"model_version"`
	Label        string    `json:"label"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Impulse      float64   `json:"impulse"`
	PressureHigh float64   `json:"pressure_high"`
	PressureLow  float64   `json:"pressure_low"`
	Glucose      float64   `json:"glucose"`
	KCM          float64   `json:"kcm"`
	Troponin     float64   `json:"troponin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the SQLite prediction audit log.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: database}, nil
}

// SavePrediction appends a record. A zero CreatedAt is set to now.
func (s *Store) SavePrediction(ctx context.Context, record PredictionRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (
            request_id, model_version, label, age, gender, impulse,
            pressure_high, pressure_low, glucose, kcm, troponin, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RequestID, record.ModelVersion, record.Label, record.Age, record.Gender,
		record.Impulse, record.PressureHigh, record.PressureLow, record.Glucose,
		record.KCM, record.Troponin, record.CreatedAt,
	)
	return err
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, request_id, model_version, label, age, gender, impulse,
               pressure_high, pressure_low, glucose, kcm, troponin, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []PredictionRecord{}
	for rows.Next() {
		var r PredictionRecord
		var requestID sql.NullString
		if err := rows.Scan(&r.ID, &requestID, &r.ModelVersion, &r.Label, &r.Age, &r.Gender,
			&r.Impulse, &r.PressureHigh, &r.PressureLow, &r.Glucose, &r.KCM, &r.Troponin,
			&r.CreatedAt); err != nil {
			return nil, err
		}
		r.RequestID = requestID.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
