// Package storage provides a SQLite-backed journal of premium samples and fired alerts.
// The journal is write-mostly: the monitor never reads it back to restore state.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rewired-gh/premiumwatch/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all journal operations.
type Storage struct {
	db         *sql.DB
	maxSamples int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/premiumwatch/journal.db.
func New(maxSamples int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "premiumwatch", "journal.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxSamples: maxSamples}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			id              TEXT PRIMARY KEY,
			market_price    REAL NOT NULL,
			live_fx         REAL NOT NULL,
			prev_close_fx   REAL NOT NULL,
			official_nav    REAL NOT NULL,
			inav            REAL NOT NULL,
			premium_pct     REAL NOT NULL,
			observed_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id              TEXT PRIMARY KEY,
			sample_id       TEXT NOT NULL,
			fund_name       TEXT NOT NULL,
			premium_pct     REAL NOT NULL,
			market_price    REAL NOT NULL,
			inav            REAL NOT NULL,
			fired_at        INTEGER NOT NULL,
			channels        TEXT NOT NULL DEFAULT '',
			failed_channels TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_observed_at ON samples(observed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_fired_at ON alerts(fired_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddSample records one evaluated poll and trims the table to maxSamples rows.
func (s *Storage) AddSample(sample *models.Sample) error {
	if sample.ID == "" {
		return errors.New("invalid sample: ID must not be empty")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO samples
			(id, market_price, live_fx, prev_close_fx, official_nav, inav, premium_pct, observed_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		sample.ID, sample.Quote.MarketPrice, sample.Quote.LiveFX, sample.Quote.PrevCloseFX,
		sample.OfficialNAV, sample.INAV, sample.PremiumPct, sample.ObservedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	if _, err = tx.Exec(`
		DELETE FROM samples WHERE id NOT IN (
			SELECT id FROM samples ORDER BY observed_at DESC LIMIT ?
		)`, s.maxSamples); err != nil {
		return fmt.Errorf("failed to enforce sample cap: %w", err)
	}

	return tx.Commit()
}

// RecentSamples returns up to k samples, newest first. It is a reader for
// operators and tests; the monitor itself never reads the journal.
func (s *Storage) RecentSamples(k int) ([]models.Sample, error) {
	rows, err := s.db.Query(`
		SELECT id, market_price, live_fx, prev_close_fx, official_nav, inav, premium_pct, observed_at
		FROM samples ORDER BY observed_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []models.Sample{}
	for rows.Next() {
		var sm models.Sample
		var observedAtNano int64
		err := rows.Scan(
			&sm.ID, &sm.Quote.MarketPrice, &sm.Quote.LiveFX, &sm.Quote.PrevCloseFX,
			&sm.OfficialNAV, &sm.INAV, &sm.PremiumPct, &observedAtNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sm.ObservedAt = time.Unix(0, observedAtNano)
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// AlertRecord is a journaled alert with its dispatch outcome.
type AlertRecord struct {
	ID             string
	SampleID       string
	FundName       string
	PremiumPct     float64
	MarketPrice    float64
	INAV           float64
	FiredAt        time.Time
	Channels       []string
	FailedChannels []string
}

// AddAlert records a fired alert and which channels failed.
func (s *Storage) AddAlert(alert *models.Alert, channels, failed []string) error {
	_, err := s.db.Exec(`
		INSERT INTO alerts
			(id, sample_id, fund_name, premium_pct, market_price, inav, fired_at, channels, failed_channels)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		alert.ID, alert.Sample.ID, alert.FundName, alert.Sample.PremiumPct,
		alert.Sample.Quote.MarketPrice, alert.Sample.INAV, alert.FiredAt.UnixNano(),
		strings.Join(channels, ","), strings.Join(failed, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to k alerts, newest first. Like RecentSamples it
// is not used by the monitor.
func (s *Storage) RecentAlerts(k int) ([]AlertRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, sample_id, fund_name, premium_pct, market_price, inav, fired_at, channels, failed_channels
		FROM alerts ORDER BY fired_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var records []AlertRecord
	for rows.Next() {
		var r AlertRecord
		var firedAtNano int64
		var channels, failed string
		err := rows.Scan(
			&r.ID, &r.SampleID, &r.FundName, &r.PremiumPct, &r.MarketPrice, &r.INAV,
			&firedAtNano, &channels, &failed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		r.FiredAt = time.Unix(0, firedAtNano)
		r.Channels = splitList(channels)
		r.FailedChannels = splitList(failed)
		records = append(records, r)
	}
	return records, rows.Err()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
