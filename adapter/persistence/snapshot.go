// Package persistence is an external reporting sink: it holds no state
// the core depends on, since the core remains non-persistent. It offers
// two independent write paths, grounded on two separate teacher files:
// gorm-backed point-in-time mass-status snapshots
// (internal/database/database.go) and a lib/pq append-only order event
// log (storage/database.go).
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
)

// MassStatusSnapshot is one point-in-time record of a venue's
// execution.MassStatus, stored as JSON since its shape (order/fill/
// position reports) is read back whole, never queried by individual
// column.
type MassStatusSnapshot struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Venue     string `gorm:"index"`
	Payload   string
	TakenAt   time.Time `gorm:"index"`
	CreatedAt time.Time
}

// SnapshotStore persists MassStatusSnapshot rows via gorm, following
// internal/database/database.go's postgres-or-sqlite dial convention.
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore opens dsn as a PostgreSQL connection when it carries
// a postgres:// scheme, otherwise as a SQLite file (creating its parent
// directory if necessary), and auto-migrates MassStatusSnapshot.
func NewSnapshotStore(dsn string) (*SnapshotStore, error) {
	var db *gorm.DB
	var err error

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("persistence: snapshot store connected (PostgreSQL)")
	} else {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dsn).Msg("persistence: snapshot store initialized (SQLite)")
	}

	if err := db.AutoMigrate(&MassStatusSnapshot{}); err != nil {
		return nil, err
	}

	return &SnapshotStore{db: db}, nil
}

// SaveSnapshot serializes status to JSON and records it under venue,
// timestamped takenAt.
func (s *SnapshotStore) SaveSnapshot(venue ident.Venue, status execution.MassStatus, takenAt time.Time) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.db.Create(&MassStatusSnapshot{
		Venue:   venue.String(),
		Payload: string(payload),
		TakenAt: takenAt,
	}).Error
}

// LatestSnapshot returns the most recent snapshot for venue, decoded
// back into an execution.MassStatus.
func (s *SnapshotStore) LatestSnapshot(venue ident.Venue) (execution.MassStatus, time.Time, error) {
	var row MassStatusSnapshot
	if err := s.db.Where("venue = ?", venue.String()).Order("taken_at DESC").First(&row).Error; err != nil {
		return execution.MassStatus{}, time.Time{}, err
	}
	var status execution.MassStatus
	if err := json.Unmarshal([]byte(row.Payload), &status); err != nil {
		return execution.MassStatus{}, time.Time{}, err
	}
	return status, row.TakenAt, nil
}

// SnapshotsSince returns every snapshot for venue taken at or after
// since, oldest first.
func (s *SnapshotStore) SnapshotsSince(venue ident.Venue, since time.Time) ([]MassStatusSnapshot, error) {
	var rows []MassStatusSnapshot
	err := s.db.Where("venue = ? AND taken_at >= ?", venue.String(), since).Order("taken_at ASC").Find(&rows).Error
	return rows, err
}
