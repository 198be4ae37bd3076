package persistence

import (
	"database/sql"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"

	"github.com/gotradekernel/kernel/pkg/order"
)

// EventLogEntry is one row of the append-only order event log, grounded
// on storage/database.go's Trade audit-log table.
type EventLogEntry struct {
	Sequence      int64
	ClientOrderId string
	Kind          string
	TsEvent       int64
	Payload       string
	CreatedAt     time.Time
}

// EventLog appends order.Event values to a PostgreSQL table via
// database/sql + github.com/lib/pq, the way storage/database.go logs
// trades: if DATABASE_URL is unset it runs disabled, every Append call a
// silent no-op, so the core's execution path never depends on it being
// configured (spec's Non-goals: the core remains non-persistent).
type EventLog struct {
	db      *sql.DB
	enabled bool
}

// NewEventLog opens DATABASE_URL (empty disables the log) and creates
// the order_events table if missing.
func NewEventLog() (*EventLog, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Warn().Msg("persistence: DATABASE_URL not set, event log disabled")
		return &EventLog{enabled: false}, nil
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	el := &EventLog{db: db, enabled: true}
	if err := el.migrate(); err != nil {
		return nil, err
	}
	log.Info().Msg("persistence: event log connected")
	return el, nil
}

func (el *EventLog) migrate() error {
	if !el.enabled {
		return nil
	}
	schema := `
	CREATE TABLE IF NOT EXISTS order_events (
		sequence BIGSERIAL PRIMARY KEY,
		client_order_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		ts_event BIGINT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_order_events_client_order_id ON order_events(client_order_id);
	CREATE INDEX IF NOT EXISTS idx_order_events_ts_event ON order_events(ts_event);
	`
	_, err := el.db.Exec(schema)
	return err
}

// Append records ev as an audit-trail row. A no-op when the log is
// disabled.
func (el *EventLog) Append(ev order.Event) error {
	if !el.enabled {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = el.db.Exec(`
		INSERT INTO order_events (client_order_id, kind, ts_event, payload)
		VALUES ($1, $2, $3, $4)
	`, ev.ClientOrderId.String(), ev.Kind.String(), ev.TsEvent, payload)
	if err != nil {
		log.Error().Err(err).Str("client_order_id", ev.ClientOrderId.String()).Msg("persistence: failed to append order event")
	}
	return err
}

// RecentForOrder returns the most recent events logged for
// clientOrderId, newest first, bounded by limit.
func (el *EventLog) RecentForOrder(clientOrderId string, limit int) ([]EventLogEntry, error) {
	if !el.enabled {
		return nil, nil
	}
	rows, err := el.db.Query(`
		SELECT sequence, client_order_id, kind, ts_event, payload, created_at
		FROM order_events WHERE client_order_id = $1
		ORDER BY sequence DESC LIMIT $2
	`, clientOrderId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []EventLogEntry
	for rows.Next() {
		var e EventLogEntry
		if err := rows.Scan(&e.Sequence, &e.ClientOrderId, &e.Kind, &e.TsEvent, &e.Payload, &e.CreatedAt); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// IsEnabled reports whether DATABASE_URL was configured.
func (el *EventLog) IsEnabled() bool { return el.enabled }

// Close closes the underlying connection.
func (el *EventLog) Close() error {
	if el.db != nil {
		return el.db.Close()
	}
	return nil
}
