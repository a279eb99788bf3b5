package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gglang/the-voices-sub000/logging"
)

// IncidentCategories are the categories worth indexing.
var IncidentCategories = []string{logging.CategoryDetection, logging.CategoryDispatch}

// Incidents indexes events into a sqlite table so detection and dispatch
// history can be queried after a run. The router already serialises writes
// per sink, so statements run inline.
type Incidents struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Incident is one indexed row.
type Incident struct {
	ID       int64
	Tick     uint64
	Type     string
	Category string
	ActorID  string
	Severity string
	Payload  string
	Time     time.Time
}

func OpenIncidents(path string) (*Incidents, error) {
	if path == "" {
		return nil, errors.New("incidents: empty db path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("incidents: %s: %w", p, err)
		}
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS incidents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			payload TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS incidents_tick ON incidents(tick);`,
		`CREATE INDEX IF NOT EXISTS incidents_type ON incidents(type);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("incidents: init schema: %w", err)
		}
	}
	insert, err := db.Prepare(`INSERT INTO incidents (tick, type, category, actor_id, severity, payload, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("incidents: prepare insert: %w", err)
	}
	return &Incidents{db: db, insert: insert}, nil
}

func (s *Incidents) Write(event logging.Event) error {
	payload := []byte("null")
	if event.Payload != nil {
		var err error
		payload, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("incidents: encode payload: %w", err)
		}
	}
	ts := event.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.insert.Exec(
		int64(event.Tick),
		string(event.Type),
		event.Category,
		event.Actor.ID,
		event.Severity.String(),
		string(payload),
		ts.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Query returns incidents of the given type in insertion order. An empty type
// returns every row.
func (s *Incidents) Query(ctx context.Context, eventType logging.EventType) ([]Incident, error) {
	query := `SELECT id, tick, type, category, actor_id, severity, payload, recorded_at FROM incidents`
	var args []any
	if eventType != "" {
		query += ` WHERE type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		var (
			inc      Incident
			tick     int64
			recorded string
		)
		if err := rows.Scan(&inc.ID, &tick, &inc.Type, &inc.Category, &inc.ActorID, &inc.Severity, &inc.Payload, &recorded); err != nil {
			return nil, err
		}
		inc.Tick = uint64(tick)
		inc.Time, _ = time.Parse(time.RFC3339Nano, recorded)
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (s *Incidents) Close(context.Context) error {
	if s.insert != nil {
		_ = s.insert.Close()
	}
	return s.db.Close()
}
