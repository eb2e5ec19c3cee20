// Package postgres stores events and the ledger of saved runs.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// EventRow represents an event stored in Postgres.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Dataset   string                 `json:"dataset"`
}

// RunRow is one saved (or failed) run of a scene.
type RunRow struct {
	RunID      int64     `json:"run_id"`
	Timestamp  time.Time `json:"ts"`
	Dataset    string    `json:"dataset"`
	Subdir     string    `json:"subdir"`
	Block      string    `json:"block"`
	Category   string    `json:"category"`
	IsPossible bool      `json:"is_possible"`
	Frames     int       `json:"frames"`
	Saved      bool      `json:"saved"`
}

// Options locate the database. Empty fields fall back to the PG* environment
// variables, then to local defaults.
type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	// Dataset tags every row, so that several generation jobs can share
	// one database.
	Dataset string
}

// Client manages the Postgres connection.
type Client struct {
	db      *sql.DB
	dataset string

	mu          sync.Mutex
	errorLogged bool
}

// New connects, pings and creates the tables if needed.
func New(opts Options) (*Client, error) {
	host := orEnv(opts.Host, "PGHOST", "127.0.0.1")
	port := orEnv(opts.Port, "PGPORT", "5432")
	user := orEnv(opts.User, "PGUSER", "intphys")
	dbname := orEnv(opts.Database, "PGDATABASE", "intphys")
	password := opts.Password

	var connStr string
	if password != "" {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	} else {
		connStr = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			host, port, user, dbname)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:      db,
		dataset: opts.Dataset,
	}

	if err := client.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return client, nil
}

func orEnv(value, key, defaultVal string) string {
	if value != "" {
		return value
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			event_id BIGSERIAL PRIMARY KEY,
			ts       TIMESTAMPTZ NOT NULL,
			level    TEXT NOT NULL,
			event    TEXT NOT NULL,
			msg      TEXT,
			fields   JSONB,
			dataset  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_dataset ON events(dataset);

		CREATE TABLE IF NOT EXISTS runs (
			run_id      BIGSERIAL PRIMARY KEY,
			ts          TIMESTAMPTZ NOT NULL,
			dataset     TEXT NOT NULL,
			subdir      TEXT NOT NULL,
			block       TEXT NOT NULL,
			category    TEXT NOT NULL,
			is_possible BOOLEAN NOT NULL,
			frames      INTEGER NOT NULL,
			saved       BOOLEAN NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts an event into the database.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	query := `
		INSERT INTO events (ts, level, event, msg, fields, dataset)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = c.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, c.dataset)
	return err
}

// Query returns the last N events from the database in descending order by timestamp.
func (c *Client) Query(limit int) ([]EventRow, error) {
	limit = clampLimit(limit)

	query := `
		SELECT event_id, ts, level, event, msg, fields, dataset
		FROM events
		WHERE dataset = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.dataset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.Dataset); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// RecordRun inserts one row in the run ledger.
func (c *Client) RecordRun(r RunRow) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO runs (ts, dataset, subdir, block, category, is_possible, frames, saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := c.db.Exec(query, r.Timestamp, c.dataset, r.Subdir, r.Block, r.Category, r.IsPossible, r.Frames, r.Saved)
	return err
}

// QueryRuns returns the last N runs of the dataset, newest first.
func (c *Client) QueryRuns(limit int) ([]RunRow, error) {
	limit = clampLimit(limit)

	query := `
		SELECT run_id, ts, dataset, subdir, block, category, is_possible, frames, saved
		FROM runs
		WHERE dataset = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.dataset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.Timestamp, &r.Dataset, &r.Subdir, &r.Block, &r.Category, &r.IsPossible, &r.Frames, &r.Saved); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// MarkErrorLogged marks that an error has been logged (to avoid spam).
func (c *Client) MarkErrorLogged() {
	c.mu.Lock()
	c.errorLogged = true
	c.mu.Unlock()
}

// HasLoggedError returns true if an error has been logged.
func (c *Client) HasLoggedError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorLogged
}

// Ping reports whether the database is reachable.
func (c *Client) Ping() error {
	return c.db.Ping()
}
