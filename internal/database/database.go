package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/durellwilson/courseforge/internal/models"
)

// DB is the local cycle-history log. It exists for operators: the pipeline
// itself never reads it, and losing it loses nothing but history.
type DB struct {
	conn *sql.DB
	path string
}

func New(path string) (*DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(2)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cycle_log (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id        TEXT    NOT NULL,
			started_at      TEXT    NOT NULL,
			finished_at     TEXT    NOT NULL,
			status          TEXT    NOT NULL,
			records_fetched INTEGER NOT NULL DEFAULT 0,
			insight_count   INTEGER NOT NULL DEFAULT 0,
			tokens_used     INTEGER NOT NULL DEFAULT 0,
			chapter_path    TEXT    NOT NULL DEFAULT '',
			error_message   TEXT    NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycle_log_started_at ON cycle_log(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

const timeLayout = "2006-01-02 15:04:05"

// LogCycle records the outcome of one pipeline cycle.
func (db *DB) LogCycle(entry models.CycleLog) error {
	_, err := db.conn.Exec(
		`INSERT INTO cycle_log
			(cycle_id, started_at, finished_at, status, records_fetched, insight_count, tokens_used, chapter_path, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CycleID,
		entry.StartedAt.UTC().Format(timeLayout),
		entry.FinishedAt.UTC().Format(timeLayout),
		entry.Status,
		entry.RecordsFetched,
		entry.InsightCount,
		entry.TokensUsed,
		entry.ChapterPath,
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert cycle log: %w", err)
	}
	return nil
}

// RecentCycles returns the most recent cycle log rows, newest first.
func (db *DB) RecentCycles(limit int) ([]models.CycleLog, error) {
	rows, err := db.conn.Query(
		`SELECT id, cycle_id, started_at, finished_at, status, records_fetched, insight_count, tokens_used, chapter_path, error_message
		 FROM cycle_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycle log: %w", err)
	}
	defer rows.Close()

	var entries []models.CycleLog
	for rows.Next() {
		var entry models.CycleLog
		var started, finished string
		if err := rows.Scan(&entry.ID, &entry.CycleID, &started, &finished, &entry.Status,
			&entry.RecordsFetched, &entry.InsightCount, &entry.TokensUsed,
			&entry.ChapterPath, &entry.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan cycle log: %w", err)
		}
		if entry.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if entry.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
