// Package store persists events to SQLite. The database lives in the user's
// data directory and is shared by the daemon (writes) and the CLI (reads),
// which is why WAL mode and a busy timeout are not optional.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "events.db"

// timeFormat is fixed-width RFC 3339 with nanoseconds, so the TEXT column
// sorts lexically in chronological order. time.RFC3339Nano trims trailing
// zeros and would break that.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps the SQLite connection and its prepared statements.
type Store struct {
	*sql.DB
	path     string
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// Open creates the data directory if needed, opens the database, and runs
// migrations. The returned store is safe for concurrent use.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single writer plus a few readers is all SQLite wants to see.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		DB:       db,
		path:     dbPath,
		prepared: make(map[string]*sql.Stmt),
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := s.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			source TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data TEXT NOT NULL,
			project TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_source ON events(source)`,
		`CREATE INDEX IF NOT EXISTS idx_events_project ON events(project)`,
	}

	for _, query := range queries {
		if _, err := s.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

func (s *Store) initPreparedStatements() error {
	statements := map[string]string{
		"insert_event": `INSERT INTO events (id, timestamp, source, event_type, event_data, project)
			VALUES (?, ?, ?, ?, ?, ?)`,

		"events_since": `SELECT id, timestamp, source, event_type, event_data, project
			FROM events WHERE timestamp >= ? ORDER BY timestamp DESC LIMIT ?`,

		"events_between": `SELECT id, timestamp, source, event_type, event_data, project
			FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`,

		"total_count": `SELECT COUNT(*) FROM events`,
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for name, query := range statements {
		stmt, err := s.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		s.prepared[name] = stmt
	}
	return nil
}

func (s *Store) stmt(name string) (*sql.Stmt, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stmt, ok := s.prepared[name]
	if !ok {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}
	return stmt, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Size returns the database file size in bytes.
func (s *Store) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat database file: %w", err)
	}
	return info.Size(), nil
}

// Vacuum reclaims space after deletions.
func (s *Store) Vacuum() error {
	if _, err := s.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

// Close releases prepared statements and the connection.
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for name, stmt := range s.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	s.prepared = make(map[string]*sql.Stmt)

	return s.DB.Close()
}
