package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevinreber/siphon/internal/event"
)

// defaultQueryLimit caps unbounded reads the way the daemon API expects.
const defaultQueryLimit = 1000

// SourceCount is one row of the per-source event breakdown.
type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// ProjectCount is one row of the per-project event breakdown.
type ProjectCount struct {
	Project string `json:"project"`
	Count   int64  `json:"count"`
}

// DayCount is one row of the per-day event breakdown.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// InsertEvent stores one event. The payload is serialized to JSON in the
// event_data column; the source tag in its own column drives decoding.
func (s *Store) InsertEvent(e event.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	stmt, err := s.stmt("insert_event")
	if err != nil {
		return err
	}

	project := sql.NullString{String: e.Project, Valid: e.Project != ""}
	_, err = stmt.Exec(e.ID, e.Timestamp.UTC().Format(timeFormat), string(e.Source), e.EventType, string(data), project)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// InsertEvents stores a batch in one transaction and returns how many rows
// were written. Collectors import hundreds of events at a time; per-row
// transactions would make that crawl.
func (s *Store) InsertEvents(events []event.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (id, timestamp, source, event_type, event_data, project)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return inserted, err
		}
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return inserted, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		project := sql.NullString{String: e.Project, Valid: e.Project != ""}
		if _, err := stmt.Exec(e.ID, e.Timestamp.UTC().Format(timeFormat), string(e.Source), e.EventType, string(data), project); err != nil {
			return inserted, fmt.Errorf("failed to insert event: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return inserted, nil
}

// InsertNewEvents stores a batch, skipping rows whose timestamp, source,
// type, and payload already exist. Collectors re-read whole history files,
// so overlapping runs must not duplicate rows.
func (s *Store) InsertNewEvents(events []event.Event) (inserted, skipped int, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	tx, err := s.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (id, timestamp, source, event_type, event_data, project)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM events WHERE timestamp = ? AND source = ? AND event_type = ? AND event_data = ?
		)`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if err := e.Validate(); err != nil {
			return inserted, skipped, err
		}
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return inserted, skipped, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		project := sql.NullString{String: e.Project, Valid: e.Project != ""}
		ts := e.Timestamp.UTC().Format(timeFormat)

		res, err := stmt.Exec(e.ID, ts, string(e.Source), e.EventType, string(data), project,
			ts, string(e.Source), e.EventType, string(data))
		if err != nil {
			return inserted, skipped, fmt.Errorf("failed to insert event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, skipped, fmt.Errorf("failed to read inserted row count: %w", err)
		}
		if n == 0 {
			skipped++
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return inserted, skipped, nil
}

// EventsSince returns events at or after the given time, newest first.
// A non-positive limit falls back to the default cap.
func (s *Store) EventsSince(since time.Time, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	stmt, err := s.stmt("events_since")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(since.UTC().Format(timeFormat), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventsBetween returns events in [start, end], oldest first. The analysis
// pipeline consumes this order directly.
func (s *Store) EventsBetween(start, end time.Time) ([]event.Event, error) {
	stmt, err := s.stmt("events_between")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(start.UTC().Format(timeFormat), end.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RecentEvents returns events from the last N hours, newest first. A
// non-positive limit falls back to the default cap.
func (s *Store) RecentEvents(hours, limit int) ([]event.Event, error) {
	return s.EventsSince(time.Now().Add(-time.Duration(hours)*time.Hour), limit)
}

// Filter narrows EventsFiltered results. Zero values mean no constraint.
type Filter struct {
	Source  string
	Project string
	Limit   int
}

// EventsFiltered returns events in [start, end] matching the filter,
// newest first. The WHERE clause is built dynamically; the common
// unfiltered range read stays on the prepared events_between statement.
func (s *Store) EventsFiltered(start, end time.Time, f Filter) ([]event.Event, error) {
	query := `SELECT id, timestamp, source, event_type, event_data, project
		FROM events WHERE timestamp >= ? AND timestamp <= ?`
	args := []interface{}{start.UTC().Format(timeFormat), end.UTC().Format(timeFormat)}

	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.Project != "" {
		query += ` AND project = ?`
		args = append(args, f.Project)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// TotalCount returns the number of stored events.
func (s *Store) TotalCount() (int64, error) {
	stmt, err := s.stmt("total_count")
	if err != nil {
		return 0, err
	}

	var count int64
	if err := stmt.QueryRow().Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// CountBySource returns event counts grouped by source, largest first.
func (s *Store) CountBySource() ([]SourceCount, error) {
	rows, err := s.Query(`SELECT source, COUNT(*) as count FROM events GROUP BY source ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by source: %w", err)
	}
	defer rows.Close()

	counts := make([]SourceCount, 0)
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}

// CountByProject returns event counts for the busiest projects, largest
// first. Events without a project are left out.
func (s *Store) CountByProject(limit int) ([]ProjectCount, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.Query(`SELECT project, COUNT(*) as count FROM events
		WHERE project IS NOT NULL AND project != ''
		GROUP BY project ORDER BY count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by project: %w", err)
	}
	defer rows.Close()

	counts := make([]ProjectCount, 0)
	for rows.Next() {
		var pc ProjectCount
		if err := rows.Scan(&pc.Project, &pc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan project count: %w", err)
		}
		counts = append(counts, pc)
	}
	return counts, rows.Err()
}

// DailyCounts returns per-day event counts for the last N days, newest day
// first. Days are derived from the stored UTC timestamps.
func (s *Store) DailyCounts(days int) ([]DayCount, error) {
	since := time.Now().AddDate(0, 0, -days)

	rows, err := s.Query(`SELECT DATE(timestamp) as day, COUNT(*) as count FROM events
		WHERE timestamp >= ? GROUP BY day ORDER BY day DESC`, since.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to count events by day: %w", err)
	}
	defer rows.Close()

	counts := make([]DayCount, 0)
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// TimeRange returns the oldest and newest event timestamps. ok is false for
// an empty store.
func (s *Store) TimeRange() (oldest, newest time.Time, ok bool, err error) {
	var minStr, maxStr sql.NullString
	if err := s.QueryRow(`SELECT MIN(timestamp), MAX(timestamp) FROM events`).Scan(&minStr, &maxStr); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to query time range: %w", err)
	}
	if !minStr.Valid || !maxStr.Valid {
		return time.Time{}, time.Time{}, false, nil
	}

	oldest, err = time.Parse(timeFormat, minStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to parse oldest timestamp: %w", err)
	}
	newest, err = time.Parse(timeFormat, maxStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to parse newest timestamp: %w", err)
	}
	return oldest, newest, true, nil
}

// Cleanup deletes events older than the retention window and returns how
// many rows were removed. Callers decide when to vacuum.
func (s *Store) Cleanup(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	res, err := s.Exec(`DELETE FROM events WHERE timestamp < ?`, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	return deleted, nil
}

// scanEvents maps rows to events. Rows whose payload no longer decodes are
// logged and skipped so one bad row cannot take the read path down.
func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	events := make([]event.Event, 0)
	for rows.Next() {
		var (
			id        string
			ts        string
			source    string
			eventType string
			data      string
			project   sql.NullString
		)
		if err := rows.Scan(&id, &ts, &source, &eventType, &data, &project); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		timestamp, err := time.Parse(timeFormat, ts)
		if err != nil {
			slog.Warn("Skipping event with unparseable timestamp", "id", id, "timestamp", ts)
			continue
		}
		payload, err := event.DecodePayload(event.Source(source), []byte(data))
		if err != nil {
			slog.Warn("Skipping event with undecodable payload", "id", id, "source", source, "error", err)
			continue
		}

		events = append(events, event.Event{
			ID:        id,
			Timestamp: timestamp.UTC(),
			Source:    event.Source(source),
			EventType: eventType,
			Payload:   payload,
			Project:   project.String,
		})
	}
	return events, rows.Err()
}
