package event

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies which collector produced an event and which payload
// variant it carries.
type Source string

const (
	SourceShell      Source = "shell"
	SourceEditor     Source = "editor"
	SourceFilesystem Source = "filesystem"
	SourceGit        Source = "git"
	SourceBrowser    Source = "browser"
)

// Payload is the source-specific portion of an event. Each variant reports
// the source tag it is valid under; access goes through the typed accessors
// on Event so callers never need a type assertion of their own.
type Payload interface {
	Source() Source
}

// ShellPayload describes one executed shell command.
type ShellPayload struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	Cwd        string `json:"cwd,omitempty"`
	GitBranch  string `json:"git_branch,omitempty"`
}

func (ShellPayload) Source() Source { return SourceShell }

// EditorPayload describes an editor action such as a file save.
type EditorPayload struct {
	Action       string `json:"action"`
	FilePath     string `json:"file_path"`
	Language     string `json:"language,omitempty"`
	LinesChanged int    `json:"lines_changed,omitempty"`
}

func (EditorPayload) Source() Source { return SourceEditor }

// FilePayload describes a filesystem change observed by the watcher.
type FilePayload struct {
	Action      string `json:"action"`
	FilePath    string `json:"file_path"`
	FileType    string `json:"file_type,omitempty"`
	IsDirectory bool   `json:"is_directory"`
}

func (FilePayload) Source() Source { return SourceFilesystem }

// GitPayload describes a git operation (commit, push, checkout).
type GitPayload struct {
	Action       string `json:"action"`
	Repository   string `json:"repository,omitempty"`
	Branch       string `json:"branch,omitempty"`
	CommitHash   string `json:"commit_hash,omitempty"`
	Message      string `json:"message,omitempty"`
	FilesChanged int    `json:"files_changed,omitempty"`
}

func (GitPayload) Source() Source { return SourceGit }

// BrowserPayload describes a page visit.
type BrowserPayload struct {
	URL              string `json:"url"`
	Title            string `json:"title,omitempty"`
	Domain           string `json:"domain,omitempty"`
	Category         string `json:"category,omitempty"`
	VisitDurationSec int64  `json:"visit_duration_seconds,omitempty"`
}

func (BrowserPayload) Source() Source { return SourceBrowser }

// Event is one captured unit of developer activity. Events are immutable
// once produced by a collector; the analysis layer only reads them.
type Event struct {
	ID        string
	Timestamp time.Time
	Source    Source
	EventType string
	Payload   Payload
	Project   string
}

// New creates an event with a generated ID. The source tag is derived from
// the payload so the two can never disagree.
func New(timestamp time.Time, eventType string, payload Payload, project string) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: timestamp.UTC(),
		Source:    payload.Source(),
		EventType: eventType,
		Payload:   payload,
		Project:   project,
	}
}

// Shell returns the shell payload when this is a shell event.
func (e Event) Shell() (ShellPayload, bool) {
	p, ok := e.Payload.(ShellPayload)
	return p, ok
}

// Editor returns the editor payload when this is an editor event.
func (e Event) Editor() (EditorPayload, bool) {
	p, ok := e.Payload.(EditorPayload)
	return p, ok
}

// File returns the filesystem payload when this is a filesystem event.
func (e Event) File() (FilePayload, bool) {
	p, ok := e.Payload.(FilePayload)
	return p, ok
}

// Git returns the git payload when this is a git event.
func (e Event) Git() (GitPayload, bool) {
	p, ok := e.Payload.(GitPayload)
	return p, ok
}

// Browser returns the browser payload when this is a browser event.
func (e Event) Browser() (BrowserPayload, bool) {
	p, ok := e.Payload.(BrowserPayload)
	return p, ok
}

// Validate checks that the payload variant matches the source tag.
func (e Event) Validate() error {
	if e.Payload == nil {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	if e.Payload.Source() != e.Source {
		return fmt.Errorf("event %s: source %q does not match payload variant %q",
			e.ID, e.Source, e.Payload.Source())
	}
	return nil
}

type eventJSON struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    Source          `json:"source"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	Project   string          `json:"project,omitempty"`
}

// MarshalJSON writes the payload under event_data keyed by the source tag.
func (e Event) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Source, err)
	}
	return json.Marshal(eventJSON{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Source:    e.Source,
		EventType: e.EventType,
		EventData: data,
		Project:   e.Project,
	})
}

// UnmarshalJSON decodes event_data into the payload variant selected by the
// source tag. Unknown sources are an error, not a silent passthrough.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	payload, err := unmarshalPayload(raw.Source, raw.EventData)
	if err != nil {
		return err
	}

	e.ID = raw.ID
	e.Timestamp = raw.Timestamp.UTC()
	e.Source = raw.Source
	e.EventType = raw.EventType
	e.Payload = payload
	e.Project = raw.Project
	return nil
}

// DecodePayload parses raw payload JSON into the variant selected by the
// source tag. The store uses it to rebuild events from persisted rows.
func DecodePayload(source Source, data []byte) (Payload, error) {
	return unmarshalPayload(source, data)
}

func unmarshalPayload(source Source, data json.RawMessage) (Payload, error) {
	switch source {
	case SourceShell:
		var p ShellPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode shell payload: %w", err)
		}
		return p, nil
	case SourceEditor:
		var p EditorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode editor payload: %w", err)
		}
		return p, nil
	case SourceFilesystem:
		var p FilePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode filesystem payload: %w", err)
		}
		return p, nil
	case SourceGit:
		var p GitPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode git payload: %w", err)
		}
		return p, nil
	case SourceBrowser:
		var p BrowserPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode browser payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event source %q", source)
	}
}

// DomainOf extracts the bare host from a URL for BrowserPayload.Domain.
// A leading "www." is stripped so lookups against domain tables match.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// SortByTime orders events ascending by timestamp, breaking ties by ID so
// repeated runs over the same input always see the same order.
func SortByTime(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID < events[j].ID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
