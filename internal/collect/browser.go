package collect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/event"
	"github.com/kevinreber/siphon/internal/redact"
	"github.com/kevinreber/siphon/internal/resilience"
)

// chromeEpochOffset is the number of seconds between the Chrome history
// epoch (1601-01-01) and the Unix epoch.
const chromeEpochOffset = 11644473600

// ProfileKind selects the history database schema.
type ProfileKind string

const (
	KindChrome  ProfileKind = "chrome"
	KindFirefox ProfileKind = "firefox"
)

// Profile points at one browser history database.
type Profile struct {
	Name string
	Path string
	Kind ProfileKind
}

// BrowserCollector imports page visits from Chrome and Firefox history
// databases. The databases are locked while the browser runs, so each
// is copied to a temp file before querying.
type BrowserCollector struct {
	profiles    []Profile
	maxWindow   time.Duration
	maxAttempts int
}

// NewBrowserCollector creates a browser history collector. A nil profile
// list means the platform default locations.
func NewBrowserCollector(profiles []Profile) *BrowserCollector {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &BrowserCollector{
		profiles:    profiles,
		maxAttempts: 3,
	}
}

// WithMaxWindow caps how far back Collect reaches regardless of since.
// History databases hold months of visits; the cap keeps runs cheap.
func (c *BrowserCollector) WithMaxWindow(d time.Duration) *BrowserCollector {
	c.maxWindow = d
	return c
}

// DefaultProfiles returns the standard history database locations for
// the current platform.
func DefaultProfiles() []Profile {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	var profiles []Profile
	switch runtime.GOOS {
	case "darwin":
		profiles = append(profiles,
			Profile{Name: "chrome", Kind: KindChrome,
				Path: filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "History")},
		)
		profiles = append(profiles, firefoxProfiles(
			filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles"))...)
	default:
		profiles = append(profiles,
			Profile{Name: "chrome", Kind: KindChrome,
				Path: filepath.Join(home, ".config", "google-chrome", "Default", "History")},
			Profile{Name: "chromium", Kind: KindChrome,
				Path: filepath.Join(home, ".config", "chromium", "Default", "History")},
		)
		profiles = append(profiles, firefoxProfiles(filepath.Join(home, ".mozilla", "firefox"))...)
	}

	return profiles
}

func firefoxProfiles(dir string) []Profile {
	matches, err := filepath.Glob(filepath.Join(dir, "*.default*", "places.sqlite"))
	if err != nil {
		return nil
	}

	profiles := make([]Profile, 0, len(matches))
	for _, path := range matches {
		profiles = append(profiles, Profile{Name: "firefox", Kind: KindFirefox, Path: path})
	}
	return profiles
}

// Name implements Collector.
func (c *BrowserCollector) Name() string { return "browser" }

// Collect reads visits newer than since from every present profile.
// No installed browser, or every present profile unreadable, makes the
// source unavailable.
func (c *BrowserCollector) Collect(ctx context.Context, since time.Time) ([]event.Event, error) {
	if c.maxWindow > 0 {
		if floor := time.Now().Add(-c.maxWindow); since.Before(floor) {
			since = floor
		}
	}

	var events []event.Event
	present := 0
	readable := 0
	var lastErr error

	for _, p := range c.profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := os.Stat(p.Path); err != nil {
			continue
		}
		present++

		profileEvents, err := c.collectProfile(ctx, p, since)
		if err != nil {
			lastErr = err
			slog.Warn("Skipping browser profile", "profile", p.Name, "path", p.Path, "error", err)
			continue
		}
		readable++
		events = append(events, profileEvents...)
	}

	if present == 0 {
		return nil, apperrors.NewCollectorError("browser", errors.New("no browser history database found"))
	}
	if readable == 0 {
		return nil, apperrors.NewCollectorError("browser", lastErr)
	}

	return events, nil
}

// collectProfile copies the history database and queries the copy,
// retrying with backoff: the file is briefly unreadable mid-flush.
func (c *BrowserCollector) collectProfile(ctx context.Context, p Profile, since time.Time) ([]event.Event, error) {
	var events []event.Event

	err := resilience.RetryWithBackoff(ctx, c.maxAttempts, 200*time.Millisecond, func() error {
		visits, err := readHistoryDatabase(p, since)
		if err != nil {
			return apperrors.NewCollectorError("browser", err)
		}
		events = visits
		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

func readHistoryDatabase(p Profile, since time.Time) ([]event.Event, error) {
	tmpPath, err := copyToTemp(p.Path)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	db, err := sql.Open("sqlite", "file:"+tmpPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open history copy: %w", err)
	}
	defer db.Close()

	switch p.Kind {
	case KindChrome:
		return queryChromeHistory(db, since)
	case KindFirefox:
		return queryFirefoxHistory(db, since)
	default:
		return nil, fmt.Errorf("unknown profile kind %q", p.Kind)
	}
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open history database: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "siphon-history-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("failed to create temp copy: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to copy history database: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}

func queryChromeHistory(db *sql.DB, since time.Time) ([]event.Event, error) {
	sinceChrome := (since.Unix() + chromeEpochOffset) * 1_000_000

	rows, err := db.Query(`
		SELECT u.url, COALESCE(u.title, ''), v.visit_time, v.visit_duration
		FROM visits v
		JOIN urls u ON u.id = v.url
		WHERE v.visit_time > ?
		ORDER BY v.visit_time ASC`, sinceChrome)
	if err != nil {
		return nil, fmt.Errorf("failed to query chrome history: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var rawURL, title string
		var visitTime, visitDuration int64
		if err := rows.Scan(&rawURL, &title, &visitTime, &visitDuration); err != nil {
			return nil, err
		}

		ts := time.Unix(visitTime/1_000_000-chromeEpochOffset, 0).UTC()
		if e, ok := visitEvent(rawURL, title, ts, visitDuration/1_000_000); ok {
			events = append(events, e)
		}
	}

	return events, rows.Err()
}

func queryFirefoxHistory(db *sql.DB, since time.Time) ([]event.Event, error) {
	rows, err := db.Query(`
		SELECT p.url, COALESCE(p.title, ''), v.visit_date
		FROM moz_historyvisits v
		JOIN moz_places p ON p.id = v.place_id
		WHERE v.visit_date > ?
		ORDER BY v.visit_date ASC`, since.UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("failed to query firefox history: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var rawURL, title string
		var visitDate int64
		if err := rows.Scan(&rawURL, &title, &visitDate); err != nil {
			return nil, err
		}

		ts := time.UnixMicro(visitDate).UTC()
		if e, ok := visitEvent(rawURL, title, ts, 0); ok {
			events = append(events, e)
		}
	}

	return events, rows.Err()
}

// visitEvent builds one browser event, scrubbing the URL and title.
// Non-web schemes (chrome://, about:, file://) are noise and dropped.
func visitEvent(rawURL, title string, ts time.Time, durationSec int64) (event.Event, bool) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return event.Event{}, false
	}

	cleanURL := redact.Text(rawURL).Command
	cleanTitle := redact.Text(title).Command

	return event.New(ts, "page_visit", event.BrowserPayload{
		URL:              cleanURL,
		Title:            cleanTitle,
		Domain:           event.DomainOf(cleanURL),
		VisitDurationSec: durationSec,
	}, ""), true
}
