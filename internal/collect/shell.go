package collect

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/event"
	"github.com/kevinreber/siphon/internal/redact"
)

// zshExtendedLine matches the EXTENDED_HISTORY format:
// ": <start>:<elapsed>;<command>".
var zshExtendedLine = regexp.MustCompile(`^: (\d+):(\d+);(.*)$`)

type historyEntry struct {
	timestamp  time.Time
	durationMs int64
	command    string
}

// ShellCollector imports commands from zsh and bash history files.
// History files carry no exit codes or working directories, so imported
// shell events report exit code 0 and no project.
type ShellCollector struct {
	historyFiles []string
	limit        int
}

// NewShellCollector creates a shell history collector capped at limit
// entries per run.
func NewShellCollector(limit int) *ShellCollector {
	home, err := os.UserHomeDir()
	if err != nil {
		return &ShellCollector{limit: limit}
	}
	return &ShellCollector{
		historyFiles: []string{
			filepath.Join(home, ".zsh_history"),
			filepath.Join(home, ".bash_history"),
		},
		limit: limit,
	}
}

// Name implements Collector.
func (c *ShellCollector) Name() string { return "shell" }

// Collect parses the history files and returns redacted command events
// newer than since. Untimestamped history lines are skipped: without a
// time they cannot be placed on the activity timeline.
func (c *ShellCollector) Collect(ctx context.Context, since time.Time) ([]event.Event, error) {
	var entries []historyEntry
	opened := 0
	var lastErr error

	for _, path := range c.historyFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				lastErr = err
			}
			continue
		}
		opened++

		if strings.Contains(filepath.Base(path), "zsh") {
			entries = append(entries, parseZshHistory(f)...)
		} else {
			entries = append(entries, parseBashHistory(f)...)
		}
		f.Close()
	}

	if opened == 0 {
		return nil, apperrors.NewCollectorError("shell", lastErr)
	}

	filtered := entries[:0]
	for _, e := range entries {
		if e.timestamp.After(since) {
			filtered = append(filtered, e)
		}
	}
	entries = filtered

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})
	if c.limit > 0 && len(entries) > c.limit {
		entries = entries[len(entries)-c.limit:]
	}

	seen := make(map[string]bool, len(entries))
	events := make([]event.Event, 0, len(entries))
	for _, e := range entries {
		key := strconv.FormatInt(e.timestamp.Unix(), 10) + "\x00" + e.command
		if seen[key] {
			continue
		}
		seen[key] = true

		res := redact.Command(e.command)
		if res.Skipped {
			continue
		}

		events = append(events, event.New(e.timestamp, "command", event.ShellPayload{
			Command:    res.Command,
			ExitCode:   0,
			DurationMs: e.durationMs,
		}, ""))
	}

	return events, nil
}

// parseZshHistory reads zsh EXTENDED_HISTORY entries. Lines that do not
// open a new entry continue the previous command (multi-line commands).
func parseZshHistory(r io.Reader) []historyEntry {
	var entries []historyEntry
	var current *historyEntry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := zshExtendedLine.FindStringSubmatch(line); m != nil {
			if current != nil {
				entries = append(entries, *current)
			}
			secs, _ := strconv.ParseInt(m[1], 10, 64)
			elapsed, _ := strconv.ParseInt(m[2], 10, 64)
			current = &historyEntry{
				timestamp:  time.Unix(secs, 0).UTC(),
				durationMs: elapsed * 1000,
				command:    strings.TrimSuffix(m[3], `\`),
			}
			continue
		}

		if current != nil {
			current.command += "\n" + strings.TrimSuffix(line, `\`)
		}
	}
	if current != nil {
		entries = append(entries, *current)
	}

	return entries
}

// parseBashHistory reads bash history. Only entries preceded by a
// HISTTIMEFORMAT "#<epoch>" marker carry a usable timestamp.
func parseBashHistory(r io.Reader) []historyEntry {
	var entries []historyEntry
	var pending *time.Time

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "#") {
			if secs, err := strconv.ParseInt(line[1:], 10, 64); err == nil {
				t := time.Unix(secs, 0).UTC()
				pending = &t
				continue
			}
		}

		if pending == nil || strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, historyEntry{timestamp: *pending, command: line})
		pending = nil
	}

	return entries
}
