package collect

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/event"
)

const (
	// ASCII record and unit separators keep git log output parseable no
	// matter what a commit subject contains.
	gitRecordSep = "\x1e"
	gitFieldSep  = "\x1f"
)

// GitCollector imports commit history from configured repositories via
// the git binary.
type GitCollector struct {
	repos []string
}

// NewGitCollector creates a git log collector. An empty repo list means
// the working directory's repository.
func NewGitCollector(repos []string) *GitCollector {
	if len(repos) == 0 {
		repos = []string{"."}
	}
	return &GitCollector{repos: repos}
}

// Name implements Collector.
func (c *GitCollector) Name() string { return "git" }

// Collect runs git log in each configured repository. A missing git
// binary makes the whole source unavailable; a single bad repository is
// logged and skipped.
func (c *GitCollector) Collect(ctx context.Context, since time.Time) ([]event.Event, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, apperrors.NewCollectorError("git", err)
	}

	var events []event.Event
	for _, repo := range c.repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		repoEvents, err := c.collectRepo(ctx, repo, since)
		if err != nil {
			slog.Warn("Skipping repository", "repo", repo, "error", err)
			continue
		}
		events = append(events, repoEvents...)
	}

	return events, nil
}

func (c *GitCollector) collectRepo(ctx context.Context, repo string, since time.Time) ([]event.Event, error) {
	branchOut, err := exec.CommandContext(ctx, "git", "-C", repo,
		"rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to resolve branch in %s", repo)
	}
	branch := strings.TrimSpace(string(branchOut))

	logOut, err := exec.CommandContext(ctx, "git", "-C", repo, "log",
		"--since="+since.UTC().Format(time.RFC3339),
		"--format="+gitRecordSep+"%H"+gitFieldSep+"%aI"+gitFieldSep+"%s",
		"--name-only").Output()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read log in %s", repo)
	}

	repoName := repoBaseName(repo)
	return parseGitLog(string(logOut), repoName, branch), nil
}

// parseGitLog turns separator-delimited git log output into commit
// events. Each record is a header line (hash, author date, subject)
// followed by the changed file paths from --name-only.
func parseGitLog(output, repoName, branch string) []event.Event {
	var events []event.Event

	for _, record := range strings.Split(output, gitRecordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		lines := strings.Split(record, "\n")
		fields := strings.Split(lines[0], gitFieldSep)
		if len(fields) != 3 {
			continue
		}

		ts, err := time.Parse(time.RFC3339, fields[1])
		if err != nil {
			continue
		}

		filesChanged := 0
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				filesChanged++
			}
		}

		events = append(events, event.New(ts, "commit", event.GitPayload{
			Action:       "commit",
			Repository:   repoName,
			Branch:       branch,
			CommitHash:   fields[0],
			Message:      fields[2],
			FilesChanged: filesChanged,
		}, repoName))
	}

	return events
}

func repoBaseName(repo string) string {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return filepath.Base(repo)
	}
	return filepath.Base(abs)
}
