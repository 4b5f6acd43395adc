package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kevinreber/siphon/internal/dedup"
	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/event"
	"github.com/kevinreber/siphon/internal/project"
	"github.com/kevinreber/siphon/internal/redact"
)

// Ingestion always answers 201 on the happy path, including when nothing
// was stored: shell hooks fire on every prompt and treat any 2xx as
// success, so redaction skips and duplicate drops must not look like
// failures to them.

func (s *Server) handleShellEvent(c *gin.Context) {
	var req ShellEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.rejectInvalid(c, "invalid shell event", err)
		return
	}

	scrubbed := redact.Command(req.Command)
	if scrubbed.Skipped {
		s.metrics.IncrementCommandSkipped()
		s.logger.SystemLogger("command_skipped", "sensitive command not stored")
		c.JSON(http.StatusCreated, gin.H{"id": nil, "skipped": true})
		return
	}
	if scrubbed.Redacted {
		s.metrics.IncrementCommandRedacted()
	}

	if !s.dedup.ShouldProcess(dedup.ShellKey(scrubbed.Command, req.ExitCode)) {
		s.dropDuplicate(c)
		return
	}
	s.recordActivity(string(event.SourceShell))

	eventType := "command"
	if req.ExitCode != 0 {
		eventType = "command_failed"
	}

	s.storeEvent(c, event.New(time.Now(), eventType, event.ShellPayload{
		Command:    scrubbed.Command,
		ExitCode:   req.ExitCode,
		DurationMs: req.DurationMs,
		Cwd:        req.Cwd,
		GitBranch:  req.GitBranch,
	}, project.Detect(req.Cwd)))
}

func (s *Server) handleEditorEvent(c *gin.Context) {
	var req EditorEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.rejectInvalid(c, "invalid editor event", err)
		return
	}

	if !s.dedup.ShouldProcess(dedup.EditorKey(req.Action, req.FilePath)) {
		s.dropDuplicate(c)
		return
	}
	s.recordActivity(string(event.SourceEditor))

	s.storeEvent(c, event.New(time.Now(), req.Action, event.EditorPayload{
		Action:       req.Action,
		FilePath:     req.FilePath,
		Language:     req.Language,
		LinesChanged: req.LinesChanged,
	}, project.Detect(req.FilePath)))
}

func (s *Server) handleFilesystemEvent(c *gin.Context) {
	var req FilesystemEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.rejectInvalid(c, "invalid filesystem event", err)
		return
	}

	if !s.dedup.ShouldProcess(dedup.FileKey(req.Action, req.FilePath)) {
		s.dropDuplicate(c)
		return
	}
	s.recordActivity(string(event.SourceFilesystem))

	s.storeEvent(c, event.New(time.Now(), req.Action, event.FilePayload{
		Action:      req.Action,
		FilePath:    req.FilePath,
		FileType:    req.FileType,
		IsDirectory: req.IsDirectory,
	}, project.Detect(req.FilePath)))
}

func (s *Server) handleGitEvent(c *gin.Context) {
	var req GitEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.rejectInvalid(c, "invalid git event", err)
		return
	}

	if !s.dedup.ShouldProcess(dedup.GitKey(req.Action, req.Repository, req.CommitHash)) {
		s.dropDuplicate(c)
		return
	}
	s.recordActivity(string(event.SourceGit))

	s.storeEvent(c, event.New(time.Now(), req.Action, event.GitPayload{
		Action:       req.Action,
		Repository:   req.Repository,
		Branch:       req.Branch,
		CommitHash:   req.CommitHash,
		Message:      req.Message,
		FilesChanged: req.FilesChanged,
	}, project.Detect(req.Repository)))
}

func (s *Server) handleBrowserEvent(c *gin.Context) {
	var req BrowserEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.rejectInvalid(c, "invalid browser event", err)
		return
	}

	// URLs and titles can carry tokens in query strings; scrub both the
	// same way shell commands are scrubbed.
	url := redact.Text(req.URL).Command
	title := redact.Text(req.Title).Command

	if !s.dedup.ShouldProcess(dedup.BrowserKey(url)) {
		s.dropDuplicate(c)
		return
	}
	s.recordActivity(string(event.SourceBrowser))

	s.storeEvent(c, event.New(time.Now(), "page_visit", event.BrowserPayload{
		URL:              url,
		Title:            title,
		Domain:           event.DomainOf(url),
		Category:         req.Category,
		VisitDurationSec: req.VisitDurationSec,
	}, ""))
}

func (s *Server) storeEvent(c *gin.Context, e event.Event) {
	if err := s.store.InsertEvent(e); err != nil {
		appErr := apperrors.NewStorageError("failed to store event", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	s.metrics.RecordEventStored(string(e.Source))
	s.logger.IngestLogger(string(e.Source), e.EventType, e.Project)
	s.cache.Clear()

	c.JSON(http.StatusCreated, gin.H{"id": e.ID})
}

func (s *Server) dropDuplicate(c *gin.Context) {
	s.metrics.IncrementDuplicateSuppressed()
	c.JSON(http.StatusCreated, gin.H{"id": nil, "duplicate": true})
}

func (s *Server) rejectInvalid(c *gin.Context, msg string, err error) {
	appErr := apperrors.NewValidationError(msg, err.Error())
	c.JSON(appErr.HTTPStatus, appErr)
}

// recordActivity feeds the idle detector and logs transitions back out of
// idle, which mark the start of a fresh working block.
func (s *Server) recordActivity(source string) {
	if tr := s.idle.RecordActivity(source); tr != nil {
		s.logger.SystemLogger("activity_resumed",
			fmt.Sprintf("%s -> %s after %ds", tr.Previous, tr.New, tr.IdleDurationSecs))
	}
}
