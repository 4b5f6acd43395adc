package server

// Request bodies for the ingestion endpoints. Hooks and editor plugins
// post these; fields mirror the payload variants in the event package
// minus anything the daemon derives itself (IDs, timestamps, project).

// ShellEventRequest is posted by the shell hook after every command.
type ShellEventRequest struct {
	Command    string `json:"command" binding:"required"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	Cwd        string `json:"cwd"`
	GitBranch  string `json:"git_branch"`
}

// EditorEventRequest is posted by editor plugins on actions like save.
type EditorEventRequest struct {
	Action       string `json:"action" binding:"required"`
	FilePath     string `json:"file_path" binding:"required"`
	Language     string `json:"language"`
	LinesChanged int    `json:"lines_changed"`
}

// FilesystemEventRequest is posted by external file watchers.
type FilesystemEventRequest struct {
	Action      string `json:"action" binding:"required"`
	FilePath    string `json:"file_path" binding:"required"`
	FileType    string `json:"file_type"`
	IsDirectory bool   `json:"is_directory"`
}

// GitEventRequest is posted by git hooks (post-commit, post-checkout).
type GitEventRequest struct {
	Action       string `json:"action" binding:"required"`
	Repository   string `json:"repository"`
	Branch       string `json:"branch"`
	CommitHash   string `json:"commit_hash"`
	Message      string `json:"message"`
	FilesChanged int    `json:"files_changed"`
}

// BrowserEventRequest is posted by the browser extension per page visit.
type BrowserEventRequest struct {
	URL              string `json:"url" binding:"required"`
	Title            string `json:"title"`
	Category         string `json:"category"`
	VisitDurationSec int64  `json:"visit_duration_seconds"`
}

// CleanupRequest controls the retention cleanup endpoint.
type CleanupRequest struct {
	RetentionDays int  `json:"retention_days"`
	Vacuum        bool `json:"vacuum"`
}
