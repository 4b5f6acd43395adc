// Package export renders analysis results into shareable formats:
// Markdown reports, Notion-flavored Markdown, RSS feeds of content
// ideas, indented JSON, and a natural-language summarizer prompt.
// Output is deterministic for a given result.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kevinreber/siphon/internal/analysis"
	"github.com/kevinreber/siphon/internal/monitoring"
)

// Format selects an export rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatRSS      Format = "rss"
	FormatNotion   Format = "notion"
)

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "rss", "xml":
		return FormatRSS, nil
	case "notion":
		return FormatNotion, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want md, json, rss, or notion)", s)
	}
}

// Extension returns the file extension for a format, dot included.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatRSS:
		return ".xml"
	default:
		return ".md"
	}
}

// Exporter renders analysis results.
type Exporter struct {
	logger *monitoring.Logger
}

// NewExporter creates an exporter. The logger may be nil.
func NewExporter(logger *monitoring.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export renders the result in the requested format.
func (e *Exporter) Export(result *analysis.AnalysisResult, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(result)
	case FormatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analysis result: %w", err)
		}
		return data, nil
	case FormatRSS:
		return renderRSS(result)
	case FormatNotion:
		return renderNotion(result)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// WriteFile exports the result to path, creating parent directories.
func (e *Exporter) WriteFile(result *analysis.AnalysisResult, format Format, path string) error {
	data, err := e.Export(result, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	if e.logger != nil {
		e.logger.ExportLogger(string(format), path, len(data))
	}
	return nil
}
