// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/util"
)

// ErrEmptyChat is returned when exporting a chat without messages.
var ErrEmptyChat = errors.New("chat has no messages")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for chat exporters.
type Exporter interface {
	// Export converts a chat to the target format and returns the content.
	Export(chat *storage.ChatFile) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds a front matter block and per-message model names.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps when they are known.
	IncludeTimestamps bool

	// Now stamps the export. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// ForFormat returns the exporter for a format name ("markdown", "md" or
// "json").
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (use markdown or json)", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a chat with exporter and writes it to OutputDir.
// Returns the output file path.
func ExportToFile(chat *storage.ChatFile, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(chat)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("%s_%s%s",
		exportStem(chat.Title),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// The file was still written.
			slog.Warn("could not open exported file", "path", outputPath, "error", err)
		}
	}

	return outputPath, nil
}

// ExportMarkdown exports to Markdown format.
func ExportMarkdown(chat *storage.ChatFile, opts *Options) (string, error) {
	return ExportToFile(chat, NewMarkdownExporter(opts), opts)
}

// ExportJSON exports to JSON format.
func ExportJSON(chat *storage.ChatFile, opts *Options) (string, error) {
	return ExportToFile(chat, NewJSONExporter(opts), opts)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// exportStem derives a short shell-friendly file stem from a chat title.
func exportStem(title string) string {
	stem := util.TruncateRunesNoEllipsis(storage.SanitizeFilename(title), 50)
	stem = strings.Join(strings.FieldsFunc(stem, func(r rune) bool {
		return r == ' ' || r == '_'
	}), "_")
	if stem == "" {
		return "chat"
	}
	return stem
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
