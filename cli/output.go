package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkgpush/pkgpush"
	"github.com/pkgpush/pkgpush/archive"
	"github.com/pkgpush/pkgpush/config"
	"github.com/pkgpush/pkgpush/history"
)

// Formatter formats command results for output.
type Formatter interface {
	FormatPush(w io.Writer, report *PushReport) error
	FormatInfo(w io.Writer, pkg string, info *pkgpush.PackageInfo) error
	FormatPack(w io.Writer, result *archive.BuildResult) error
	FormatHistory(w io.Writer, entries []history.Entry) error
	FormatConfig(w io.Writer, cfg *config.Config, showSecrets bool) error
	FormatError(w io.Writer, err error) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatPush formats a push report as human-readable text.
func (f *HumanFormatter) FormatPush(w io.Writer, report *PushReport) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Pushed: %s (%s)\n", report.Package, formatSize(report.Size))
		_, _ = fmt.Fprintf(w, "  File: %s\n", report.FileName)
		if report.SHA256 != "" {
			_, _ = fmt.Fprintf(w, "  SHA-256: %s\n", report.SHA256)
		}
		_, _ = fmt.Fprintf(w, "  URL: %s\n", report.URL)
	}
	if report.VerifyWarning != "" {
		_, _ = fmt.Fprintf(w, "Warning: package verification failed: %s\n", report.VerifyWarning)
	}
	return nil
}

// FormatInfo formats package metadata as human-readable text.
func (f *HumanFormatter) FormatInfo(w io.Writer, pkg string, info *pkgpush.PackageInfo) error {
	name := info.Name
	if name == "" {
		name = pkg
	}
	_, _ = fmt.Fprintf(w, "Package:   %s\n", name)
	if info.Config != nil {
		if info.Config.Type != "" {
			_, _ = fmt.Fprintf(w, "Type:      %s\n", info.Config.Type)
		}
		if len(info.Config.ArtifactIDs) > 0 {
			_, _ = fmt.Fprintf(w, "Artifacts: %d\n", len(info.Config.ArtifactIDs))
		}
	}
	if info.Links != nil && info.Links.WebView != "" {
		_, _ = fmt.Fprintf(w, "URL:       %s\n", info.Links.WebView)
	}
	return nil
}

// FormatPack formats an archive build result as human-readable text.
func (f *HumanFormatter) FormatPack(w io.Writer, result *archive.BuildResult) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Packed: %s (%s)\n", result.Path, formatSize(result.Size))
		_, _ = fmt.Fprintf(w, "  Package: %s\n", result.Name)
		_, _ = fmt.Fprintf(w, "  Files: %d\n", result.Files)
		_, _ = fmt.Fprintf(w, "  SHA-256: %s\n", result.SHA256)
	}
	return nil
}

// FormatHistory formats push history as human-readable text.
func (f *HumanFormatter) FormatHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No pushes recorded")
		return nil
	}

	// Calculate column widths
	maxPkgLen := 7 // "PACKAGE"
	for i := range entries {
		if len(entries[i].Package) > maxPkgLen {
			maxPkgLen = len(entries[i].Package)
		}
	}
	if maxPkgLen > 40 {
		maxPkgLen = 40
	}

	// Print header
	_, _ = fmt.Fprintf(w, "%-19s  %-*s  %6s  %10s  %s\n", "WHEN", maxPkgLen, "PACKAGE", "STATUS", "SIZE", "FILE")
	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		strings.Repeat("-", 19), strings.Repeat("-", maxPkgLen), strings.Repeat("-", 6), strings.Repeat("-", 10), strings.Repeat("-", 20))

	// Print entries
	for i := range entries {
		e := &entries[i]
		pkg := e.Package
		if len(pkg) > maxPkgLen {
			pkg = pkg[:maxPkgLen-3] + "..."
		}
		status := "-"
		if e.Status != 0 {
			status = strconv.Itoa(e.Status)
		}
		_, _ = fmt.Fprintf(w, "%-19s  %-*s  %6s  %10s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			maxPkgLen,
			pkg,
			status,
			formatSize(e.Size),
			e.FileName,
		)
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\n%d push(es)\n", len(entries))

	return nil
}

// FormatConfig formats the effective configuration as human-readable text.
func (f *HumanFormatter) FormatConfig(w io.Writer, cfg *config.Config, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Registry URL: %s\n", cfg.Registry.URL)
	_, _ = fmt.Fprintf(w, "API Key:      %s\n", maskSecret(cfg.Registry.Key, showSecrets))
	_, _ = fmt.Fprintf(w, "API Secret:   %s\n", maskSecret(cfg.Registry.Secret, showSecrets))
	state := "disabled"
	if cfg.History.Enabled {
		state = "enabled"
	}
	_, _ = fmt.Fprintf(w, "History:      %s\n", state)
	_, _ = fmt.Fprintf(w, "Log:          %s (%s)\n", cfg.Log.Level, cfg.Log.Format)
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatPush formats a push report as JSON.
func (f *JSONFormatter) FormatPush(w io.Writer, report *PushReport) error {
	return writeJSON(w, report)
}

// FormatInfo formats package metadata as JSON.
func (f *JSONFormatter) FormatInfo(w io.Writer, pkg string, info *pkgpush.PackageInfo) error {
	output := struct {
		Package string               `json:"package"`
		Info    *pkgpush.PackageInfo `json:"info,omitempty"`
	}{
		Package: pkg,
		Info:    info,
	}
	return writeJSON(w, output)
}

// FormatPack formats an archive build result as JSON.
func (f *JSONFormatter) FormatPack(w io.Writer, result *archive.BuildResult) error {
	return writeJSON(w, result)
}

// FormatHistory formats push history as JSON.
func (f *JSONFormatter) FormatHistory(w io.Writer, entries []history.Entry) error {
	output := struct {
		Pushes []history.Entry `json:"pushes"`
	}{
		Pushes: entries,
	}
	return writeJSON(w, output)
}

// FormatConfig formats the effective configuration as JSON.
func (f *JSONFormatter) FormatConfig(w io.Writer, cfg *config.Config, showSecrets bool) error {
	output := struct {
		RegistryURL    string `json:"registry_url"`
		APIKey         string `json:"api_key"`
		APISecret      string `json:"api_secret"`
		HistoryEnabled bool   `json:"history_enabled"`
		HistoryPath    string `json:"history_path,omitempty"`
		LogLevel       string `json:"log_level"`
		LogFormat      string `json:"log_format"`
	}{
		RegistryURL:    cfg.Registry.URL,
		HistoryEnabled: cfg.History.Enabled,
		HistoryPath:    cfg.History.Path,
		LogLevel:       cfg.Log.Level,
		LogFormat:      cfg.Log.Format,
	}

	if showSecrets {
		output.APIKey = cfg.Registry.Key
		output.APISecret = cfg.Registry.Secret
	} else {
		output.APIKey = maskSecret(cfg.Registry.Key, false)
		output.APISecret = maskSecret(cfg.Registry.Secret, false)
	}

	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
