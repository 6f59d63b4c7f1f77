package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ocv/internal/fingerprint"
	"ocv/internal/format"
	"ocv/internal/models"
	"ocv/internal/workspace"
)

var (
	outputFormatter format.Formatter = format.JSONFormatter{}
	yamlFormatter   format.Formatter = format.YAMLFormatter{}
)

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writeYAML(payload any) error {
	return yamlFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

// workspaceSummary is the machine-readable view of `ocv info`.
type workspaceSummary struct {
	Name            string                    `json:"name"`
	Version         int                       `json:"version"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	Attachments     int                       `json:"attachments"`
	AttachmentBytes int64                     `json:"attachment_bytes"`
	Missing         []fingerprint.Fingerprint `json:"missing,omitempty"`
	Orphans         []fingerprint.Fingerprint `json:"orphans,omitempty"`
}

func summarizeWorkspace(ws *workspace.Workspace) workspaceSummary {
	var total int64
	for _, record := range ws.Manifest.Files {
		total += record.Size
	}
	return workspaceSummary{
		Name:            ws.CV.Name,
		Version:         ws.Manifest.Version,
		CreatedAt:       ws.Manifest.CreatedAt,
		UpdatedAt:       ws.Manifest.UpdatedAt,
		Attachments:     len(ws.Manifest.Files),
		AttachmentBytes: total,
		Missing:         ws.MissingAttachments(),
		Orphans:         ws.OrphanBlobs(),
	}
}

func writeWorkspaceSummary(summary workspaceSummary) error {
	lines := []string{
		fmt.Sprintf("name: %s", chooseFirst(summary.Name, "(unnamed)")),
		fmt.Sprintf("version: %d", summary.Version),
		fmt.Sprintf("created_at: %s", formatTime(summary.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(summary.UpdatedAt)),
		fmt.Sprintf("attachments: %d (%s)", summary.Attachments, formatBytes(summary.AttachmentBytes)),
	}
	for _, fp := range summary.Missing {
		lines = append(lines, fmt.Sprintf("unavailable: %s", fp.Short()))
	}
	if len(summary.Orphans) > 0 {
		lines = append(lines, fmt.Sprintf("unreferenced payloads: %d", len(summary.Orphans)))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeCVDetail(cv models.CV) error {
	lines := []string{}
	appendField := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", label, value))
		}
	}
	appendField("name", cv.Name)
	appendField("email", cv.Email)
	appendField("phone", cv.Phone)
	appendField("location", cv.Location)
	appendField("summary", cv.Summary)
	if len(cv.Skills) > 0 {
		lines = append(lines, fmt.Sprintf("skills: %s", strings.Join(cv.Skills, ", ")))
	}

	if len(cv.Experience) > 0 {
		lines = append(lines, "experience:")
		for i, e := range cv.Experience {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, joinNonEmpty(" @ ", e.Title, e.Company)+formatPeriod(e.From, e.To)))
			if e.Description != "" {
				lines = append(lines, fmt.Sprintf("     %s", e.Description))
			}
		}
	}
	if len(cv.Education) > 0 {
		lines = append(lines, "education:")
		for i, e := range cv.Education {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, joinNonEmpty(", ", e.Degree, e.Institution)+formatPeriod(e.From, e.To)))
		}
	}
	if len(cv.Courses) > 0 {
		lines = append(lines, "courses:")
		for i, c := range cv.Courses {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, joinNonEmpty(" | ", c.Title, c.Provider, c.Date, c.URL)))
		}
	}
	if len(cv.Certificates) > 0 {
		lines = append(lines, "certificates:")
		for i, c := range cv.Certificates {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, joinNonEmpty(" | ", c.Title, c.Issuer, c.Date, c.URL)))
		}
	}

	if len(lines) == 0 {
		return writePlain("(empty CV)\n")
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatAttachmentLine(status workspace.AttachmentStatus) string {
	record := status.Record
	line := fmt.Sprintf("%s  %8s  %-24s %s", record.Hash.Short(), formatBytes(record.Size), record.MediaType, record.OriginalName)
	if !status.Available {
		line += "  [unavailable]"
	}
	return line
}

func formatPeriod(from, to string) string {
	if from == "" && to == "" {
		return ""
	}
	return fmt.Sprintf(" (%s - %s)", from, chooseFirst(to, "present"))
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return strings.Join(out, sep)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func chooseFirst(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitCommaList(values ...string) []string {
	out := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}
