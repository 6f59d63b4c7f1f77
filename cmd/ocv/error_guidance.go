package main

import (
	"errors"

	"ocv/internal/container"
	"ocv/internal/extract"
	"ocv/internal/persist"
	"ocv/internal/session"
	"ocv/internal/workspace"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	switch {
	case errors.Is(err, session.ErrNoWorkspace):
		lines = append(lines,
			"hint: start an empty CV with: ocv new",
			"hint: or open an existing file with: ocv open <file.ocv>",
		)
	case errors.Is(err, container.ErrMalformedContainer):
		lines = append(lines, "hint: the file is not a readable .ocv container; check that it is a complete export.")
	case errors.Is(err, workspace.ErrAttachmentUnavailable):
		lines = append(lines, "hint: the archive this CV came from did not include these bytes; attach the file again with: ocv attach add <path>")
	case errors.Is(err, workspace.ErrAmbiguousFingerprint):
		lines = append(lines, "hint: give more digits of the fingerprint.")
	case errors.Is(err, workspace.ErrAttachmentNotFound):
		lines = append(lines, "hint: list attachments with: ocv attach list")
	case errors.Is(err, extract.ErrUnsupported):
		lines = append(lines, "hint: text can be extracted from PDF and plain-text attachments only.")
	}

	if errors.Is(err, persist.ErrPersistence) {
		if errors.Is(err, persist.ErrCorruptSnapshot) {
			lines = append(lines, "hint: discard the saved workspace with: ocv close --yes")
		} else {
			lines = append(lines, "hint: check that the session database (--db, OCV_DB or db_path) is writable.")
		}
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
