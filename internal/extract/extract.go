// Package extract turns attachment payloads into plain text and sniffs
// their media types.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"ocv/internal/models"
)

const mimePDF = "application/pdf"

// ErrUnsupported is returned for payloads with no text representation.
var ErrUnsupported = errors.New("unsupported media type")

// Text extracts readable text from data. The declared media type decides
// the extractor; a missing or generic type is replaced by a sniffed one.
func Text(ctx context.Context, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := normalizeMediaType(mediaType)
	if normalized == "" || normalized == models.DefaultMediaType {
		normalized = Detect(data)
	}

	switch {
	case normalized == mimePDF:
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf: %w", err)
		}
		return text, nil
	case strings.HasPrefix(normalized, "text/"), normalized == "application/json":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupported, normalized)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, normalized)
	}
}

// Detect sniffs the media type of data, without parameters. Empty input is
// the default media type.
func Detect(data []byte) string {
	if len(data) == 0 {
		return models.DefaultMediaType
	}
	return normalizeMediaType(mimetype.Detect(data).String())
}

// MediaType picks the type to record for an attachment: declared wins,
// otherwise the sniffed type.
func MediaType(declared string, data []byte) string {
	if normalized := normalizeMediaType(declared); normalized != "" {
		return normalized
	}
	return Detect(data)
}

// extractPDF reads the text layer of a PDF. The pdf package panics on
// malformed object syntax, so panics are turned into errors here.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func normalizeMediaType(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}
