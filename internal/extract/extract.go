// Package extract defines the text-extraction boundary consumed once per
// document while it is in the processing state. The core only depends on the
// Extractor interface; the bundled implementation shells out to pdftotext
// (poppler-utils), which keeps the binary free of cgo PDF parsers.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrExtractionFailed indicates corrupt or unsupported input. The underlying
// cause is wrapped for logging; callers should branch with errors.Is.
var ErrExtractionFailed = errors.New("extract: failed to extract text")

// Extraction is the result of a successful text extraction.
type Extraction struct {
	Text      string
	PageCount int
}

// Extractor converts raw uploaded bytes into plain text plus a page count.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Extraction, error)
}

// PDFToText extracts text by invoking the pdftotext binary.
type PDFToText struct {
	// Binary overrides the executable name; defaults to "pdftotext".
	Binary string
}

// Extract writes data to a scratch file, runs pdftotext -layout on it, and
// returns the extracted text. pdftotext emits a form feed per page, which is
// how the page count is recovered.
func (p *PDFToText) Extract(ctx context.Context, data []byte) (Extraction, error) {
	if len(data) == 0 {
		return Extraction{}, fmt.Errorf("%w: empty upload", ErrExtractionFailed)
	}

	bin := p.Binary
	if bin == "" {
		bin = "pdftotext"
	}

	dir, err := os.MkdirTemp("", "docchat-extract-*")
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", "-enc", "UTF-8", src, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Extraction{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Extraction{}, fmt.Errorf("%w: %s", ErrExtractionFailed, msg)
	}

	raw := stdout.String()
	pages := strings.Count(raw, "\f")
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\f", "\n"))
	return Extraction{Text: text, PageCount: pages}, nil
}
