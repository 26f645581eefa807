package document

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// pageSeparator joins page texts; it is counted as part of the preceding page.
const pageSeparator = "\n\n"

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFParser extracts text page by page using poppler's pdftotext.
// pdftotext emits a form feed after every page, which gives us page boundaries.
type PDFParser struct {
	runner CommandRunner
}

// NewPDFParser creates a parser that runs the pdftotext binary.
func NewPDFParser() *PDFParser {
	return &PDFParser{runner: execRunner{}}
}

// NewPDFParserWithRunner creates a parser with a custom command runner.
func NewPDFParserWithRunner(runner CommandRunner) *PDFParser {
	return &PDFParser{runner: runner}
}

// InstallInstructions tells operators how to get pdftotext.
func InstallInstructions() string {
	return "install poppler: brew install poppler (macOS) or apt install poppler-utils (Debian/Ubuntu)"
}

// Parse implements Parser.
func (p *PDFParser) Parse(ctx context.Context, sourceID string, data []byte) (*Document, error) {
	tmp, err := os.CreateTemp("", "legal-rag-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := p.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", sourceID, err)
	}

	return paginate(sourceID, string(out)), nil
}

// paginate splits pdftotext output on form feeds and records where each page starts.
func paginate(sourceID, raw string) *Document {
	pages := strings.Split(normaliseNewlines(raw), "\f")
	// pdftotext terminates the last page with a form feed as well
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}

	doc := &Document{SourceID: sourceID}
	var b strings.Builder
	offset := 0
	for i, page := range pages {
		if i > 0 {
			b.WriteString(pageSeparator)
			offset += utf8.RuneCountInString(pageSeparator)
		}
		doc.Pages = append(doc.Pages, PageBoundary{Number: i + 1, Offset: offset})
		b.WriteString(page)
		offset += utf8.RuneCountInString(page)
	}
	doc.Text = b.String()

	if strings.TrimSpace(doc.Text) == "" {
		doc.Text = ""
		doc.Pages = nil
	}
	return doc
}
