package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bull/legal-rag/internal/markdown"
)

// Parser turns raw file bytes into a Document.
type Parser interface {
	Parse(ctx context.Context, sourceID string, data []byte) (*Document, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, sourceID string, data []byte) (*Document, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, sourceID string, data []byte) (*Document, error) {
	return f(ctx, sourceID, data)
}

// Parsers maps lower-case file extensions (".pdf") to parsers.
type Parsers map[string]Parser

// DefaultParsers returns parsers for plain text, markdown and PDF.
func DefaultParsers() Parsers {
	return Parsers{
		".txt": ParserFunc(parseText),
		".md":  NewMarkdownParser(),
		".pdf": NewPDFParser(),
	}
}

// For returns the parser registered for the extension of name.
func (p Parsers) For(name string) (Parser, bool) {
	parser, ok := p[strings.ToLower(filepath.Ext(name))]
	return parser, ok
}

// Parse parses data with the parser registered for the extension of sourceID.
func (p Parsers) Parse(ctx context.Context, sourceID string, data []byte) (*Document, error) {
	parser, ok := p.For(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, sourceID)
	}
	return parser.Parse(ctx, sourceID, data)
}

func parseText(_ context.Context, sourceID string, data []byte) (*Document, error) {
	return &Document{
		SourceID: sourceID,
		Text:     normaliseNewlines(string(data)),
	}, nil
}

// MarkdownParser extracts plain text from markdown files.
type MarkdownParser struct {
	extractor *markdown.Extractor
}

// NewMarkdownParser creates a markdown parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{extractor: markdown.NewExtractor()}
}

// Parse implements Parser.
func (p *MarkdownParser) Parse(_ context.Context, sourceID string, data []byte) (*Document, error) {
	return &Document{
		SourceID: sourceID,
		Text:     p.extractor.Extract([]byte(normaliseNewlines(string(data)))),
	}, nil
}

func normaliseNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
