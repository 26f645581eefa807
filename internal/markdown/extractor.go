// Package markdown converts markdown sources into plain text for chunking.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Extractor strips markdown syntax while keeping block structure as blank lines.
type Extractor struct {
	parser goldmark.Markdown
}

// NewExtractor creates a new extractor configured with the default goldmark parser.
func NewExtractor() *Extractor {
	return &Extractor{
		parser: goldmark.New(),
	}
}

// Extract parses source and returns its readable text.
// Headings and paragraphs are separated by a blank line, list items by a newline.
// Code blocks are kept verbatim since statutes and contracts are often quoted that way.
func (e *Extractor) Extract(source []byte) string {
	doc := e.parser.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil

		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
			return ast.WalkContinue, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(source))
				}
				endBlock(&buf, 2)
			}
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		if !entering && n.Type() == ast.TypeBlock {
			switch n.Kind() {
			case ast.KindHeading, ast.KindParagraph, ast.KindList, ast.KindBlockquote, ast.KindThematicBreak:
				endBlock(&buf, 2)
			case ast.KindDocument:
			default:
				endBlock(&buf, 1)
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

// endBlock makes sure buf ends with at least n newlines.
func endBlock(buf *bytes.Buffer, n int) {
	if buf.Len() == 0 {
		return
	}
	b := buf.Bytes()
	have := 0
	for i := len(b) - 1; i >= 0 && b[i] == '\n' && have < n; i-- {
		have++
	}
	for ; have < n; have++ {
		buf.WriteByte('\n')
	}
}
