// Package document loads source documents into plain text with optional page boundaries.
package document

import (
	"context"
	"sort"
	"strconv"
)

// UnknownPage is the page number reported when a document carries no pagination.
const UnknownPage = 0

// Document is one loaded source file. It is immutable once returned by a Source.
type Document struct {
	SourceID string         // Stable identifier, typically the path relative to the source root
	Text     string         // Full text content
	Pages    []PageBoundary // Sorted by Offset; empty when the format has no pagination
}

// PageBoundary marks where a page starts inside Document.Text.
// Offset counts characters (Unicode code points), not bytes.
type PageBoundary struct {
	Number int
	Offset int
}

// Source yields the documents of a corpus.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
}

// PageAt returns the number of the page containing the character offset,
// or UnknownPage when the document is not paginated.
func (d Document) PageAt(offset int) int {
	if len(d.Pages) == 0 {
		return UnknownPage
	}
	i := sort.Search(len(d.Pages), func(i int) bool {
		return d.Pages[i].Offset > offset
	})
	if i == 0 {
		return UnknownPage
	}
	return d.Pages[i-1].Number
}

// PageLabel formats a page number for display.
func PageLabel(page int) string {
	if page == UnknownPage {
		return "unknown"
	}
	return strconv.Itoa(page)
}
