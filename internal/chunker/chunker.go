// Package chunker splits documents into bounded, overlapping character windows.
package chunker

import (
	"errors"
	"fmt"

	"github.com/bull/legal-rag/internal/document"
)

const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 2000

	// DefaultChunkOverlap is the number of characters shared with the previous chunk.
	DefaultChunkOverlap = 200
)

// ErrInvalidWindow is returned when chunk size and overlap cannot produce progress.
var ErrInvalidWindow = errors.New("chunk overlap must be non-negative and smaller than chunk size")

// Chunk is a contiguous span of a document's text.
type Chunk struct {
	Text       string
	SourceID   string
	Page       int // document.UnknownPage when the source has no pagination
	StartIndex int // Character offset of the span within the document text
}

// Splitter holds a chunk window configuration.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// New creates a Splitter. It fails when the options describe an invalid window.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := validate(s.chunkSize, s.overlap); err != nil {
		return nil, err
	}
	return s, nil
}

// ChunkSize returns the configured maximum chunk length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split chunks docs with the splitter's window.
func (s *Splitter) Split(docs []document.Document) []Chunk {
	chunks, _ := Split(docs, s.chunkSize, s.overlap)
	return chunks
}

// Split walks every document producing windows of at most maxLen characters.
// Each window after the first starts overlap characters before the previous one ended,
// so dropping the first overlap characters of every chunk but the first reassembles the text.
// Documents with empty text produce no chunks.
func Split(docs []document.Document, maxLen, overlap int) ([]Chunk, error) {
	if err := validate(maxLen, overlap); err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, doc := range docs {
		chunks = appendDocument(chunks, doc, maxLen, overlap)
	}
	return chunks, nil
}

func appendDocument(chunks []Chunk, doc document.Document, maxLen, overlap int) []Chunk {
	runes := []rune(doc.Text)
	n := len(runes)

	for start := 0; start < n; {
		end := min(start+maxLen, n)
		chunks = append(chunks, Chunk{
			Text:       string(runes[start:end]),
			SourceID:   doc.SourceID,
			Page:       doc.PageAt(start),
			StartIndex: start,
		})
		if end == n {
			break
		}
		// end-start == maxLen > overlap here, so start strictly increases
		start = end - overlap
	}
	return chunks
}

func validate(maxLen, overlap int) error {
	if maxLen <= 0 || overlap < 0 || overlap >= maxLen {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidWindow, maxLen, overlap)
	}
	return nil
}
