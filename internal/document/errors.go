package document

import "errors"

var (
	// ErrEmptyCorpus means the source held no loadable documents.
	ErrEmptyCorpus = errors.New("empty corpus")

	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrPDFToolNotFound   = errors.New("pdftotext not found in PATH")
)
