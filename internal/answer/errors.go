package answer

import (
	"context"
	"errors"
	"fmt"

	"github.com/bull/legal-rag/internal/provider"
	"github.com/bull/legal-rag/internal/storage"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Stage names the answering step that failed.
type Stage string

const (
	StageEmbedding  Stage = "embedding"
	StageRetrieval  Stage = "retrieval"
	StageGeneration Stage = "generation"
)

// QueryError wraps a failure of one answering stage. No partial answer
// accompanies it.
type QueryError struct {
	Stage Stage
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Describe turns an answering error into a single user-facing message and a
// suggestion for what to do next.
func Describe(err error) (message, suggestion string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, ErrEmptyQuestion):
		return "The question is empty.",
			"Type a question about the indexed judgements."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "The request was cancelled before an answer was ready.",
			"Try again."
	case errors.Is(err, provider.ErrUnauthorized):
		return "The model provider rejected the configured credentials.",
			"Check the API key configuration (GOOGLE_API_KEY, EMBEDDING_API_KEY, GENERATION_API_KEY)."
	case errors.Is(err, provider.ErrRateLimited):
		return "The model provider is rate limiting requests.",
			"Wait a moment, then try again."
	case errors.Is(err, storage.ErrCollectionNotFound):
		return "The document index has not been built yet.",
			"Run ingestion first (legal-rag ingest), then ask again."
	case errors.Is(err, storage.ErrDimensionMismatch):
		return "The document index was built with a different embedding model.",
			"Check EMBEDDING_MODEL and EMBEDDING_DIMENSION, or re-run ingestion."
	case errors.Is(err, storage.ErrIndexUnavailable):
		return "The document index could not be reached.",
			"Check QDRANT_URL and QDRANT_API_KEY, then try again."
	case errors.Is(err, provider.ErrProvider):
		return "The model provider could not process the question.",
			"Try rephrasing your question, or try again later."
	}
	return "An unexpected error occurred while answering.",
		"Try rephrasing your question or check the configuration."
}
