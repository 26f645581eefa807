package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/document"
	"github.com/bull/legal-rag/internal/storage"
)

const maxSearchResults = 20

// makeAskHandler creates the ask_legal_question tool handler.
// Failures are reported as a tool error carrying a message and a suggestion.
func makeAskHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		ans, err := cfg.Answerer.Answer(ctx, input.Question)
		if err != nil {
			cfg.Logger.Warn("ask_legal_question failed", "error", err)
			return nil, AskOutput{}, userError(err)
		}

		citations := make([]CitationOutput, len(ans.Citations))
		for i, c := range ans.Citations {
			citations[i] = CitationOutput{Source: c.SourceID, Page: document.PageLabel(c.Page)}
		}

		return nil, AskOutput{
			Answer:    ans.Text,
			Refused:   ans.Refused,
			Citations: citations,
			Passages:  toPassages(ans.Passages),
		}, nil
	}
}

// makeSearchHandler creates the search_passages tool handler.
func makeSearchHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		k := input.MaxResults
		if k <= 0 {
			k = cfg.TopK
		}
		k = min(k, maxSearchResults)

		chunks, err := cfg.Answerer.Retrieve(ctx, input.Query, k)
		if err != nil {
			cfg.Logger.Warn("search_passages failed", "error", err)
			return nil, SearchOutput{}, userError(err)
		}

		if len(chunks) == 0 {
			return nil, SearchOutput{
				Results: []Passage{},
				Message: "No matching passages found. Has the corpus been ingested?",
			}, nil
		}
		return nil, SearchOutput{Results: toPassages(chunks)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// An unreachable or missing index is reported in the output, not as an error.
func makeStatusHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		out := StatusOutput{
			Collection:      cfg.Collection,
			EmbeddingModel:  cfg.EmbeddingModel,
			GenerationModel: cfg.GenerationModel,
			TopK:            cfg.TopK,
		}
		if cfg.Pipeline != nil {
			out.IngestionState = string(cfg.Pipeline.State())
		}

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := cfg.Index.Health(ctx); err != nil {
			out.Message = fmt.Sprintf("Vector index unreachable: %v", err)
			return nil, out, nil
		}
		out.Healthy = true

		info, err := cfg.Index.Info(ctx, cfg.Collection)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				out.Message = "Collection does not exist yet. Run ingestion first."
				return nil, out, nil
			}
			return nil, StatusOutput{}, fmt.Errorf("index_error: failed to get collection info: %w", err)
		}
		out.Exists = true
		out.Dimension = info.Dimension

		count, err := cfg.Index.Count(ctx, cfg.Collection)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index_error: failed to count records: %w", err)
		}
		out.Chunks = count
		return nil, out, nil
	}
}

func toPassages(chunks []storage.RetrievedChunk) []Passage {
	passages := make([]Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = Passage{
			Rank:   c.Rank + 1,
			Score:  c.Score,
			Source: c.Metadata.SourceID,
			Page:   document.PageLabel(c.Metadata.Page),
			Text:   c.Text,
		}
	}
	return passages
}

// userError converts an answering failure into the message shown to the client.
func userError(err error) error {
	message, suggestion := answer.Describe(err)
	return fmt.Errorf("%s %s", message, suggestion)
}
