package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/indexer"
	"github.com/bull/legal-rag/internal/storage"
)

// Answerer answers and retrieves.
type Answerer interface {
	Answer(ctx context.Context, question string) (*answer.Answer, error)
	Retrieve(ctx context.Context, question string, k int) ([]storage.RetrievedChunk, error)
}

// StateReader reports the state of an ingestion pipeline.
type StateReader interface {
	State() indexer.State
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	cfg    *Config
}

// Config holds server dependencies.
type Config struct {
	Answerer        Answerer
	Index           storage.Index
	Collection      string
	TopK            int
	EmbeddingModel  string
	GenerationModel string
	Pipeline        StateReader // optional
	Version         string
	Logger          *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = answer.DefaultTopK
	}
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "legal-rag",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_legal_question",
		Description: "Answer a legal question using only the indexed Indian legal judgements. Returns the answer with source and page citations and the supporting passages.",
	}, makeAskHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_passages",
		Description: "Semantically search the indexed judgements and return ranked passages with scores, sources and pages, without generating an answer.",
	}, makeSearchHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the status of the judgement index: health, chunk count, vector dimension, ingestion state and configured models.",
	}, makeStatusHandler(cfg))

	return &Server{server: server, cfg: cfg}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
