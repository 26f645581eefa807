// Package mcp exposes legal question answering as Model Context Protocol tools.
package mcp

// AskInput defines the input parameters for the ask_legal_question tool.
type AskInput struct {
	// Question is the natural-language legal question.
	Question string `json:"question" jsonschema:"the legal question to answer from the indexed judgements"`
}

// AskOutput contains a grounded answer and the passages it was drawn from.
type AskOutput struct {
	// Answer is the model's answer, or the fallback sentence when the documents do not answer it.
	Answer string `json:"answer"`
	// Refused is true when the answer is the fallback sentence.
	Refused bool `json:"refused"`
	// Citations are the distinct source/page pairs of the retrieved passages, best first.
	Citations []CitationOutput `json:"citations"`
	// Passages are the retrieved passages in rank order.
	Passages []Passage `json:"passages"`
}

// CitationOutput identifies a page of a source document.
type CitationOutput struct {
	Source string `json:"source"`
	// Page is "unknown" for sources without pagination.
	Page string `json:"page"`
}

// SearchInput defines the input parameters for the search_passages tool.
type SearchInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"the semantic search query"`
	// MaxResults is the maximum number of passages to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of passages to return (1-20, default: the configured top-k)"`
}

// SearchOutput contains ranked passages.
type SearchOutput struct {
	Results []Passage `json:"results"`
	// Message provides informational context (e.g., "No matching passages found").
	Message string `json:"message,omitempty"`
}

// Passage is one retrieved chunk.
type Passage struct {
	// Rank is 1-based for display.
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
	Page   string  `json:"page"`
	Text   string  `json:"text"`
}

// StatusInput defines the input parameters for the get_index_status tool.
// This tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the index and the models serving it.
type StatusOutput struct {
	Collection      string `json:"collection"`
	Healthy         bool   `json:"healthy"`
	Exists          bool   `json:"exists"`
	Dimension       int    `json:"dimension,omitempty"`
	Chunks          uint64 `json:"chunks"`
	IngestionState  string `json:"ingestion_state,omitempty"`
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
	TopK            int    `json:"top_k"`
	// Message explains an unhealthy or missing index.
	Message string `json:"message,omitempty"`
}
