package answer

import (
	"fmt"
	"strings"

	"github.com/bull/legal-rag/internal/document"
	"github.com/bull/legal-rag/internal/storage"
)

// FallbackAnswer is what the model is told to say when the context does not answer the question.
const FallbackAnswer = "Based on the provided documents, I cannot find an answer to this question."

const contextSeparator = "\n\n---\n\n"

const promptTemplate = `You are a professional legal research assistant AI. Your purpose is to provide precise, factual, and objective answers based *only* on the legal document excerpts provided to you as context.

GUIDELINES:
- Synthesize a comprehensive answer from the provided context. Do not add any information that is not explicitly present in the text.
- If the context does not contain the answer, you must state: "%s"
- After your answer, you must cite the sources you used. List each source on a new line.

CONTEXT:
%s

QUESTION:
%s

ANSWER:
`

// BuildContext concatenates passages in rank order, each headed with its source and page.
// Overlapping text between adjacent chunks is kept as-is.
func BuildContext(passages []storage.RetrievedChunk) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("[%d] Source: %s, Page: %s\n%s",
			i+1, p.Metadata.SourceID, document.PageLabel(p.Metadata.Page), p.Text)
	}
	return strings.Join(parts, contextSeparator)
}

// BuildPrompt fills the assistant template with the context and question.
func BuildPrompt(question string, passages []storage.RetrievedChunk) string {
	return fmt.Sprintf(promptTemplate, FallbackAnswer, BuildContext(passages), question)
}
