package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/document"
	"github.com/bull/legal-rag/internal/provider"
	"github.com/bull/legal-rag/internal/storage"
)

const maxSearchResults = 20

type AnswerRequest struct {
	Question string `json:"question"`
}

type AnswerResponse struct {
	Answer    string     `json:"answer"`
	Refused   bool       `json:"refused"`
	Citations []Citation `json:"citations"`
	Passages  []Passage  `json:"passages"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type SearchResponse struct {
	Results []Passage `json:"results"`
}

type Citation struct {
	Source string `json:"source"`
	Page   string `json:"page"`
}

type Passage struct {
	// Rank is 1-based for display.
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
	Page   string  `json:"page"`
	Text   string  `json:"text"`
}

// ErrorResponse carries a user-facing message and, for answering failures,
// what to do about it.
type ErrorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (s *Server) answer(c echo.Context) error {
	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ans, err := s.cfg.Answerer.Answer(c.Request().Context(), req.Question)
	if err != nil {
		return s.queryFailed(c, err)
	}

	citations := make([]Citation, len(ans.Citations))
	for i, ct := range ans.Citations {
		citations[i] = Citation{Source: ct.SourceID, Page: document.PageLabel(ct.Page)}
	}
	return c.JSON(http.StatusOK, AnswerResponse{
		Answer:    ans.Text,
		Refused:   ans.Refused,
		Citations: citations,
		Passages:  toPassages(ans.Passages),
	})
}

func (s *Server) search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	k := req.TopK
	if k <= 0 {
		k = s.cfg.TopK
	}
	k = min(k, maxSearchResults)

	chunks, err := s.cfg.Answerer.Retrieve(c.Request().Context(), req.Query, k)
	if err != nil {
		return s.queryFailed(c, err)
	}
	return c.JSON(http.StatusOK, SearchResponse{Results: toPassages(chunks)})
}

func (s *Server) queryFailed(c echo.Context, err error) error {
	s.logger.Warn("query failed", "path", c.Path(), "error", err)
	message, suggestion := answer.Describe(err)
	return c.JSON(statusFor(err), ErrorResponse{Error: message, Suggestion: suggestion})
}

// statusFor maps an answering error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, answer.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, storage.ErrCollectionNotFound),
		errors.Is(err, storage.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func toPassages(chunks []storage.RetrievedChunk) []Passage {
	passages := make([]Passage, len(chunks))
	for i, ch := range chunks {
		passages[i] = Passage{
			Rank:   ch.Rank + 1,
			Score:  ch.Score,
			Source: ch.Metadata.SourceID,
			Page:   document.PageLabel(ch.Metadata.Page),
			Text:   ch.Text,
		}
	}
	return passages
}
