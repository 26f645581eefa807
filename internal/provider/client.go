// Package provider wraps the OpenAI-compatible API used for embeddings and generation.
package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config holds connection settings for one credential.
type Config struct {
	APIKey  string
	BaseURL string // Empty means the SDK default (api.openai.com)
}

// Client wraps the OpenAI client. It is safe for concurrent use.
type Client struct {
	client *openai.Client
}

// NewClient creates a client for the given credential.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider API key not set")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are decided by callers, not the transport
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client.
func (c *Client) Client() *openai.Client {
	return c.client
}

// CreateEmbeddings calls the embeddings endpoint and returns raw vectors in provider order,
// each tagged with the input index it belongs to.
func (c *Client) CreateEmbeddings(ctx context.Context, model string, texts []string) ([]IndexedVector, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, Classify("create embeddings", err)
	}

	out := make([]IndexedVector, len(resp.Data))
	for i, data := range resp.Data {
		out[i] = IndexedVector{
			Index:  int(data.Index),
			Vector: toFloat32(data.Embedding),
		}
	}
	return out, nil
}

// Complete sends a single user prompt to the chat completions endpoint.
func (c *Client) Complete(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", Classify("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w: response has no choices", ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the IDs of all models visible to the credential, sorted.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var ids []string
	iter := c.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, Classify("list models", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// IndexedVector is one embedding together with the position of its input text.
type IndexedVector struct {
	Index  int
	Vector []float32
}

// toFloat32 converts []float64 to []float32.
// The API returns float64, but the index stores float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
