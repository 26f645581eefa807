package generation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legal-rag/internal/provider"
)

type fakeCompleter struct {
	out         string
	err         error
	calls       int
	model       string
	temperature float64
	prompt      string
}

func (f *fakeCompleter) Complete(_ context.Context, model, prompt string, temperature float64) (string, error) {
	f.calls++
	f.model = model
	f.prompt = prompt
	f.temperature = temperature
	return f.out, f.err
}

func TestGenerate(t *testing.T) {
	backend := &fakeCompleter{out: "  The award can be set aside.\n"}
	g := NewGenerator(backend, Config{Temperature: DefaultTemperature}, nil)

	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "The award can be set aside.", out)
	assert.Equal(t, DefaultModel, backend.model)
	assert.Equal(t, DefaultTemperature, backend.temperature)
	assert.Equal(t, "prompt", backend.prompt)
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	g := NewGenerator(&fakeCompleter{out: "   "}, Config{}, nil)

	_, err := g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, provider.ErrProvider)
}

func TestGenerate_ProviderError(t *testing.T) {
	g := NewGenerator(&fakeCompleter{err: provider.ErrUnauthorized}, Config{}, nil)

	_, err := g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, provider.ErrProvider)
	assert.ErrorIs(t, err, provider.ErrUnauthorized)
}

func TestGenerate_PromptTooLong(t *testing.T) {
	backend := &fakeCompleter{out: "x"}
	g := NewGenerator(backend, Config{MaxPromptTokens: 10}, nil)

	_, err := g.Generate(context.Background(), strings.Repeat("word ", 20))
	assert.ErrorIs(t, err, provider.ErrProvider)
	assert.Zero(t, backend.calls)
}

func TestNewGenerator_Defaults(t *testing.T) {
	g := NewGenerator(&fakeCompleter{}, Config{Model: "gemini-2.0-flash"}, nil)
	assert.Equal(t, "gemini-2.0-flash", g.Model())
	assert.Equal(t, DefaultMaxPromptTokens, g.maxTokens)
}
