package document

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func TestPDFParser_Pages(t *testing.T) {
	runner := &mockRunner{
		output: []byte("Arbitration clauses are enforceable under Section 34.\fCosts follow the event.\f"),
	}
	parser := NewPDFParserWithRunner(runner)

	doc, err := parser.Parse(context.Background(), "cases/numaligarh.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)

	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
	assert.Equal(t, "cases/numaligarh.pdf", doc.SourceID)
	assert.Equal(t,
		"Arbitration clauses are enforceable under Section 34.\n\nCosts follow the event.",
		doc.Text)

	require.Len(t, doc.Pages, 2)
	assert.Equal(t, PageBoundary{Number: 1, Offset: 0}, doc.Pages[0])
	firstLen := utf8.RuneCountInString("Arbitration clauses are enforceable under Section 34.")
	assert.Equal(t, PageBoundary{Number: 2, Offset: firstLen + 2}, doc.Pages[1])

	assert.Equal(t, 1, doc.PageAt(0))
	assert.Equal(t, 2, doc.PageAt(firstLen+2))
}

func TestPDFParser_OffsetsCountCharacters(t *testing.T) {
	runner := &mockRunner{output: []byte("§ 34 — résumé\fsecond\f")}

	doc, err := NewPDFParserWithRunner(runner).Parse(context.Background(), "a.pdf", nil)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 2)
	assert.Equal(t, utf8.RuneCountInString("§ 34 — résumé")+2, doc.Pages[1].Offset)
}

func TestPDFParser_BlankOutput(t *testing.T) {
	runner := &mockRunner{output: []byte("  \f\f")}

	doc, err := NewPDFParserWithRunner(runner).Parse(context.Background(), "scanned.pdf", nil)
	require.NoError(t, err)

	assert.Empty(t, doc.Text)
	assert.Empty(t, doc.Pages)
}

func TestPDFParser_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	doc, err := NewPDFParserWithRunner(runner).Parse(context.Background(), "broken.pdf", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Nil(t, doc)
}

func TestInstallInstructions(t *testing.T) {
	assert.Contains(t, InstallInstructions(), "poppler")
}
