package markdown

import (
	"strings"
	"testing"
)

// TestExtract_HeadingAndParagraph tests that markup is removed and blocks are separated.
func TestExtract_HeadingAndParagraph(t *testing.T) {
	input := "# Arbitration Act\n\nSection 34 allows *setting aside* of an **award**.\n"

	got := NewExtractor().Extract([]byte(input))

	want := "Arbitration Act\n\nSection 34 allows setting aside of an award."
	if got != want {
		t.Errorf("Extract:\nexpected %q\ngot      %q", want, got)
	}
}

// TestExtract_Lists tests that list items land on their own lines.
func TestExtract_Lists(t *testing.T) {
	input := `Grounds:

- incapacity of a party
- invalid agreement
`

	got := NewExtractor().Extract([]byte(input))

	if !strings.Contains(got, "Grounds:") {
		t.Errorf("missing paragraph text: %q", got)
	}
	if !strings.Contains(got, "incapacity of a party\n") {
		t.Errorf("expected first list item on its own line: %q", got)
	}
	if !strings.Contains(got, "invalid agreement") {
		t.Errorf("missing second list item: %q", got)
	}
	if strings.Contains(got, "- ") {
		t.Errorf("list markers should be stripped: %q", got)
	}
}

// TestExtract_CodeBlock tests that fenced blocks are kept verbatim.
func TestExtract_CodeBlock(t *testing.T) {
	input := "Quoted clause:\n\n```\nAll disputes shall be referred to arbitration.\n```\n"

	got := NewExtractor().Extract([]byte(input))

	if !strings.Contains(got, "All disputes shall be referred to arbitration.") {
		t.Errorf("code block content missing: %q", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("fence markers should be stripped: %q", got)
	}
}

// TestExtract_Empty tests that empty input yields empty output.
func TestExtract_Empty(t *testing.T) {
	if got := NewExtractor().Extract(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

// TestExtract_LinksKeepLabel tests that link text survives and the URL does not.
func TestExtract_LinksKeepLabel(t *testing.T) {
	input := "See [the judgement](https://example.org/j.pdf) for details.\n"

	got := NewExtractor().Extract([]byte(input))

	if got != "See the judgement for details." {
		t.Errorf("unexpected text: %q", got)
	}
}
