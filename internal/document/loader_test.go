package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirectoryLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "Second file.\r\nWindows newline.")
	writeFile(t, filepath.Join(root, "a.md"), "# Heading\n\nBody text.")
	writeFile(t, filepath.Join(root, "nested", "c.txt"), "Nested file.")
	writeFile(t, filepath.Join(root, "image.png"), "not a document")

	loader := NewDirectoryLoader(root, nil, 2, nil)
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, "a.md", docs[0].SourceID)
	assert.Equal(t, "Heading\n\nBody text.", docs[0].Text)
	assert.Equal(t, "b.txt", docs[1].SourceID)
	assert.Equal(t, "Second file.\nWindows newline.", docs[1].Text)
	assert.Equal(t, "nested/c.txt", docs[2].SourceID)
	for _, doc := range docs {
		assert.Empty(t, doc.Pages)
	}
}

func TestDirectoryLoader_CustomParsers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "judgement.pdf"), "%PDF-1.4")

	parsers := Parsers{".pdf": NewPDFParserWithRunner(&mockRunner{output: []byte("one\ftwo\f")})}
	docs, err := NewDirectoryLoader(root, parsers, 1, nil).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "one\n\ntwo", docs[0].Text)
	assert.Len(t, docs[0].Pages, 2)
}

func TestDirectoryLoader_MissingDirectory(t *testing.T) {
	loader := NewDirectoryLoader(filepath.Join(t.TempDir(), "missing"), nil, 1, nil)

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestDirectoryLoader_NoSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "photo.jpg"), "binary")

	_, err := NewDirectoryLoader(root, nil, 1, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestParsers_ForIsCaseInsensitive(t *testing.T) {
	parsers := DefaultParsers()

	_, ok := parsers.For("Judgement.PDF")
	assert.True(t, ok)
	_, ok = parsers.For("notes.docx")
	assert.False(t, ok)
}

func TestParsers_ParseUnsupported(t *testing.T) {
	_, err := DefaultParsers().Parse(context.Background(), "notes.docx", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
