package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// DefaultLoadConcurrency bounds how many files are parsed at once.
const DefaultLoadConcurrency = 4

// DirectoryLoader reads every supported file below a root directory.
type DirectoryLoader struct {
	root        string
	parsers     Parsers
	concurrency int
	logger      *slog.Logger
}

// NewDirectoryLoader creates a loader for root. Nil parsers means DefaultParsers.
func NewDirectoryLoader(root string, parsers Parsers, concurrency int, logger *slog.Logger) *DirectoryLoader {
	if parsers == nil {
		parsers = DefaultParsers()
	}
	if concurrency <= 0 {
		concurrency = DefaultLoadConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryLoader{
		root:        root,
		parsers:     parsers,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Load parses all supported files in lexical path order.
// A missing root or a root without supported files fails with ErrEmptyCorpus.
func (l *DirectoryLoader) Load(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrEmptyCorpus, l.root)
		}
		return nil, fmt.Errorf("stat %s: %w", l.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", l.root)
	}

	paths, err := l.listFiles()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no supported documents in %s", ErrEmptyCorpus, l.root)
	}

	docs := make([]Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			doc, err := l.loadFile(gctx, path)
			if err != nil {
				return err
			}
			docs[i] = *doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("Loaded documents", "root", l.root, "count", len(docs))
	return docs, nil
}

func (l *DirectoryLoader) listFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := l.parsers.For(path); !ok {
			l.logger.Debug("Skipping unsupported file", "path", path)
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}
	return paths, nil
}

func (l *DirectoryLoader) loadFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		rel = path
	}
	sourceID := filepath.ToSlash(rel)

	doc, err := l.parsers.Parse(ctx, sourceID, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", sourceID, err)
	}
	l.logger.Debug("Parsed document", "source", sourceID, "pages", len(doc.Pages))
	return doc, nil
}
