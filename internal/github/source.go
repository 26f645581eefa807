package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/bull/legal-rag/internal/document"
)

// Location identifies a directory inside a repository.
type Location struct {
	Owner    string
	Repo     string
	BasePath string
}

func (l Location) String() string {
	return path.Join(l.Owner, l.Repo, l.BasePath)
}

// ParseLocation parses "owner/repo[/path/to/dir]".
func ParseLocation(s string) (Location, error) {
	parts := strings.SplitN(strings.Trim(s, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("invalid github location %q: want owner/repo[/path]", s)
	}
	loc := Location{Owner: parts[0], Repo: parts[1]}
	if len(parts) == 3 {
		loc.BasePath = parts[2]
	}
	return loc, nil
}

// Source loads every supported document under a repository directory.
// Source IDs are paths relative to the directory.
type Source struct {
	client  *Client
	loc     Location
	parsers document.Parsers
	logger  *slog.Logger
}

// NewSource creates a Source. Nil parsers means document.DefaultParsers.
func NewSource(client *Client, loc Location, parsers document.Parsers, logger *slog.Logger) *Source {
	if parsers == nil {
		parsers = document.DefaultParsers()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		client:  client,
		loc:     loc,
		parsers: parsers,
		logger:  logger,
	}
}

// Load lists and parses all supported files in path order.
// A directory without supported files fails with document.ErrEmptyCorpus.
func (s *Source) Load(ctx context.Context) ([]document.Document, error) {
	paths, err := s.listRecursive(ctx, s.loc.BasePath, "")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no supported documents in %s", document.ErrEmptyCorpus, s.loc)
	}
	sort.Strings(paths)

	docs := make([]document.Document, 0, len(paths))
	for _, rel := range paths {
		data, err := s.fetch(ctx, rel)
		if err != nil {
			return nil, err
		}
		doc, err := s.parsers.Parse(ctx, rel, data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
		docs = append(docs, *doc)
		s.logger.Debug("Fetched document", "source", rel, "bytes", len(data))
	}

	s.logger.Info("Loaded documents", "location", s.loc.String(), "count", len(docs))
	return docs, nil
}

// listRecursive traverses directories and returns relative paths of supported files.
func (s *Source) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	_, dirContents, _, err := s.client.Repositories.GetContents(ctx, s.loc.Owner, s.loc.Repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	var paths []string
	for _, item := range dirContents {
		name := item.GetName()
		itemRelPath := path.Join(relativePath, name)

		switch item.GetType() {
		case "file":
			if _, ok := s.parsers.For(name); !ok {
				s.logger.Debug("Skipping unsupported file", "path", itemRelPath)
				continue
			}
			paths = append(paths, itemRelPath)

		case "dir":
			sub, err := s.listRecursive(ctx, path.Join(fullPath, name), itemRelPath)
			if err != nil {
				return nil, err
			}
			paths = append(paths, sub...)
		}
	}
	return paths, nil
}

// fetch returns the raw bytes of a file. Files over the contents API size
// limit come back without inline content and are downloaded instead.
func (s *Source) fetch(ctx context.Context, relativePath string) ([]byte, error) {
	fullPath := path.Join(s.loc.BasePath, relativePath)

	file, _, _, err := s.client.Repositories.GetContents(ctx, s.loc.Owner, s.loc.Repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if file == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	if file.GetEncoding() != "none" {
		content, err := file.GetContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
		}
		return []byte(content), nil
	}

	rc, _, err := s.client.Repositories.DownloadContents(ctx, s.loc.Owner, s.loc.Repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", fullPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}
	return data, nil
}

var _ document.Source = (*Source)(nil)
