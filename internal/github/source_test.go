package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legal-rag/internal/document"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func dirEntry(typ, name string) map[string]any {
	return map[string]any{"type": typ, "name": name}
}

func fileEntry(name, content string) map[string]any {
	return map[string]any{
		"type":     "file",
		"name":     name,
		"encoding": "base64",
		"size":     len(content),
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

// newTestClient points a client at a fake contents API.
func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = u
	return &Client{Client: gh}
}

func TestSource_Load(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/bull/cases/contents/judgements", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{
			dirEntry("dir", "sub"),
			dirEntry("file", "photo.png"),
			dirEntry("file", "a.txt"),
		})
	})
	mux.HandleFunc("/repos/bull/cases/contents/judgements/sub", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{dirEntry("file", "b.md")})
	})
	mux.HandleFunc("/repos/bull/cases/contents/judgements/a.txt", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, fileEntry("a.txt", "Section 34 allows setting aside an award."))
	})
	mux.HandleFunc("/repos/bull/cases/contents/judgements/sub/b.md", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, fileEntry("b.md", "# Limitation\n\nThree years."))
	})

	loc, err := ParseLocation("bull/cases/judgements")
	require.NoError(t, err)
	src := NewSource(newTestClient(t, mux), loc, nil, nil)

	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "a.txt", docs[0].SourceID)
	assert.Equal(t, "Section 34 allows setting aside an award.", docs[0].Text)
	assert.Equal(t, "sub/b.md", docs[1].SourceID)
	assert.Equal(t, "Limitation\n\nThree years.", docs[1].Text)
}

func TestSource_LoadEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/bull/cases/contents/empty", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{dirEntry("file", "scan.jpg")})
	})

	src := NewSource(newTestClient(t, mux), Location{Owner: "bull", Repo: "cases", BasePath: "empty"}, nil, nil)

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, document.ErrEmptyCorpus)
}

func TestSource_LoadNotFound(t *testing.T) {
	src := NewSource(newTestClient(t, http.NewServeMux()), Location{Owner: "bull", Repo: "cases", BasePath: "missing"}, nil, nil)

	_, err := src.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, document.ErrEmptyCorpus)
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
	}{
		{"bull/cases", Location{Owner: "bull", Repo: "cases"}},
		{"bull/cases/judgements/2023", Location{Owner: "bull", Repo: "cases", BasePath: "judgements/2023"}},
		{"/bull/cases/", Location{Owner: "bull", Repo: "cases"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "bull", "/cases"} {
		_, err := ParseLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocation_String(t *testing.T) {
	assert.Equal(t, "bull/cases/judgements", Location{Owner: "bull", Repo: "cases", BasePath: "judgements"}.String())
}
