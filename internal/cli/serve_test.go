package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dotkit/pkg/cache"
)

func newTestServer(t *testing.T, keyer cache.Keyer) *renderServer {
	t.Helper()
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &renderServer{
		logger: newLogger(io.Discard, log.InfoLevel),
		store:  store,
		keyer:  keyer,
		ttl:    time.Hour,
	}
}

func postRender(t *testing.T, srv *renderServer, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want %q", resp["status"], "ok")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response should carry a request id")
	}
}

func TestHandleRenderDOT(t *testing.T) {
	srv := newTestServer(t, nil)
	const dot = "strict digraph G {\n  a -> b;\n}\n"
	rec := postRender(t, srv, "/v1/render", mediaTypeDOT, dot)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	if rec.Header().Get("X-Cache") != "miss" {
		t.Errorf("X-Cache = %q, want miss", rec.Header().Get("X-Cache"))
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("body should contain SVG output")
	}

	// Same request again is a cache hit.
	rec = postRender(t, srv, "/v1/render", mediaTypeDOT, dot)
	if rec.Code != http.StatusOK {
		t.Fatalf("second status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "hit" {
		t.Errorf("second X-Cache = %q, want hit", rec.Header().Get("X-Cache"))
	}
}

func TestHandleRenderManifest(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := postRender(t, srv, "/v1/render", mediaTypeTOML, testManifest)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("body should contain SVG output")
	}
}

func TestHandleRenderContentTypeParams(t *testing.T) {
	// Media type parameters like charset must not break dispatch.
	srv := newTestServer(t, nil)
	rec := postRender(t, srv, "/v1/render", "text/vnd.graphviz; charset=utf-8", "strict graph G {\n  a -- b;\n}\n")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
}

func TestHandleRenderQueryFormat(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := postRender(t, srv, "/v1/render?format=png", mediaTypeDOT, "strict digraph G {\n  a -> b;\n}\n")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestHandleRenderBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)
	const dot = "strict digraph G {\n  a -> b;\n}\n"

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		want        int
	}{
		{"empty body", "/v1/render", mediaTypeDOT, "", http.StatusBadRequest},
		{"missing content type", "/v1/render", "", dot, http.StatusUnsupportedMediaType},
		{"unknown content type", "/v1/render", "application/json", dot, http.StatusUnsupportedMediaType},
		{"unsupported format", "/v1/render?format=pdf", mediaTypeDOT, dot, http.StatusBadRequest},
		{"unsupported engine", "/v1/render?engine=neato", mediaTypeDOT, dot, http.StatusBadRequest},
		{"bad manifest", "/v1/render", mediaTypeTOML, "kind = \"multigraph\"", http.StatusBadRequest},
		{"invalid dot", "/v1/render", mediaTypeDOT, "not dot at all {{{", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRender(t, srv, tt.target, tt.contentType, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.want, rec.Body)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error responses should be JSON: %v", err)
			}
			if resp["error"] == "" {
				t.Error("error response should carry a message")
			}
		})
	}
}

func TestHandleRenderScopedCaches(t *testing.T) {
	// Two servers with different key prefixes must not see each other's
	// artifacts even when they share a backend.
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	newScoped := func(prefix string) *renderServer {
		return &renderServer{
			logger: newLogger(io.Discard, log.InfoLevel),
			store:  store,
			keyer:  cache.NewScopedKeyer(cache.NewDefaultKeyer(), prefix),
			ttl:    time.Hour,
		}
	}
	staging := newScoped("staging")
	prod := newScoped("prod")

	const dot = "strict digraph G {\n  a -> b;\n}\n"
	if rec := postRender(t, staging, "/v1/render", mediaTypeDOT, dot); rec.Header().Get("X-Cache") != "miss" {
		t.Fatalf("staging first request X-Cache = %q, want miss", rec.Header().Get("X-Cache"))
	}
	if rec := postRender(t, prod, "/v1/render", mediaTypeDOT, dot); rec.Header().Get("X-Cache") != "miss" {
		t.Errorf("prod should not hit staging's artifact, X-Cache = %q", rec.Header().Get("X-Cache"))
	}
	if rec := postRender(t, staging, "/v1/render", mediaTypeDOT, dot); rec.Header().Get("X-Cache") != "hit" {
		t.Errorf("staging second request X-Cache = %q, want hit", rec.Header().Get("X-Cache"))
	}
}

// unreachableCache fails every operation the way a down redis backend does.
type unreachableCache struct{}

func (unreachableCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, cache.ErrUnavailable
}

func (unreachableCache) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrUnavailable
}

func (unreachableCache) Delete(context.Context, string) error { return cache.ErrUnavailable }
func (unreachableCache) Close() error                         { return nil }

func TestHandleRenderCacheUnavailable(t *testing.T) {
	// A broken cache backend must degrade to rendering, not fail requests.
	srv := &renderServer{
		logger: newLogger(io.Discard, log.InfoLevel),
		store:  unreachableCache{},
		keyer:  cache.NewDefaultKeyer(),
		ttl:    time.Hour,
	}
	rec := postRender(t, srv, "/v1/render", mediaTypeDOT, "strict digraph G {\n  a -> b;\n}\n")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Cache") != "miss" {
		t.Errorf("X-Cache = %q, want miss", rec.Header().Get("X-Cache"))
	}
}
