package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dotkit/pkg/buildinfo"
	"github.com/matzehuels/dotkit/pkg/cache"
	"github.com/matzehuels/dotkit/pkg/manifest"
	"github.com/matzehuels/dotkit/pkg/render"
)

// Request body media types accepted by POST /v1/render.
const (
	mediaTypeDOT  = "text/vnd.graphviz"
	mediaTypeTOML = "application/toml"
)

// maxRenderBody caps request bodies; graph descriptions are text and should
// never approach this.
const maxRenderBody = 4 << 20

// serveOptions collects the serve command flags.
type serveOptions struct {
	addr        string
	redis       string
	cachePrefix string
	ttl         time.Duration
	noCache     bool
}

// serveCommand creates the serve command for running the render server.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render server",
		Long: `Run the HTTP render server.

The server accepts DOT text (Content-Type: text/vnd.graphviz) or TOML
manifests (Content-Type: application/toml) over POST /v1/render and returns
the rendered image. The output format and layout engine are selected with
the format and engine query parameters. Rendering uses the embedded layout
engine, so no graphviz installation is required.

Artifacts are cached in redis when --redis is set, otherwise in the local
file cache. --cache-prefix namespaces keys so deployments can share one
backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "redis address for shared artifact caching (host:port)")
	cmd.Flags().StringVar(&opts.cachePrefix, "cache-prefix", "", "prefix for cache keys (namespace on a shared backend)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "artifact cache ttl")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable artifact caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOptions) error {
	store, err := c.newServerCache(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	var keyer cache.Keyer = cache.NewDefaultKeyer()
	if opts.cachePrefix != "" {
		keyer = cache.NewScopedKeyer(keyer, opts.cachePrefix)
	}

	srv := &renderServer{
		logger: c.Logger,
		store:  store,
		keyer:  keyer,
		ttl:    opts.ttl,
	}

	httpSrv := &http.Server{
		Addr:         opts.addr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("render server listening", "addr", opts.addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// newServerCache picks the cache backend. The redis connection is retried
// with backoff so the server survives a backend that is still coming up.
func (c *CLI) newServerCache(ctx context.Context, opts serveOptions) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redis != "" {
		var store cache.Cache
		err := cache.RetryWithBackoff(ctx, func() error {
			var cerr error
			store, cerr = cache.NewRedisCache(ctx, opts.redis)
			if cerr != nil {
				return cache.Retryable(cerr)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, nil
	}
	return newCache(false)
}

// renderServer handles render requests over HTTP.
type renderServer struct {
	logger *log.Logger
	store  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
}

func (s *renderServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.requestID)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/render", s.handleRender)

	return r
}

// requestID tags each request with a uuid and attaches a request-scoped
// logger to the context.
func (s *renderServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		logger := s.logger.With("request_id", id)
		next.ServeHTTP(w, r.WithContext(withLogger(r.Context(), logger)))
	})
}

func (s *renderServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// handleRender renders the posted graph. The body carries DOT text or a TOML
// manifest, distinguished by Content-Type; format and engine come from query
// parameters. The embedded engine lays out hierarchically, so "dot" is the
// only accepted engine value.
func (s *renderServer) handleRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := loggerFromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRenderBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body")
		return
	}

	text, status, err := decodeRenderBody(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = render.FormatSVG
	}
	if !render.Supported(format) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	engine := r.URL.Query().Get("engine")
	if engine == "" {
		engine = "dot"
	}
	if engine != "dot" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported engine %q: the embedded renderer supports only dot", engine))
		return
	}

	key := s.keyer.ArtifactKey(cache.Hash([]byte(text)), cache.ArtifactKeyOpts{
		Format:   format,
		Engine:   engine,
		Embedded: true,
	})

	if data, hit, err := s.store.Get(ctx, key); err == nil && hit {
		logger.Debug("artifact served from cache", "format", format)
		writeArtifact(w, format, data, true)
		return
	} else if err != nil {
		logger.Warn("cache lookup failed", "err", err)
	}

	start := time.Now()
	data, err := render.Bytes(ctx, text, format)
	if err != nil {
		logger.Error("render failed", "err", err)
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("render: %v", err))
		return
	}
	logger.Info("rendered artifact", "format", format, "bytes", len(data), "took", time.Since(start).Round(time.Millisecond))

	// Transient backend failures (redis) come back as retryable, so give the
	// store a few attempts before giving up on caching this artifact.
	err = cache.RetryWithBackoff(ctx, func() error {
		return s.store.Set(ctx, key, data, s.ttl)
	})
	if err != nil {
		logger.Warn("cache store failed", "err", err)
	}
	writeArtifact(w, format, data, false)
}

// decodeRenderBody turns the request body into DOT text based on its media
// type. The returned status applies only when the error is non-nil.
func decodeRenderBody(contentType string, body []byte) (string, int, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", http.StatusUnsupportedMediaType, fmt.Errorf("parse Content-Type: %w", err)
	}
	switch mediaType {
	case mediaTypeDOT:
		return string(body), 0, nil
	case mediaTypeTOML:
		m, err := manifest.Parse(bytes.NewReader(body))
		if err != nil {
			return "", http.StatusBadRequest, fmt.Errorf("parse manifest: %w", err)
		}
		text, err := m.DOT()
		if err != nil {
			return "", http.StatusBadRequest, fmt.Errorf("build manifest: %w", err)
		}
		return text, 0, nil
	default:
		return "", http.StatusUnsupportedMediaType,
			fmt.Errorf("unsupported media type %q: want %s or %s", mediaType, mediaTypeDOT, mediaTypeTOML)
	}
}

func writeArtifact(w http.ResponseWriter, format string, data []byte, cached bool) {
	w.Header().Set("Content-Type", contentType(format))
	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentType(format string) string {
	switch format {
	case render.FormatSVG:
		return "image/svg+xml"
	case render.FormatPNG:
		return "image/png"
	case render.FormatJPG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
