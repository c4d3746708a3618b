// Package server exposes the application over HTTP with a WebSocket
// stream of job events.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gorilla/websocket"

	"github.com/ronled86/ClipPilot/internal/app"
	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/settings"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

// Version is reported by the health endpoint.
var Version = "dev"

type Server struct {
	app      *app.App
	logger   *slog.Logger
	origins  []string
	upgrader websocket.Upgrader
}

type Option func(*Server)

// WithAllowedOrigins sets the browser origins the API answers. Each entry
// is matched case-insensitively and may hold one * wildcard.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func New(a *app.App, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{app: a, logger: logger, origins: config.DefaultAllowedOrigins}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || s.originAllowed(o)
		},
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool { return s.originAllowed(origin) },
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
	}).Handler)
	r.Use(s.rejectForeignOrigin)

	r.Route("/api", func(api chi.Router) {
		// The event stream is long-lived and stays outside the timeout.
		api.Get("/events", s.handleEvents)

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(60 * time.Second))
			// A cross-site form or text/plain POST skips the preflight.
			api.Use(middleware.AllowContentType("application/json"))

			api.Get("/health", s.handleHealth)
			api.Get("/search", s.handleSearch)
			api.Get("/search/more", s.handleSearchMore)
			api.Get("/trending", s.handleTrending)
			api.Get("/categories", s.handleCategories)

			api.Get("/videos/{id}/can-download", s.handleCanDownload)
			api.Post("/videos/{id}/preview", s.handlePreview)

			api.Get("/downloads", s.handleJobs)
			api.Post("/downloads", s.handleEnqueue)
			api.Delete("/downloads", s.handleClearFinished)
			api.Get("/downloads/{id}", s.handleJob)
			api.Delete("/downloads/{id}", s.handleDismiss)
			api.Post("/downloads/{id}/cancel", s.handleCancel)
			api.Post("/downloads/{id}/open-folder", s.handleOpenFolder)

			api.Get("/settings", s.handleGetSettings)
			api.Put("/settings", s.handleSaveSettings)
			api.Patch("/settings", s.handleMergeSettings)
		})
	})
	return r
}

// rejectForeignOrigin refuses browser requests from pages outside the
// allowed origins. Clients that send no Origin header pass.
func (s *Server) rejectForeignOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o := r.Header.Get("Origin"); o != "" && !s.originAllowed(o) {
			writeError(w, http.StatusForbidden, fmt.Errorf("origin %q not allowed", o))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	origin = strings.ToLower(origin)
	for _, allowed := range s.origins {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "*" || allowed == origin {
			return true
		}
		pre, suf, ok := strings.Cut(allowed, "*")
		if !ok || len(origin) < len(pre)+len(suf) {
			continue
		}
		if strings.HasPrefix(origin, pre) && strings.HasSuffix(origin, suf) &&
			!strings.ContainsAny(origin[len(pre):len(origin)-len(suf)], "/@") {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "clippilot",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"active":  len(s.app.Active()),
		"apiKey":  s.app.APIKey() != "",
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, err := s.app.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSearchMore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.app.SearchMore(r.Context(), q.Get("q"), q.Get("pageToken"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		page youtube.Page
		err  error
	)
	if token := q.Get("pageToken"); token != "" {
		page, err = s.app.MoreTrending(r.Context(), q.Get("category"), token)
	} else {
		page, err = s.app.Trending(r.Context(), q.Get("category"))
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Categories())
}

func (s *Server) handleCanDownload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.CanDownload(chi.URLParam(r, "id")))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.app.Preview(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type enqueueRequest struct {
	VideoID   string            `json:"videoId"`
	URL       string            `json:"url"`
	Title     string            `json:"title"`
	Format    model.MediaFormat `json:"format"`
	Overrides model.Overrides   `json:"overrides"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var payload enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	switch payload.Format {
	case "", model.FormatMP3, model.FormatMP4:
	default:
		writeError(w, http.StatusBadRequest, errors.New("format must be mp3 or mp4"))
		return
	}
	rc, err := s.app.Enqueue(downloader.Request{
		VideoID:   strings.TrimSpace(payload.VideoID),
		URL:       strings.TrimSpace(payload.URL),
		Title:     payload.Title,
		Format:    payload.Format,
		Overrides: payload.Overrides,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, rc)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Jobs())
}

func (s *Server) handleClearFinished(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.app.ClearFinished()})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.app.Job(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", app.ErrJobNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.app.Cancel(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no running job %s", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobId": id, "cancelled": true})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := s.app.Job(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", app.ErrJobNotFound, id))
		return
	}
	if !s.app.Dismiss(id) {
		writeError(w, http.StatusConflict, fmt.Errorf("job %s is %s, cancel it first", id, j.Status))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.app.OpenJobFolder(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, redact(s.app.GetSettings()))
}

// redact masks the API key; clients echo the masked value back unchanged.
func redact(v model.DownloadSettings) model.DownloadSettings {
	v.YouTubeAPIKey = settings.MaskKey(v.YouTubeAPIKey)
	return v
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var payload model.DownloadSettings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if cur := s.app.GetSettings().YouTubeAPIKey; payload.YouTubeAPIKey == settings.MaskKey(cur) {
		payload.YouTubeAPIKey = cur
	}
	if err := s.app.SaveSettings(payload); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, redact(payload))
}

func (s *Server) handleMergeSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read request: %w", err))
		return
	}
	merged, err := s.app.MergeSettings(s.dropMaskedKey(body))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, redact(merged))
}

// dropMaskedKey removes a youtubeApiKey that is only the masked value
// from an earlier GET. Malformed patches are left for the store to reject.
func (s *Server) dropMaskedKey(patch []byte) []byte {
	var fields map[string]json.RawMessage
	if json.Unmarshal(patch, &fields) != nil {
		return patch
	}
	raw, ok := fields["youtubeApiKey"]
	if !ok {
		return patch
	}
	var key string
	if json.Unmarshal(raw, &key) != nil || key != settings.MaskKey(s.app.GetSettings().YouTubeAPIKey) {
		return patch
	}
	delete(fields, "youtubeApiKey")
	out, err := json.Marshal(fields)
	if err != nil {
		return patch
	}
	return out
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, youtube.ErrEmptyQuery),
		errors.Is(err, downloader.ErrNoTarget),
		errors.Is(err, settings.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, downloader.ErrVideoNotFound),
		errors.Is(err, app.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, downloader.ErrDownloaderMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
