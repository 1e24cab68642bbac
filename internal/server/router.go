// Package server exposes the fetcharr HTTP API and frontend.
package server

import (
	"net/http"

	"fetcharr/internal/history"
	"fetcharr/internal/queue"
	"fetcharr/internal/scraper"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HistoryLister serves the completed-download log.
type HistoryLister interface {
	List(limit int) ([]history.Entry, error)
}

// ThumbnailProber fetches display metadata for a video page.
type ThumbnailProber interface {
	Probe(pageURL string) (scraper.PageInfo, error)
}

// ConfigInfo is the read-only configuration exposed to the frontend.
type ConfigInfo struct {
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads"`
	MaxURLsPerRequest      int    `json:"max_urls_per_request"`
	TranscriptionEnabled   bool   `json:"transcription_enabled"`
	WhisperModel           string `json:"whisper_model"`
	DownloadDir            string `json:"download_dir"`
}

// Server wires the coordinator and its satellites to HTTP handlers.
type Server struct {
	coord       *queue.Coordinator
	history     HistoryLister
	prober      ThumbnailProber
	downloadDir string
	webDir      string
	config      ConfigInfo
}

// Deps carries everything the server needs. History and Prober may be
// nil; their endpoints then report unavailability.
type Deps struct {
	Coordinator *queue.Coordinator
	History     HistoryLister
	Prober      ThumbnailProber
	DownloadDir string
	WebDir      string
	Config      ConfigInfo
}

// New builds the server.
func New(deps Deps) *Server {
	return &Server{
		coord:       deps.Coordinator,
		history:     deps.History,
		prober:      deps.Prober,
		downloadDir: deps.DownloadDir,
		webDir:      deps.WebDir,
		config:      deps.Config,
	}
}

// Router returns the HTTP handler for the full API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/download", s.handleDownload)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Get("/{id}", s.handleGetTask)
			r.Post("/{id}/retry", s.handleRetryTask)
			r.Post("/{id}/cancel", s.handleCancelTask)
			r.Delete("/{id}/remove", s.handleRemoveTask)
		})

		r.Post("/clear", s.handleClear)
		r.Get("/progress", s.handleProgress)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/history", s.handleHistory)
		r.Get("/config", s.handleConfig)
		r.Get("/thumbnail", s.handleThumbnail)
	})

	r.Get("/download/{filename}", s.handleServeFile)

	if s.webDir != "" {
		r.Handle("/*", http.StripPrefix("/", http.FileServer(http.Dir(s.webDir))))
	}

	return r
}
