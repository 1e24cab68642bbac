// Package main is the entrypoint of fetcharr.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fetcharr/internal/cfg"
	"fetcharr/internal/domain/consts"
	"fetcharr/internal/downloads"
	"fetcharr/internal/history"
	"fetcharr/internal/queue"
	"fetcharr/internal/scraper"
	"fetcharr/internal/server"
	"fetcharr/internal/transcribe"
	"fetcharr/internal/utils/logging"
)

func main() {
	if err := cfg.Init(); err != nil {
		logging.E("Failed to initialize flags: %v", err)
		os.Exit(1)
	}
	if err := cfg.Execute(); err != nil {
		logging.E("Error: %v", err)
		os.Exit(1)
	}
	if !cfg.Ready() {
		return
	}

	settings := cfg.Resolve()
	logging.Setup(settings.DebugLevel, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, settings); err != nil {
		logging.E("Fetcharr exiting with error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, settings cfg.Settings) error {
	checkPrograms(&settings)

	cookieFile := resolveCookies(settings)

	engine, err := downloads.NewEngine(downloads.Options{
		DownloadDir:        settings.DownloadDir,
		FFmpegLocation:     settings.FFmpegLocation,
		ExternalDownloader: settings.ExternalDownloader,
		CookieFile:         cookieFile,
		MaxRetries:         settings.DownloadRetries,
	})
	if err != nil {
		return err
	}

	var recorder queue.Recorder
	var lister server.HistoryLister
	if settings.HistoryDBPath != "" {
		store, err := history.NewStore(settings.HistoryDBPath)
		if err != nil {
			logging.W("History log unavailable: %v", err)
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					logging.E("Failed to close history store: %v", err)
				}
			}()
			recorder = store
			lister = store
		}
	}

	var transcriber queue.Transcriber
	if settings.EnableTranscription {
		t := transcribe.New(settings.WhisperModel, settings.FFmpegLocation)
		if !t.Available() {
			logging.W("whisper not found on $PATH, transcription requests will be skipped")
		}
		transcriber = t
	}

	coord := queue.NewCoordinator(ctx, engine, queue.Options{
		MaxActive:       settings.MaxConcurrentDownloads,
		MaxBatch:        settings.MaxURLsPerRequest,
		MaxTaskDuration: settings.MaxTaskDuration,
		Transcriber:     transcriber,
		History:         recorder,
	})

	srv := server.New(server.Deps{
		Coordinator: coord,
		History:     lister,
		Prober:      scraper.New(),
		DownloadDir: settings.DownloadDir,
		WebDir:      settings.WebDir,
		Config: server.ConfigInfo{
			MaxConcurrentDownloads: settings.MaxConcurrentDownloads,
			MaxURLsPerRequest:      settings.MaxURLsPerRequest,
			TranscriptionEnabled:   transcriber != nil,
			WhisperModel:           settings.WhisperModel,
			DownloadDir:            settings.DownloadDir,
		},
	})

	httpServer := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logging.S(0, "Fetcharr web server running on http://localhost%s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logging.I("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.E("HTTP server shutdown: %v", err)
	}
	if err := coord.Shutdown(shutdownCtx); err != nil {
		logging.W("Some downloads did not stop in time: %v", err)
	}
	return nil
}

// checkPrograms verifies external tools and fills in what can be
// auto-detected.
func checkPrograms(settings *cfg.Settings) {
	if _, err := exec.LookPath(consts.YtDLP); err != nil {
		logging.W("yt-dlp not found on $PATH; downloads will fail until it is installed")
	}

	if settings.FFmpegLocation == "" {
		if _, err := exec.LookPath(consts.FFmpeg); err != nil {
			logging.W("ffmpeg not found on $PATH; audio extraction and merging will fail")
		}
	}

	if settings.ExternalDownloader == "" {
		if _, err := exec.LookPath(consts.Aria2c); err == nil {
			logging.I("Found aria2c, using it for transfers")
			settings.ExternalDownloader = consts.Aria2c
		}
	}
}

// resolveCookies returns the cookie file to hand yt-dlp, exporting
// browser cookies first when configured.
func resolveCookies(settings cfg.Settings) string {
	if settings.CookieFilePath != "" {
		return settings.CookieFilePath
	}
	if settings.CookiesFromBrowser == "" {
		return ""
	}

	if err := os.MkdirAll(settings.DownloadDir, 0o755); err != nil {
		logging.W("Could not create %s for cookie export: %v", settings.DownloadDir, err)
		return ""
	}
	dest := filepath.Join(settings.DownloadDir, "cookies.txt")
	if err := downloads.ExportBrowserCookies(settings.CookiesFromBrowser, dest); err != nil {
		logging.W("Could not export cookies from %s: %v", settings.CookiesFromBrowser, err)
		return ""
	}
	return dest
}
