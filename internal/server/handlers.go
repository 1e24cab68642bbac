package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"fetcharr/internal/models"
	"fetcharr/internal/queue"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"
)

// downloadRequest is the POST /api/download body. URLs may arrive as a
// single newline-separated string or as an array.
type downloadRequest struct {
	URLs          json.RawMessage `json:"urls"`
	Format        string          `json:"format"`
	Quality       string          `json:"quality"`
	Transcription bool            `json:"transcription"`
}

func (d *downloadRequest) urlText() (string, error) {
	if len(d.URLs) == 0 {
		return "", errors.New("missing 'urls' field")
	}

	var text string
	if err := json.Unmarshal(d.URLs, &text); err == nil {
		return text, nil
	}

	var list []string
	if err := json.Unmarshal(d.URLs, &list); err == nil {
		return strings.Join(list, "\n"), nil
	}
	return "", errors.New("'urls' must be a string or an array of strings")
}

// handleDownload validates the batch and enqueues a task per URL.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &queue.ValidationError{Msg: "invalid JSON body"})
		return
	}

	text, err := req.urlText()
	if err != nil {
		writeError(w, &queue.ValidationError{Msg: err.Error()})
		return
	}

	format, err := models.ParseFormat(req.Format)
	if err != nil {
		writeError(w, &queue.ValidationError{Msg: err.Error()})
		return
	}

	tasks, err := s.coord.Submit(text, format, req.Quality, req.Transcription)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "started",
		"tasks_created": len(tasks),
		"tasks":         tasks,
	})
}

// handleListTasks returns all tasks, newest first. An optional ?since=
// filter accepts nearly any date format.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.coord.GetAll()

	if since := r.URL.Query().Get("since"); since != "" {
		cutoff, err := dateparse.ParseAny(since)
		if err != nil {
			writeError(w, &queue.ValidationError{Msg: "unparseable 'since' value: " + since})
			return
		}
		filtered := tasks[:0]
		for _, t := range tasks {
			if !t.CreatedAt.Before(cutoff) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.coord.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (s *Server) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.coord.Retry(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "retry_started",
		"task":   task,
	})
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Cancel(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleRemoveTask(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	cleared := s.coord.ClearCompleted()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "cleared",
		"cleared": cleared,
	})
}

// handleProgress drains the buffered status updates for polling clients.
func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"updates": s.coord.PollUpdates()})
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Statistics())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []any{}})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, &queue.ValidationError{Msg: "invalid 'limit' value: " + v})
			return
		}
		limit = n
	}

	entries, err := s.history.List(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.config)
}

// handleThumbnail probes a video page for its thumbnail and title.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeError(w, &queue.ValidationError{Msg: "missing 'url' parameter"})
		return
	}
	if s.prober == nil {
		writeError(w, errors.New("thumbnail probing unavailable"))
		return
	}

	info, err := s.prober.Probe(pageURL)
	if err != nil {
		writeError(w, queue.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleServeFile serves a finished download from the download
// directory. Only bare filenames are accepted.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, queue.ErrNotFound)
		return
	}

	path := filepath.Join(s.downloadDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, queue.ErrNotFound)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	http.ServeFile(w, r, path)
}
