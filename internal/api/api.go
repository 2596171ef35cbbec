// Package api implements the thin HTTP surface of spec §6.1: AddTrack,
// MatchAudio, ListTracks. Grounded on the teacher's server/handlers.go —
// same no-framework net/http style, the same writeJSON/writeError/
// requestLogger/corsMiddleware helpers, multipart upload-to-tmp-file
// handling — generalized from the teacher's index/match/stats/entries
// shape to this spec's three named operations and their idempotent-
// duplicate / pagination contracts.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"soundmark/internal/apperr"
	"soundmark/internal/engine"
)

// maxUploadSize bounds multipart request bodies accepted by MatchAudio,
// matching the teacher's 5GB ceiling for long-form audio uploads.
const maxUploadSize = 5000 << 20

// Server wires an engine.Engine to the three logical operations of §6.1.
type Server struct {
	Engine  *engine.Engine
	Logger  *slog.Logger
	TempDir string
}

// NewServer builds a Server. tempDir holds uploaded query audio until each
// request's pipeline finishes; it is created if absent.
func NewServer(e *engine.Engine, logger *slog.Logger, tempDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if tempDir == "" {
		tempDir = "tmp"
	}
	return &Server{Engine: e, Logger: logger, TempDir: tempDir}
}

// Handler builds the routed, logged, CORS-enabled http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/match", s.handleMatch)
	return requestLogger(s.Logger, corsMiddleware(mux))
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAddTrack(w, r)
	case http.MethodGet:
		s.handleListTracks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type addTrackRequest struct {
	ExternalID string `json:"external_id"`
	SourceURL  string `json:"source_url"`
}

type trackPayload struct {
	TrackID      int64  `json:"track_id"`
	Title        string `json:"title"`
	ExternalID   string `json:"external_id"`
	ThumbnailURL string `json:"thumbnail_url"`
	Artist       string `json:"artist"`
}

// handleAddTrack implements AddTrack(external_id | source_url), per §6.1.
// A duplicate submission is not an error: it returns 208 Already Reported
// with the existing track's payload, matching the original backend's
// add_song idempotence (§ SPEC_FULL "already exists" supplement).
func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var req addTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := req.ExternalID
	if input == "" {
		input = req.SourceURL
	}
	if input == "" {
		writeError(w, http.StatusBadRequest, "external_id or source_url is required")
		return
	}

	reqStart := time.Now()
	s.Logger.Info("add track request received", "input", input)

	result, err := s.Engine.AddTrack(r.Context(), input)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyExisted {
		status = http.StatusAlreadyReported
	}

	s.Logger.Info("add track request completed", "input", input, "track_id", result.TrackID,
		"already_existed", result.AlreadyExisted, "elapsed", time.Since(reqStart))

	writeJSON(w, status, trackPayload{
		TrackID:      result.TrackID,
		Title:        result.Title,
		ExternalID:   result.ExternalID,
		ThumbnailURL: result.ThumbnailURL,
		Artist:       result.Artist,
	})
}

type matchResultPayload struct {
	Title         string  `json:"title"`
	ExternalID    string  `json:"external_id"`
	ThumbnailURL  string  `json:"thumbnail_url"`
	Artist        string  `json:"artist"`
	OffsetSeconds float64 `json:"offset_seconds"`
	Confidence    float64 `json:"confidence"`
}

// handleMatch implements MatchAudio(audio_blob), per §6.1. An empty
// result list means no match; it is not an error.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqStart := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	tmpPath, err := s.saveUploadedAudio(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("rejecting non-audio blob: %v", err))
		return
	}
	defer os.Remove(tmpPath)

	s.Logger.Info("match request received", "path", tmpPath)

	candidates, err := s.Engine.Match(r.Context(), tmpPath)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	out := make([]matchResultPayload, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, matchResultPayload{
			Title: c.Title, ExternalID: c.ExternalID, ThumbnailURL: c.ThumbnailURL,
			Artist: c.Artist, OffsetSeconds: c.OffsetSeconds, Confidence: c.Confidence,
		})
	}

	s.Logger.Info("match request completed", "candidates", len(out), "elapsed", time.Since(reqStart))
	writeJSON(w, http.StatusOK, out)
}

// handleListTracks implements ListTracks(offset, limit), per §6.1, with
// 0 <= offset and 1 <= limit <= 100.
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	offset, err := intQuery(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := intQuery(r, "limit", 20)
	if err != nil || limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	total, tracks, err := s.Engine.Store.ListTracks(r.Context(), offset, limit)
	if err != nil {
		s.writeEngineError(w, apperr.New(apperr.KindStoreUnavailable, "listing tracks", err))
		return
	}

	payload := make([]trackPayload, 0, len(tracks))
	for _, t := range tracks {
		payload = append(payload, trackPayload{
			TrackID: t.TrackID, Title: t.Title, ExternalID: t.ExternalID,
			ThumbnailURL: t.ThumbnailURL, Artist: t.Artist,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"count":  len(payload),
		"tracks": payload,
	})
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) saveUploadedAudio(r *http.Request) (string, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", fmt.Errorf("no audio file provided: %w", err)
	}
	defer file.Close()

	if err := os.MkdirAll(s.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	tmpPath := filepath.Join(s.TempDir, fmt.Sprintf("query_%d_%s", time.Now().UnixNano(), filepath.Base(header.Filename)))
	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing uploaded audio: %w", err)
	}
	return tmpPath, nil
}

// writeEngineError maps an apperr.Kind onto the 4xx/5xx taxonomy of §7.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	kind := apperr.Of(err)
	s.Logger.Error("request failed", "kind", kind, "error", err)

	switch kind {
	case apperr.KindDecodeFailed, apperr.KindEmptyAfterTrim, apperr.KindUnsupportedMediaType, apperr.KindInvalidArgument:
		writeError(w, http.StatusBadRequest, err.Error())
	case apperr.KindDuplicateExternalID:
		writeError(w, http.StatusConflict, err.Error())
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case apperr.KindStoreUnavailable, apperr.KindDownloaderFailed, apperr.KindMetadataFetchFailed:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
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

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
