package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/randyrektor/obs-gameshow-overlay/internal/app"
	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
	"github.com/randyrektor/obs-gameshow-overlay/internal/export"
	"github.com/randyrektor/obs-gameshow-overlay/internal/infra/postgres"
)

// SessionArchive stores ended sessions for later re-export.
type SessionArchive interface {
	Archive(ctx context.Context, sessionID string, startedAt, endedAt time.Time, events []domain.Event) error
}

// ArchiveReader serves the archive listing and per-session loads.
type ArchiveReader interface {
	LoadSession(ctx context.Context, sessionID string) ([]domain.Event, error)
}

// ArchiveLister lists archived sessions.
type ArchiveLister interface {
	ListSessions(ctx context.Context) ([]postgres.SessionSummary, error)
}

// ExportHandler exposes the session/export surface: session lifecycle over
// HTTP plus on-demand marker exports of the live buffer and, when an archive
// is configured, of past sessions.
type ExportHandler struct {
	recorder   *app.Recorder
	defaultFPS float64

	// optional; nil when Postgres is not configured
	archive SessionArchive
	reader  ArchiveReader
	lister  ArchiveLister
}

func NewExportHandler(recorder *app.Recorder, defaultFPS float64) *ExportHandler {
	if defaultFPS <= 0 {
		defaultFPS = 30
	}
	return &ExportHandler{recorder: recorder, defaultFPS: defaultFPS}
}

// WithArchive enables the Postgres-backed archive surface.
func (h *ExportHandler) WithArchive(archive SessionArchive, reader ArchiveReader, lister ArchiveLister) *ExportHandler {
	h.archive = archive
	h.reader = reader
	h.lister = lister
	return h
}

// Register mounts all session/export routes on mux.
func (h *ExportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/session/start", h.startSession)
	mux.HandleFunc("/session/info", h.sessionInfo)
	mux.HandleFunc("/session/end", h.endSession)
	mux.HandleFunc("/export/markers", h.exportMarkers)
	mux.HandleFunc("/export/xml", h.exportXML)
	mux.HandleFunc("/export/csv", h.exportCSV)
	if h.reader != nil {
		mux.HandleFunc("/archive/sessions", h.listArchive)
		mux.HandleFunc("/archive/markers", h.archiveMarkers)
	}
}

func (h *ExportHandler) startSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := h.recorder.StartSession()
	writeJSON(w, map[string]string{"sessionId": id})
}

func (h *ExportHandler) sessionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.recorder.Info())
}

// endSession closes the live session, archives it when an archive is
// configured, and answers with the timeline XML for the editor.
func (h *ExportHandler) endSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fps, ok := h.fps(w, r)
	if !ok {
		return
	}

	events, err := h.recorder.EndSession()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	sessionID := ""
	if len(events) > 0 {
		sessionID = events[0].SessionID
	}

	if h.archive != nil && len(events) > 0 {
		started := time.UnixMilli(events[0].Timestamp)
		ended := time.UnixMilli(events[len(events)-1].Timestamp)
		if err := h.archive.Archive(r.Context(), sessionID, started, ended, events); err != nil {
			// The caller still gets its export; archival is best-effort.
			log.Printf("archive session %s failed: %v", sessionID, err)
		}
	}

	body, err := export.ToTimelineXML(sessionID, events, fps)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

func (h *ExportHandler) exportMarkers(w http.ResponseWriter, r *http.Request) {
	fps, ok := h.fps(w, r)
	if !ok {
		return
	}
	writeMarkers(w, export.ToMarkers(h.recorder.Events(), fps))
}

func (h *ExportHandler) exportXML(w http.ResponseWriter, r *http.Request) {
	fps, ok := h.fps(w, r)
	if !ok {
		return
	}
	body, err := export.ToTimelineXML(h.recorder.SessionID(), h.recorder.Events(), fps)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

func (h *ExportHandler) exportCSV(w http.ResponseWriter, r *http.Request) {
	body, err := export.ToCSV(h.recorder.Events())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	_, _ = w.Write(body)
}

func (h *ExportHandler) listArchive(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.lister.ListSessions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sessions)
}

func (h *ExportHandler) archiveMarkers(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	fps, ok := h.fps(w, r)
	if !ok {
		return
	}
	events, err := h.reader.LoadSession(r.Context(), sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeMarkers(w, export.ToMarkers(events, fps))
}

// fps reads the frame-rate query parameter, falling back to the configured
// default. The rate is supplied per export call, never stored with the log.
func (h *ExportHandler) fps(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("fps")
	if raw == "" {
		return h.defaultFPS, true
	}
	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil || fps <= 0 {
		http.Error(w, "invalid fps", http.StatusBadRequest)
		return 0, false
	}
	return fps, true
}

// writeMarkers never emits JSON null; an empty sequence is an empty array.
func writeMarkers(w http.ResponseWriter, markers []domain.Marker) {
	if markers == nil {
		markers = []domain.Marker{}
	}
	writeJSON(w, markers)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}
