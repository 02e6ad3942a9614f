package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/afanty2021/DashPlayer/internal/config"
	"github.com/afanty2021/DashPlayer/pkg/file"
	"github.com/afanty2021/DashPlayer/pkg/log"
	"github.com/afanty2021/DashPlayer/pkg/strutil"
)

type openRequest struct {
	Video    string  `json:"video"`
	Subtitle string  `json:"subtitle"`
	Duration float64 `json:"duration,omitempty"`
}

// handleOpen loads a media file: resolves the sibling subtitle when none is
// given, starts the subtitle session and restores the saved watch position.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strutil.IsBlank(req.Video) {
		writeError(w, http.StatusBadRequest, "video is required")
		return
	}

	sub := req.Subtitle
	if strutil.IsBlank(sub) {
		sub = file.FindSiblingSubtitle(req.Video)
	}

	s.controller.SetMediaPath(req.Video)
	if req.Duration > 0 {
		s.controller.SetDuration(secondsToDuration(req.Duration))
	}
	s.controller.SetSubtitlePath(sub)

	if s.store != nil {
		progress, err := s.store.GetProgress(r.Context(), req.Video)
		if err != nil {
			log.Warn("Failed to load watch progress for %s: %v", req.Video, err)
		} else if progress != nil {
			if progress.Duration > 0 {
				s.controller.SetDuration(progress.Duration)
			}
			s.controller.Seek(progress.Position)
		}
	}

	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleSubtitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	// Blank path clears the session.
	s.controller.SetSubtitlePath(req.Path)
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	seconds, ok := decodeSeconds(w, r)
	if !ok {
		return
	}
	s.controller.SetExactTime(secondsToDuration(seconds))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	seconds, ok := decodeSeconds(w, r)
	if !ok {
		return
	}
	s.controller.SetDuration(secondsToDuration(seconds))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	seconds, ok := decodeSeconds(w, r)
	if !ok {
		return
	}
	s.controller.Seek(secondsToDuration(seconds))
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handlePlaying(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Playing bool `json:"playing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	s.controller.SetPlaying(req.Playing)
	writeJSON(w, http.StatusOK, map[string]any{"playing": req.Playing})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AutoPause    *bool `json:"auto_pause"`
		SingleRepeat *bool `json:"single_repeat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AutoPause != nil {
		s.controller.SetAutoPause(*req.AutoPause)
	}
	if req.SingleRepeat != nil {
		s.controller.SetSingleRepeat(*req.SingleRepeat)
	}
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListClips(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}

	hash := r.URL.Query().Get("hash")
	if strutil.IsBlank(hash) {
		writeError(w, http.StatusBadRequest, "hash is required")
		return
	}

	clips, err := s.store.ListClips(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, clips)
}

func (s *Server) handleAddClip(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}

	var req struct {
		SrtHash       string `json:"srt_hash"`
		SentenceIndex int    `json:"sentence_index"`
		Text          string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strutil.HasBlank(req.SrtHash, req.Text) || req.SentenceIndex < 0 {
		writeError(w, http.StatusBadRequest, "srt_hash, sentence_index and text are required")
		return
	}

	clip, err := s.store.AddClip(r.Context(), req.SrtHash, req.SentenceIndex, req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, clip)
}

func (s *Server) handleRemoveClip(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if strutil.IsBlank(id) {
		writeError(w, http.StatusBadRequest, "missing clip id")
		return
	}
	if err := s.store.RemoveClip(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handlePutSettings persists new provider settings and tears down the
// current subtitle session so stale-credential work cannot land.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	var req config.RuntimeSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.settings.UpdateRuntimeSettings(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.apply != nil {
		if err := s.apply(saved); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.controller.SetSubtitlePath("")

	writeJSON(w, http.StatusOK, saved)
}

func decodeSeconds(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return 0, false
	}
	if req.Seconds < 0 {
		writeError(w, http.StatusBadRequest, "seconds must be non-negative")
		return 0, false
	}
	return req.Seconds, true
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
