package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/framecut/framecut-agent/internal/multicam"
)

func createClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}
		if len(req.Assets) == 0 {
			WriteError(w, http.StatusBadRequest, "assets must not be empty", "BAD_REQUEST")
			return
		}

		assets := make([]multicam.MediaAsset, len(req.Assets))
		for i, a := range req.Assets {
			assets[i] = multicam.MediaAsset{
				ID:       a.ID,
				Name:     a.Name,
				FilePath: a.FilePath,
				Width:    a.Width,
				Height:   a.Height,
				Duration: a.Duration,
				FPS:      a.FPS,
			}
		}

		clipID := cfg.Multicam.CreateClip(req.Name, assets)
		WriteJSON(w, http.StatusCreated, CreateClipResponse{ClipID: clipID})
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, ClipsResponse{Clips: cfg.Multicam.Clips()})
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, ok := cfg.Multicam.Clip(chi.URLParam(r, "clipID"))
		if !ok {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clipID := chi.URLParam(r, "clipID")
		if _, ok := cfg.Multicam.Clip(clipID); !ok {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		cfg.Multicam.DeleteClip(clipID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func addSwitchPointHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddSwitchPointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if !cfg.Multicam.AddSwitchPoint(chi.URLParam(r, "clipID"), req.Time, req.AngleID) {
			WriteError(w, http.StatusNotFound, "clip or angle not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeSwitchPointHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, err := strconv.ParseFloat(r.URL.Query().Get("time"), 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "time query parameter is required", "BAD_REQUEST")
			return
		}

		if !cfg.Multicam.RemoveSwitchPoint(chi.URLParam(r, "clipID"), at) {
			WriteError(w, http.StatusBadRequest, "switch point not removable", "BAD_REQUEST")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func exportClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clipID := chi.URLParam(r, "clipID")
		clip, ok := cfg.Multicam.Clip(clipID)
		if !ok {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		var req ExportClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		includeAudio := true
		if req.IncludeAudio != nil {
			includeAudio = *req.IncludeAudio
		}

		desc, err := multicam.CompileExport(&clip, cfg.Multicam.Asset, multicam.ExportOptions{
			ProjectID:    req.ProjectID,
			ProjectName:  req.ProjectName,
			ExportsDir:   cfg.ExportsDir,
			Format:       req.Format,
			IncludeAudio: includeAudio,
			Width:        req.Width,
			Height:       req.Height,
			FPS:          req.FPS,
		})
		if errors.Is(err, multicam.ErrNoSegments) {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NO_SEGMENTS")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		if err := desc.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_DESCRIPTOR")
			return
		}

		submitExport(cfg, w, desc)
	}
}
