package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/framecut/framecut-agent/internal/export"
	"github.com/framecut/framecut-agent/internal/multicam"
	"github.com/framecut/framecut-agent/internal/stream"
)

func createExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var desc export.Config
		if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := desc.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_DESCRIPTOR")
			return
		}

		submitExport(cfg, w, &desc)
	}
}

func submitExport(cfg ServerConfig, w http.ResponseWriter, desc *export.Config) {
	if cfg.Store.Exists(desc.ID) {
		WriteError(w, http.StatusConflict, "export job already exists: "+desc.ID, "JOB_EXISTS")
		return
	}

	for _, src := range desc.Sources {
		if _, err := os.Stat(src.FilePath); err != nil {
			WriteError(w, http.StatusBadRequest, "source file not found: "+src.FilePath, "SOURCE_MISSING")
			return
		}
	}

	if err := os.MkdirAll(filepath.Dir(desc.Output.FilePath), 0755); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to create output directory", "INTERNAL_ERROR")
		return
	}

	if err := cfg.Store.Create(desc); err != nil {
		cfg.Logger.Error("failed to create export job", "job_id", desc.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to create export job", "INTERNAL_ERROR")
		return
	}

	WriteJSON(w, http.StatusCreated, CreateExportResponse{
		JobID:   desc.ID,
		Status:  export.StatusPending,
		Message: "Export job created",
	})
}

func createMulticamExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MulticamExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Clip == nil {
			WriteError(w, http.StatusBadRequest, "clip is required", "BAD_REQUEST")
			return
		}

		assets := make(map[string]*multicam.MediaAsset, len(req.Assets))
		for i := range req.Assets {
			a := req.Assets[i]
			assets[a.ID] = &multicam.MediaAsset{
				ID:       a.ID,
				Name:     a.Name,
				FilePath: a.FilePath,
				Width:    a.Width,
				Height:   a.Height,
				Duration: a.Duration,
				FPS:      a.FPS,
			}
		}
		resolve := func(mediaID string) (*multicam.MediaAsset, bool) {
			a, ok := assets[mediaID]
			return a, ok
		}

		includeAudio := true
		if req.IncludeAudio != nil {
			includeAudio = *req.IncludeAudio
		}

		desc, err := multicam.CompileExport(req.Clip, resolve, multicam.ExportOptions{
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

func exportStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		rec, ok := cfg.Store.ReadStatus(jobID)
		if !ok {
			WriteError(w, http.StatusNotFound, "export job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, rec)
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		if !cfg.Store.Exists(jobID) {
			WriteError(w, http.StatusNotFound, "export job not found", "NOT_FOUND")
			return
		}

		if err := cfg.Store.Delete(jobID); err != nil {
			cfg.Logger.Error("failed to delete export job", "job_id", jobID, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to cancel export job", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, CancelExportResponse{
			JobID:   jobID,
			Message: "Export job cancelled",
		})
	}
}

func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		rec, ok := cfg.Store.ReadStatus(jobID)
		if !ok {
			WriteError(w, http.StatusNotFound, "export job not found", "NOT_FOUND")
			return
		}
		if rec.Status != export.StatusCompleted {
			WriteError(w, http.StatusBadRequest, "export is not completed", "NOT_COMPLETED")
			return
		}

		desc, err := cfg.Store.ReadDescriptor(jobID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to read export job", "INTERNAL_ERROR")
			return
		}

		name := export.SanitizeName(desc.ProjectName, 120)
		if name == "" {
			name = jobID
		}

		err = cfg.Streamer.ServeFile(w, r, desc.Output.FilePath, stream.Options{
			ContentType: export.ContentType(desc.Output.Format),
			Filename:    name + export.Extension(desc.Output.Format),
		})
		if err != nil {
			cfg.Logger.Error("download error", "job_id", jobID, "error", err)
		}
	}
}
