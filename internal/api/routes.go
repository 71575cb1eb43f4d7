package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framecut/framecut-agent/internal/export"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusHandler(cfg))

		r.Post("/export", createExportHandler(cfg))
		r.Post("/export/multicam", createMulticamExportHandler(cfg))
		r.Get("/export/{jobID}/status", exportStatusHandler(cfg))
		r.Delete("/export/{jobID}", cancelExportHandler(cfg))
		r.Get("/export/{jobID}/download", downloadExportHandler(cfg))

		r.Post("/multicam/clips", createClipHandler(cfg))
		r.Get("/multicam/clips", listClipsHandler(cfg))
		r.Get("/multicam/clips/{clipID}", getClipHandler(cfg))
		r.Delete("/multicam/clips/{clipID}", deleteClipHandler(cfg))
		r.Post("/multicam/clips/{clipID}/switch", addSwitchPointHandler(cfg))
		r.Delete("/multicam/clips/{clipID}/switch", removeSwitchPointHandler(cfg))
		r.Post("/multicam/clips/{clipID}/export", exportClipHandler(cfg))

		r.Get("/media", listMediaHandler(cfg))
		r.Post("/media/scan", scanMediaHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: "0.1.0",
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{State: "idle"}

		if cfg.Runner != nil {
			if cfg.Runner.IsPaused() {
				resp.State = "paused"
			} else if !cfg.Runner.IsRunning() {
				resp.State = "stopped"
			}
		}

		ids, err := cfg.Store.List()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}
		for _, id := range ids {
			rec, ok := cfg.Store.ReadStatus(id)
			if !ok {
				continue
			}
			switch rec.Status {
			case export.StatusPending:
				resp.JobsPending++
			case export.StatusProcessing:
				resp.State = "processing"
				resp.JobsProcessing++
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := cfg.Media.ListFiles(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list media", "INTERNAL_ERROR")
			return
		}

		resp := MediaFilesResponse{Files: make([]MediaFileResponse, len(files))}
		for i, f := range files {
			resp.Files[i] = MediaFileToResponse(f)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func scanMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indexed, err := cfg.Media.Scan(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ScanResponse{FilesIndexed: indexed})
	}
}
