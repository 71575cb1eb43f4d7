package api

import (
	"time"

	"github.com/framecut/framecut-agent/internal/library"
	"github.com/framecut/framecut-agent/internal/multicam"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State          string `json:"state"`
	JobsPending    int    `json:"jobs_pending"`
	JobsProcessing int    `json:"jobs_processing"`
}

type CreateExportResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CancelExportResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// MulticamExportRequest carries a multicam clip, the media assets its
// angles reference, and project-level output settings.
type MulticamExportRequest struct {
	Clip         *multicam.Clip       `json:"clip"`
	Assets       []MulticamAssetInput `json:"assets"`
	ProjectID    string               `json:"projectId"`
	ProjectName  string               `json:"projectName"`
	Format       string               `json:"format,omitempty"`
	IncludeAudio *bool                `json:"includeAudio,omitempty"`
	Width        int                  `json:"width"`
	Height       int                  `json:"height"`
	FPS          float64              `json:"fps"`
}

type MulticamAssetInput struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	FilePath string  `json:"filePath"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
	FPS      float64 `json:"fps"`
}

type CreateClipRequest struct {
	Name   string               `json:"name"`
	Assets []MulticamAssetInput `json:"assets"`
}

type CreateClipResponse struct {
	ClipID string `json:"clipId"`
}

type ClipsResponse struct {
	Clips []multicam.Clip `json:"clips"`
}

type AddSwitchPointRequest struct {
	Time    float64 `json:"time"`
	AngleID string  `json:"angleId"`
}

// ExportClipRequest carries the output settings for exporting a
// manager-held clip.
type ExportClipRequest struct {
	ProjectID    string  `json:"projectId"`
	ProjectName  string  `json:"projectName"`
	Format       string  `json:"format,omitempty"`
	IncludeAudio *bool   `json:"includeAudio,omitempty"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FPS          float64 `json:"fps"`
}

type MediaFileResponse struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}

type MediaFilesResponse struct {
	Files []MediaFileResponse `json:"files"`
}

type ScanResponse struct {
	FilesIndexed int `json:"files_indexed"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func MediaFileToResponse(f *library.MediaFile) MediaFileResponse {
	return MediaFileResponse{
		ID:        f.ID,
		Path:      f.Path,
		Filename:  f.Filename,
		Size:      f.Size,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}
