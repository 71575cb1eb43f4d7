// Package export defines the versioned job descriptor that the editor
// submits and the status record the processor maintains. The JSON field
// names are the wire contract and must not change.
package export

import "github.com/google/uuid"

// SchemaVersion is the only accepted descriptor version.
const SchemaVersion = 1

// Job lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Output container formats.
const (
	FormatMP4  = "mp4"
	FormatWebM = "webm"
)

// Output codec modes. Only CodecCopy is exercised by the pipeline;
// the re-encode modes are reserved.
const (
	CodecCopy = "copy"
	CodecH264 = "h264"
	CodecH265 = "h265"
)

// Source is one input media file referenced by index from segments.
type Source struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	FilePath string  `json:"filePath"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	HasAudio bool    `json:"hasAudio"`
}

// Segment is one cut instruction: a contiguous time range of a single
// source, in output order.
type Segment struct {
	SourceIndex     int     `json:"sourceIndex"`
	StartTime       float64 `json:"startTime"`
	EndTime         float64 `json:"endTime"`
	AudioFromSource bool    `json:"audioFromSource"`
}

// Output describes the target file.
type Output struct {
	FilePath     string  `json:"filePath"`
	Format       string  `json:"format"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	FPS          float64 `json:"fps,omitempty"`
	Codec        string  `json:"codec"`
	IncludeAudio bool    `json:"includeAudio"`
}

// Config is the unit of work: one export job descriptor.
type Config struct {
	Version     int       `json:"version"`
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	ProjectName string    `json:"projectName"`
	CreatedAt   string    `json:"createdAt"`
	Sources     []Source  `json:"sources"`
	Segments    []Segment `json:"segments"`
	Output      Output    `json:"output"`
	Status      string    `json:"status"`
}

// StatusRecord is the single mutable, externally observable projection
// of a job. It is overwritten in place, never appended to.
type StatusRecord struct {
	JobID       string  `json:"jobId"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	Message     string  `json:"message,omitempty"`
	Error       string  `json:"error,omitempty"`
	DownloadURL string  `json:"downloadUrl,omitempty"`
}

// Extension returns the output file extension for a container format.
func Extension(format string) string {
	if format == FormatWebM {
		return ".webm"
	}
	return ".mp4"
}

// ContentType returns the media content type for a container format.
func ContentType(format string) string {
	if format == FormatWebM {
		return "video/webm"
	}
	return "video/mp4"
}

// NewJobID generates an export job identifier.
func NewJobID() string {
	return "export-" + uuid.NewString()
}
