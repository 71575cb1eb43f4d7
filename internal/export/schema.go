package export

import (
	"encoding/json"
	"fmt"
)

// ValidationError reports the first schema violation found in a
// submitted descriptor.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// The wire form uses optional booleans so that omitted fields take their
// declared defaults instead of Go's zero value.

type sourceWire struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	FilePath string  `json:"filePath"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	HasAudio *bool   `json:"hasAudio"`
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var w sourceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Source{
		ID:       w.ID,
		Name:     w.Name,
		FilePath: w.FilePath,
		Width:    w.Width,
		Height:   w.Height,
		Duration: w.Duration,
		FPS:      w.FPS,
		HasAudio: w.HasAudio == nil || *w.HasAudio,
	}
	return nil
}

type segmentWire struct {
	SourceIndex     int     `json:"sourceIndex"`
	StartTime       float64 `json:"startTime"`
	EndTime         float64 `json:"endTime"`
	AudioFromSource *bool   `json:"audioFromSource"`
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var w segmentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Segment{
		SourceIndex:     w.SourceIndex,
		StartTime:       w.StartTime,
		EndTime:         w.EndTime,
		AudioFromSource: w.AudioFromSource == nil || *w.AudioFromSource,
	}
	return nil
}

type outputWire struct {
	FilePath     string  `json:"filePath"`
	Format       string  `json:"format"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	FPS          float64 `json:"fps,omitempty"`
	Codec        string  `json:"codec"`
	IncludeAudio *bool   `json:"includeAudio"`
}

func (o *Output) UnmarshalJSON(data []byte) error {
	var w outputWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	format := w.Format
	if format == "" {
		format = FormatMP4
	}
	codec := w.Codec
	if codec == "" {
		codec = CodecCopy
	}
	*o = Output{
		FilePath:     w.FilePath,
		Format:       format,
		Width:        w.Width,
		Height:       w.Height,
		FPS:          w.FPS,
		Codec:        codec,
		IncludeAudio: w.IncludeAudio == nil || *w.IncludeAudio,
	}
	return nil
}

// Validate checks the descriptor against the versioned schema, applying
// remaining defaults, and returns the first violation encountered.
//
// Segment source indices are only checked for non-negativity here;
// resolution against the source list happens at processing time.
func (c *Config) Validate() error {
	if c.Version != SchemaVersion {
		return invalid("version", "must be %d, got %d", SchemaVersion, c.Version)
	}
	if c.ID == "" {
		return invalid("id", "is required")
	}
	if len(c.Sources) == 0 {
		return invalid("sources", "must not be empty")
	}
	if len(c.Segments) == 0 {
		return invalid("segments", "must not be empty")
	}

	for i, s := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if s.FilePath == "" {
			return invalid(field+".filePath", "is required")
		}
		if s.Width < 0 || s.Height < 0 {
			return invalid(field, "dimensions must be positive")
		}
		if s.Duration < 0 {
			return invalid(field+".duration", "must be non-negative")
		}
		if s.FPS < 0 {
			return invalid(field+".fps", "must be positive")
		}
	}

	for i, s := range c.Segments {
		field := fmt.Sprintf("segments[%d]", i)
		if s.SourceIndex < 0 {
			return invalid(field+".sourceIndex", "must be non-negative")
		}
		if s.StartTime < 0 {
			return invalid(field+".startTime", "must be non-negative")
		}
		if s.EndTime <= s.StartTime {
			return invalid(field+".endTime", "must be greater than startTime")
		}
	}

	if c.Output.FilePath == "" {
		return invalid("output.filePath", "is required")
	}
	switch c.Output.Format {
	case FormatMP4, FormatWebM:
	default:
		return invalid("output.format", "must be mp4 or webm, got %q", c.Output.Format)
	}
	switch c.Output.Codec {
	case CodecCopy, CodecH264, CodecH265:
	default:
		return invalid("output.codec", "must be copy, h264 or h265, got %q", c.Output.Codec)
	}

	if c.Status == "" {
		c.Status = StatusPending
	}
	switch c.Status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
	default:
		return invalid("status", "unknown status %q", c.Status)
	}

	return nil
}
