package multicam

import (
	"errors"
	"path/filepath"
	"sort"
	"time"

	"github.com/framecut/framecut-agent/internal/export"
)

// ErrNoSegments is returned when a clip cannot produce an export: no
// switch points, or every derived segment has non-positive duration.
var ErrNoSegments = errors.New("multicam clip produces no exportable segments")

// AssetResolver looks up a media asset by id.
type AssetResolver func(mediaID string) (*MediaAsset, bool)

// ExportOptions carries the project-level settings the compiler folds
// into the descriptor.
type ExportOptions struct {
	ProjectID    string
	ProjectName  string
	ExportsDir   string // base directory for the output file path
	Format       string // mp4 (default) or webm
	IncludeAudio bool
	Width        int
	Height       int
	FPS          float64
}

// CompileExport translates a multicam clip into an export job
// descriptor. This is the only place sync offsets and switch-point
// ordering are resolved into absolute cut instructions.
func CompileExport(clip *Clip, resolve AssetResolver, opts ExportOptions) (*export.Config, error) {
	if clip == nil || len(clip.SwitchPoints) == 0 {
		return nil, ErrNoSegments
	}

	format := opts.Format
	if format == "" {
		format = export.FormatMP4
	}

	// One source per angle, in angle order, carrying through whatever
	// the library knows about the asset. Audio presence is assumed.
	sources := make([]export.Source, len(clip.Angles))
	angleIndex := make(map[string]int, len(clip.Angles))
	for i, angle := range clip.Angles {
		src := export.Source{
			ID:       angle.MediaID,
			Name:     angle.Name,
			FilePath: angle.MediaID,
			HasAudio: true,
		}
		if asset, ok := resolve(angle.MediaID); ok {
			src.Name = angle.Name
			src.FilePath = asset.FilePath
			src.Width = asset.Width
			src.Height = asset.Height
			src.Duration = asset.Duration
			src.FPS = asset.FPS
		}
		sources[i] = src
		angleIndex[angle.ID] = i
	}

	sorted := make([]SwitchPoint, len(clip.SwitchPoints))
	copy(sorted, clip.SwitchPoints)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	segments := make([]export.Segment, 0, len(sorted))
	for i, sp := range sorted {
		angle := clip.angleByID(sp.AngleID)
		if angle == nil {
			continue
		}

		start := sp.Time
		end := clip.Duration
		if i+1 < len(sorted) {
			end = sorted[i+1].Time
		}
		if end-start <= 0 {
			continue
		}

		segments = append(segments, export.Segment{
			SourceIndex:     angleIndex[sp.AngleID],
			StartTime:       start + angle.SyncOffset,
			EndTime:         end + angle.SyncOffset,
			AudioFromSource: opts.IncludeAudio,
		})
	}

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	id := export.NewJobID()
	return &export.Config{
		Version:     export.SchemaVersion,
		ID:          id,
		ProjectID:   opts.ProjectID,
		ProjectName: opts.ProjectName,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Sources:     sources,
		Segments:    segments,
		Output: export.Output{
			FilePath:     filepath.Join(opts.ExportsDir, id, "output"+export.Extension(format)),
			Format:       format,
			Width:        opts.Width,
			Height:       opts.Height,
			FPS:          opts.FPS,
			Codec:        export.CodecCopy,
			IncludeAudio: opts.IncludeAudio,
		},
		Status: export.StatusPending,
	}, nil
}

func (c *Clip) angleByID(id string) *Angle {
	for i := range c.Angles {
		if c.Angles[i].ID == id {
			return &c.Angles[i]
		}
	}
	return nil
}
