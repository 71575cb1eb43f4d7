// Package pipeline executes one export job: cut every segment from its
// source by stream copy, concatenate the pieces into the output file,
// and keep the job's status record current through every phase.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/framecut/framecut-agent/internal/export"
	"github.com/framecut/framecut-agent/internal/ffmpeg"
	"github.com/framecut/framecut-agent/internal/logging"
	"github.com/framecut/framecut-agent/internal/store"
)

// Progress budget: cutting fills [0, 0.8], concatenation the rest.
const (
	cutProgressCeiling = 0.8
	concatProgressBase = 0.85
	concatProgressSpan = 0.14
)

const concatListFile = "concat_list.txt"

// Processor runs export jobs against the job store and the transcode
// executor.
type Processor struct {
	store  store.Store
	exec   ffmpeg.Executor
	logger *slog.Logger
}

func NewProcessor(s store.Store, exec ffmpeg.Executor, logger *slog.Logger) *Processor {
	return &Processor{
		store:  s,
		exec:   exec,
		logger: logging.WithComponent(logger, "pipeline"),
	}
}

// Process runs one job to a terminal state. The returned error reports
// why the attempt stopped; the job's own outcome is in its status
// record. A job failure is not an error here unless the status record
// itself became unwritable (e.g. the job was cancelled mid-flight).
func (p *Processor) Process(ctx context.Context, jobID string) error {
	logger := logging.WithJobID(p.logger, jobID)

	cfg, err := p.store.ReadDescriptor(jobID)
	if err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}

	logger.Info("processing export job", "project", cfg.ProjectName, "segments", len(cfg.Segments))

	if err := p.writeProgress(jobID, 0, "Starting export"); err != nil {
		return err
	}

	if err := p.runJob(ctx, jobID, cfg, logger); err != nil {
		logger.Warn("export job failed", "error", err)
		rec := &export.StatusRecord{
			JobID:    jobID,
			Status:   export.StatusFailed,
			Progress: 0,
			Error:    err.Error(),
		}
		if werr := p.store.WriteStatus(jobID, rec); werr != nil {
			return fmt.Errorf("job %s failed (%v) and status unwritable: %w", jobID, err, werr)
		}
		return nil
	}

	rec := &export.StatusRecord{
		JobID:       jobID,
		Status:      export.StatusCompleted,
		Progress:    1,
		Message:     "Export completed",
		DownloadURL: "/api/export/" + jobID + "/download",
	}
	if err := p.store.WriteStatus(jobID, rec); err != nil {
		return fmt.Errorf("job %s completed but status unwritable: %w", jobID, err)
	}

	logger.Info("export job completed", "output", logging.SanitizePath(cfg.Output.FilePath))
	return nil
}

func (p *Processor) runJob(ctx context.Context, jobID string, cfg *export.Config, logger *slog.Logger) error {
	jobDir := p.store.JobDir(jobID)
	ext := export.Extension(cfg.Output.Format)
	total := len(cfg.Segments)

	// Progress must never move backwards, whatever order ticks arrive in.
	last := 0.0
	advance := func(fraction float64, message string) error {
		if fraction < last {
			return nil
		}
		last = fraction
		return p.writeProgress(jobID, fraction, message)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output.FilePath), 0o755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	segmentFiles := make([]string, 0, total)
	defer func() { p.cleanup(jobDir, segmentFiles) }()

	for i, seg := range cfg.Segments {
		if seg.SourceIndex < 0 || seg.SourceIndex >= len(cfg.Sources) {
			return fmt.Errorf("segment %d references invalid sourceIndex %d", i, seg.SourceIndex)
		}
		source := cfg.Sources[seg.SourceIndex]

		message := fmt.Sprintf("Cutting segment %d of %d", i+1, total)
		base := float64(i) / float64(total) * cutProgressCeiling
		if err := advance(base, message); err != nil {
			return err
		}

		segmentFile := filepath.Join(jobDir, "segment_"+strconv.Itoa(i)+ext)
		segmentFiles = append(segmentFiles, segmentFile)

		args := cutArgs(source.FilePath, segmentFile, seg)
		span := cutProgressCeiling / float64(total)
		result := p.exec.RunWithProgress(ctx, args, seg.EndTime-seg.StartTime, func(f float64) {
			advance(base+f*span, message)
		})
		if !result.IsSuccess() {
			return fmt.Errorf("transcoder exited %d cutting segment %d: %s", result.ExitCode, i, result.ErrorTail())
		}
	}

	listPath := filepath.Join(jobDir, concatListFile)
	if err := writeConcatList(listPath, segmentFiles); err != nil {
		return fmt.Errorf("cannot write concat list: %w", err)
	}

	if err := advance(concatProgressBase, "Concatenating segments"); err != nil {
		return err
	}

	result := p.exec.RunWithProgress(ctx, concatArgs(listPath, cfg.Output.FilePath), totalDuration(cfg.Segments), func(f float64) {
		advance(concatProgressBase+f*concatProgressSpan, "Concatenating segments")
	})
	if !result.IsSuccess() {
		return fmt.Errorf("transcoder exited %d concatenating: %s", result.ExitCode, result.ErrorTail())
	}

	return nil
}

func (p *Processor) writeProgress(jobID string, fraction float64, message string) error {
	rec := &export.StatusRecord{
		JobID:    jobID,
		Status:   export.StatusProcessing,
		Progress: fraction,
		Message:  message,
	}
	if err := p.store.WriteStatus(jobID, rec); err != nil {
		return fmt.Errorf("job %s: cannot write status: %w", jobID, err)
	}
	return nil
}

// cleanup removes intermediate artifacts. Best effort: a leftover
// temp file never fails the job.
func (p *Processor) cleanup(jobDir string, segmentFiles []string) {
	for _, f := range segmentFiles {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			p.logger.Debug("cleanup skipped segment file", "path", logging.SanitizePath(f), "error", err)
		}
	}
	if err := os.Remove(filepath.Join(jobDir, concatListFile)); err != nil && !os.IsNotExist(err) {
		p.logger.Debug("cleanup skipped concat list", "error", err)
	}
}

// cutArgs extracts [startTime, endTime) from the source by stream copy,
// dropping audio when the segment excludes it and re-zeroing timestamps
// so mid-stream cuts concatenate cleanly.
func cutArgs(sourcePath, segmentFile string, seg export.Segment) []string {
	args := []string{
		"-y",
		"-ss", formatSeconds(seg.StartTime),
		"-to", formatSeconds(seg.EndTime),
		"-i", sourcePath,
		"-c", "copy",
	}
	if !seg.AudioFromSource {
		args = append(args, "-an")
	}
	args = append(args, "-avoid_negative_ts", "make_zero", segmentFile)
	return args
}

// concatArgs joins the listed segment files into the output by stream
// copy via the concat demuxer.
func concatArgs(listPath, outputPath string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
}

func writeConcatList(path string, segmentFiles []string) error {
	var b strings.Builder
	for _, f := range segmentFiles {
		fmt.Fprintf(&b, "file '%s'\n", f)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

func totalDuration(segments []export.Segment) float64 {
	var total float64
	for _, seg := range segments {
		total += seg.EndTime - seg.StartTime
	}
	return total
}
