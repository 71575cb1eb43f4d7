package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/framecut/framecut-agent/internal/export"
	"github.com/framecut/framecut-agent/internal/ffmpeg"
	"github.com/framecut/framecut-agent/internal/store"
)

// fakeExecutor records invocations and simulates transcoder outcomes.
type fakeExecutor struct {
	calls    [][]string
	failOn   int // 1-based call index to fail on; 0 = never
	tail     string
	created  bool // create the would-be output file of each call
	progress []float64
}

func (f *fakeExecutor) Run(ctx context.Context, args []string) ffmpeg.Result {
	return f.RunWithProgress(ctx, args, 0, nil)
}

func (f *fakeExecutor) RunWithProgress(ctx context.Context, args []string, total float64, onProgress ffmpeg.ProgressFunc) ffmpeg.Result {
	f.calls = append(f.calls, args)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return ffmpeg.Result{ExitCode: 1, StderrTail: f.tail}
	}
	if onProgress != nil && total > 0 {
		onProgress(0.5)
		onProgress(1)
	}
	if f.created {
		// Last argument is always the output path.
		os.WriteFile(args[len(args)-1], []byte("media"), 0o644)
	}
	return ffmpeg.Result{ExitCode: 0}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.FSStore {
	t.Helper()
	s, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore error: %v", err)
	}
	return s
}

func createJob(t *testing.T, s *store.FSStore, outDir string, segments []export.Segment) *export.Config {
	t.Helper()
	cfg := &export.Config{
		Version:     1,
		ID:          "export-job",
		ProjectID:   "p1",
		ProjectName: "Concert",
		CreatedAt:   "2026-01-10T12:00:00Z",
		Sources: []export.Source{
			{ID: "a", Name: "cam-a.mp4", FilePath: "/media/cam-a.mp4", Duration: 60, HasAudio: true},
			{ID: "b", Name: "cam-b.mp4", FilePath: "/media/cam-b.mp4", Duration: 60, HasAudio: true},
		},
		Segments: segments,
		Output: export.Output{
			FilePath:     filepath.Join(outDir, "output.mp4"),
			Format:       export.FormatMP4,
			Codec:        export.CodecCopy,
			IncludeAudio: true,
		},
		Status: export.StatusPending,
	}
	if err := s.Create(cfg); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return cfg
}

func TestProcess_HappyPath(t *testing.T) {
	s := newTestStore(t)
	outDir := t.TempDir()
	createJob(t, s, outDir, []export.Segment{
		{SourceIndex: 0, StartTime: 0, EndTime: 2, AudioFromSource: true},
		{SourceIndex: 1, StartTime: 2, EndTime: 5, AudioFromSource: false},
	})

	exec := &fakeExecutor{created: true}
	p := NewProcessor(s, exec, testLogger())

	if err := p.Process(context.Background(), "export-job"); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	rec, ok := s.ReadStatus("export-job")
	if !ok {
		t.Fatal("status unreadable after processing")
	}
	if rec.Status != export.StatusCompleted {
		t.Fatalf("status = %q (%s), want completed", rec.Status, rec.Error)
	}
	if rec.Progress != 1 {
		t.Errorf("final progress = %v, want 1", rec.Progress)
	}
	if rec.DownloadURL != "/api/export/export-job/download" {
		t.Errorf("downloadUrl = %q", rec.DownloadURL)
	}

	// Two cuts plus one concat.
	if len(exec.calls) != 3 {
		t.Fatalf("transcoder calls = %d, want 3", len(exec.calls))
	}

	first := strings.Join(exec.calls[0], " ")
	if !strings.Contains(first, "-ss 0 -to 2 -i /media/cam-a.mp4 -c copy") {
		t.Errorf("first cut args = %q", first)
	}
	if strings.Contains(first, "-an") {
		t.Errorf("first cut should keep audio: %q", first)
	}
	second := strings.Join(exec.calls[1], " ")
	if !strings.Contains(second, "-i /media/cam-b.mp4") || !strings.Contains(second, "-an") {
		t.Errorf("second cut args = %q", second)
	}
	if !strings.Contains(second, "-avoid_negative_ts make_zero") {
		t.Errorf("cut args missing timestamp correction: %q", second)
	}
	concat := strings.Join(exec.calls[2], " ")
	if !strings.Contains(concat, "-f concat -safe 0 -i") || !strings.Contains(concat, "output.mp4") {
		t.Errorf("concat args = %q", concat)
	}

	// Intermediates are cleaned up.
	entries, err := os.ReadDir(s.JobDir("export-job"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "segment_") || e.Name() == "concat_list.txt" {
			t.Errorf("leftover intermediate artifact %q", e.Name())
		}
	}
}

func TestProcess_InvalidSourceIndexFailsJob(t *testing.T) {
	s := newTestStore(t)
	createJob(t, s, t.TempDir(), []export.Segment{
		{SourceIndex: 5, StartTime: 0, EndTime: 2, AudioFromSource: true},
	})

	exec := &fakeExecutor{}
	p := NewProcessor(s, exec, testLogger())

	if err := p.Process(context.Background(), "export-job"); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	rec, ok := s.ReadStatus("export-job")
	if !ok {
		t.Fatal("status unreadable")
	}
	if rec.Status != export.StatusFailed {
		t.Fatalf("status = %q, want failed", rec.Status)
	}
	if !strings.Contains(rec.Error, "invalid sourceIndex 5") {
		t.Errorf("error = %q, want invalid sourceIndex", rec.Error)
	}
	if len(exec.calls) != 0 {
		t.Errorf("no transcoder invocation expected, got %d", len(exec.calls))
	}
}

func TestProcess_TranscoderFailureCarriesDiagnostics(t *testing.T) {
	s := newTestStore(t)
	createJob(t, s, t.TempDir(), []export.Segment{
		{SourceIndex: 0, StartTime: 0, EndTime: 2, AudioFromSource: true},
	})

	exec := &fakeExecutor{failOn: 1, tail: "cam-a.mp4: Invalid data found when processing input"}
	p := NewProcessor(s, exec, testLogger())

	if err := p.Process(context.Background(), "export-job"); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	rec, _ := s.ReadStatus("export-job")
	if rec.Status != export.StatusFailed {
		t.Fatalf("status = %q, want failed", rec.Status)
	}
	if rec.Progress != 0 {
		t.Errorf("failed progress = %v, want 0", rec.Progress)
	}
	if !strings.Contains(rec.Error, "Invalid data found") {
		t.Errorf("error = %q, want transcoder diagnostics", rec.Error)
	}
}

func TestProcess_ConcatFailureFailsJob(t *testing.T) {
	s := newTestStore(t)
	createJob(t, s, t.TempDir(), []export.Segment{
		{SourceIndex: 0, StartTime: 0, EndTime: 2, AudioFromSource: true},
	})

	exec := &fakeExecutor{failOn: 2, tail: "concat demuxer error"}
	p := NewProcessor(s, exec, testLogger())

	if err := p.Process(context.Background(), "export-job"); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	rec, _ := s.ReadStatus("export-job")
	if rec.Status != export.StatusFailed {
		t.Fatalf("status = %q, want failed", rec.Status)
	}
	if !strings.Contains(rec.Error, "concatenating") {
		t.Errorf("error = %q", rec.Error)
	}
}

// Progress writes must be monotonically non-decreasing over a
// successful run. Observed by wrapping the store.
type progressRecorder struct {
	*store.FSStore
	fractions []float64
}

func (r *progressRecorder) WriteStatus(jobID string, rec *export.StatusRecord) error {
	r.fractions = append(r.fractions, rec.Progress)
	return r.FSStore.WriteStatus(jobID, rec)
}

func TestProcess_ProgressMonotonic(t *testing.T) {
	s := newTestStore(t)
	createJob(t, s, t.TempDir(), []export.Segment{
		{SourceIndex: 0, StartTime: 0, EndTime: 2, AudioFromSource: true},
		{SourceIndex: 0, StartTime: 2, EndTime: 4, AudioFromSource: true},
		{SourceIndex: 1, StartTime: 4, EndTime: 8, AudioFromSource: true},
	})

	rec := &progressRecorder{FSStore: s}
	p := NewProcessor(rec, &fakeExecutor{created: true}, testLogger())

	if err := p.Process(context.Background(), "export-job"); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if len(rec.fractions) == 0 {
		t.Fatal("no progress writes observed")
	}
	for i := 1; i < len(rec.fractions); i++ {
		if rec.fractions[i] < rec.fractions[i-1] {
			t.Fatalf("progress moved backwards at %d: %v", i, rec.fractions)
		}
	}
	for _, f := range rec.fractions {
		if f < 0 || f > 1 {
			t.Fatalf("progress %v out of [0,1]", f)
		}
	}
	if last := rec.fractions[len(rec.fractions)-1]; last != 1 {
		t.Errorf("final progress = %v, want 1", last)
	}
}

func TestProcess_CancelledMidFlight(t *testing.T) {
	s := newTestStore(t)
	createJob(t, s, t.TempDir(), []export.Segment{
		{SourceIndex: 0, StartTime: 0, EndTime: 2, AudioFromSource: true},
	})

	// Deleting the job directory makes every subsequent status write
	// fail; Process must surface that instead of crashing.
	if err := s.Delete("export-job"); err != nil {
		t.Fatal(err)
	}

	p := NewProcessor(s, &fakeExecutor{}, testLogger())
	if err := p.Process(context.Background(), "export-job"); err == nil {
		t.Fatal("expected error for vanished job directory")
	}
}
