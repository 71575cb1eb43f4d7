package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/framecut/framecut-agent/internal/export"
	"github.com/framecut/framecut-agent/internal/library"
	"github.com/framecut/framecut-agent/internal/multicam"
	"github.com/framecut/framecut-agent/internal/store"
	"github.com/framecut/framecut-agent/internal/stream"
)

type fakeMedia struct {
	files   []*library.MediaFile
	indexed int
	err     error
}

func (f *fakeMedia) ListFiles(ctx context.Context) ([]*library.MediaFile, error) {
	return f.files, f.err
}

func (f *fakeMedia) Scan(ctx context.Context) (int, error) {
	return f.indexed, f.err
}

type testEnv struct {
	cfg     ServerConfig
	store   *store.FSStore
	jobsDir string
	workDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	workDir := t.TempDir()
	jobsDir := filepath.Join(workDir, "jobs")
	s, err := store.NewFSStore(jobsDir)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		cfg: ServerConfig{
			Port:       0,
			ExportsDir: filepath.Join(workDir, "exports"),
			Store:      s,
			Media:      &fakeMedia{},
			Multicam:   multicam.NewManager(),
			Streamer:   stream.NewStreamer(logger),
			Logger:     logger,
			StartTime:  time.Now(),
		},
		store:   s,
		jobsDir: jobsDir,
		workDir: workDir,
	}
}

func (e *testEnv) sourceFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.workDir, name)
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func (e *testEnv) descriptor(t *testing.T) *export.Config {
	t.Helper()
	return &export.Config{
		Version:     export.SchemaVersion,
		ID:          "export-test-1",
		ProjectID:   "proj-1",
		ProjectName: "My Project",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Sources: []export.Source{
			{ID: "src-1", Name: "a.mp4", FilePath: e.sourceFile(t, "a.mp4"), Width: 1920, Height: 1080, Duration: 30, FPS: 30, HasAudio: true},
		},
		Segments: []export.Segment{
			{SourceIndex: 0, StartTime: 1, EndTime: 4, AudioFromSource: true},
		},
		Output: export.Output{
			FilePath:     filepath.Join(e.workDir, "exports", "export-test-1", "output.mp4"),
			Format:       export.FormatMP4,
			Width:        1920,
			Height:       1080,
			FPS:          30,
			Codec:        export.CodecCopy,
			IncludeAudio: true,
		},
		Status: export.StatusPending,
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (body = %s)", err, rr.Body.String())
	}
	return body
}

func TestCreateExport(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	rr := postJSON(t, router, "/api/export", env.descriptor(t))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body = %s)", rr.Code, rr.Body.String())
	}

	body := decodeJSONBody(t, rr)
	if body["jobId"] != "export-test-1" {
		t.Errorf("jobId = %v", body["jobId"])
	}
	if body["status"] != export.StatusPending {
		t.Errorf("status = %v, want pending", body["status"])
	}

	rec, ok := env.store.ReadStatus("export-test-1")
	if !ok {
		t.Fatal("status record not persisted")
	}
	if rec.Status != export.StatusPending {
		t.Errorf("persisted status = %s, want pending", rec.Status)
	}
}

func TestCreateExport_InvalidDescriptor(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	desc := env.descriptor(t)
	desc.Segments = nil

	rr := postJSON(t, router, "/api/export", desc)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env.store.Exists(desc.ID) {
		t.Error("invalid descriptor was persisted")
	}
}

func TestCreateExport_MissingSourceFile(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	desc := env.descriptor(t)
	missing := filepath.Join(env.workDir, "absent.mp4")
	desc.Sources[0].FilePath = missing

	rr := postJSON(t, router, "/api/export", desc)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	body := decodeJSONBody(t, rr)
	errMsg, _ := body["error"].(string)
	if errMsg != "source file not found: "+missing {
		t.Errorf("error = %q, should name the missing path", errMsg)
	}
}

func TestCreateExport_DuplicateJob(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	desc := env.descriptor(t)
	if rr := postJSON(t, router, "/api/export", desc); rr.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rr.Code)
	}
	if rr := postJSON(t, router, "/api/export", desc); rr.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409", rr.Code)
	}
}

func TestExportStatus(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	desc := env.descriptor(t)
	postJSON(t, router, "/api/export", desc)

	req := httptest.NewRequest(http.MethodGet, "/api/export/export-test-1/status", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["jobId"] != "export-test-1" || body["status"] != export.StatusPending {
		t.Errorf("body = %v", body)
	}
}

func TestExportStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/export/export-missing/status", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestCancelExport(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	desc := env.descriptor(t)
	postJSON(t, router, "/api/export", desc)

	req := httptest.NewRequest(http.MethodDelete, "/api/export/export-test-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if env.store.Exists("export-test-1") {
		t.Error("job dir still present after cancel")
	}
}

func TestCancelExport_NotFound(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	req := httptest.NewRequest(http.MethodDelete, "/api/export/export-missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestDownloadExport(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	desc := env.descriptor(t)
	postJSON(t, router, "/api/export", desc)

	if err := os.MkdirAll(filepath.Dir(desc.Output.FilePath), 0755); err != nil {
		t.Fatalf("mkdir output: %v", err)
	}
	if err := os.WriteFile(desc.Output.FilePath, []byte("final video"), 0644); err != nil {
		t.Fatalf("write output: %v", err)
	}
	err := env.store.WriteStatus(desc.ID, &export.StatusRecord{
		JobID: desc.ID, Status: export.StatusCompleted, Progress: 1,
	})
	if err != nil {
		t.Fatalf("WriteStatus() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/export/export-test-1/download", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body = %s)", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "final video" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="My Project.mp4"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestDownloadExport_NotCompleted(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	postJSON(t, router, "/api/export", env.descriptor(t))

	req := httptest.NewRequest(http.MethodGet, "/api/export/export-test-1/download", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestDownloadExport_NotFound(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/export/export-missing/download", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
