package stream

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func serveTestFile(t *testing.T, content string, rangeHeader string, opts Options) *httptest.ResponseRecorder {
	t.Helper()

	path := filepath.Join(t.TempDir(), "output.mp4")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()

	if err := NewStreamer(nil).ServeFile(w, req, path, opts); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}
	return w
}

func TestServeFile_FullResponse(t *testing.T) {
	w := serveTestFile(t, "0123456789", "", Options{})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "0123456789" {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if got := w.Header().Get("Content-Length"); got != "10" {
		t.Errorf("Content-Length = %q", got)
	}
}

func TestServeFile_PartialContent(t *testing.T) {
	w := serveTestFile(t, "0123456789", "bytes=2-5", Options{})

	if w.Code != http.StatusPartialContent {
		t.Errorf("status = %d, want 206", w.Code)
	}
	if w.Body.String() != "2345" {
		t.Errorf("body = %q, want 2345", w.Body.String())
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeFile_UnsatisfiableRange(t *testing.T) {
	w := serveTestFile(t, "0123456789", "bytes=100-", Options{})

	if w.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("status = %d, want 416", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeFile_MalformedRangeFallsBackToFull(t *testing.T) {
	w := serveTestFile(t, "0123456789", "bytes=abc", Options{})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "0123456789" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestServeFile_AttachmentHeaders(t *testing.T) {
	w := serveTestFile(t, "video", "", Options{ContentType: "video/webm", Filename: "My Project.webm"})

	if got := w.Header().Get("Content-Type"); got != "video/webm" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="My Project.webm"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestServeFile_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	w := httptest.NewRecorder()

	err := NewStreamer(nil).ServeFile(w, req, filepath.Join(t.TempDir(), "absent.mp4"), Options{})
	if err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
