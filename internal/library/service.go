package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fingerprintSize = 64 * 1024

// Service indexes the media root so the editor can list sources by
// path before submitting export jobs.
type Service struct {
	repo     Repository
	mediaDir string
	logger   *slog.Logger
}

func NewService(repo Repository, mediaDir string, logger *slog.Logger) *Service {
	return &Service{repo: repo, mediaDir: mediaDir, logger: logger}
}

func (s *Service) ListFiles(ctx context.Context) ([]*MediaFile, error) {
	return s.repo.ListFiles(ctx)
}

func (s *Service) GetFile(ctx context.Context, id string) (*MediaFile, error) {
	return s.repo.GetFile(ctx, id)
}

func (s *Service) CountFiles(ctx context.Context) (int, error) {
	return s.repo.CountFiles(ctx)
}

// Scan walks the media root and upserts every video file it finds.
// Returns the number of files indexed.
func (s *Service) Scan(ctx context.Context) (int, error) {
	info, err := os.Stat(s.mediaDir)
	if err != nil {
		return 0, fmt.Errorf("media directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("media path is not a directory: %s", s.mediaDir)
	}

	var files []string
	err = filepath.WalkDir(s.mediaDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && IsVideoFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, path := range files {
		select {
		case <-ctx.Done():
			return indexed, ctx.Err()
		default:
		}

		if err := s.indexFile(ctx, path); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to index file", "path", path, "error", err)
			}
			continue
		}
		indexed++
	}

	if s.logger != nil {
		s.logger.Info("media scan completed", "files_indexed", indexed)
	}
	return indexed, nil
}

func (s *Service) indexFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	fingerprint, err := computeFingerprint(path)
	if err != nil {
		return err
	}

	file := &MediaFile{
		ID:          uuid.NewString(),
		Path:        path,
		Filename:    filepath.Base(path),
		Size:        info.Size(),
		Mtime:       info.ModTime(),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}

	return s.repo.UpsertFile(ctx, file)
}

func computeFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	lr := io.LimitReader(f, fingerprintSize)
	if _, err := io.Copy(h, lr); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
