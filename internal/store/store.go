// Package store persists export jobs as per-job directories under the
// exports root. Each directory holds the job descriptor (config.json),
// the status record (status.json) and, while a job is processing, its
// transient segment and concat-list files.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/framecut/framecut-agent/internal/export"
)

const (
	descriptorFile = "config.json"
	statusFile     = "status.json"
)

// Store is the durable job record interface. The filesystem backing is
// an implementation detail; scheduler and pipeline only see this.
type Store interface {
	// Create makes the job directory and persists the descriptor plus an
	// initial pending status record.
	Create(cfg *export.Config) error

	// ReadDescriptor loads a job's descriptor.
	ReadDescriptor(jobID string) (*export.Config, error)

	// WriteStatus replaces a job's status record.
	WriteStatus(jobID string, rec *export.StatusRecord) error

	// ReadStatus loads a job's status record. A missing or malformed
	// record reports ok=false rather than an error: the job is simply
	// not observable yet.
	ReadStatus(jobID string) (*export.StatusRecord, bool)

	// List returns all job ids in directory-listing order.
	List() ([]string, error)

	// ListByStatus returns the ids of jobs whose readable status matches.
	ListByStatus(status string) ([]string, error)

	// Delete removes a job's directory recursively.
	Delete(jobID string) error

	// Exists reports whether a job directory is present.
	Exists(jobID string) bool

	// JobDir returns the job's directory path.
	JobDir(jobID string) string
}

// FSStore stores each job in a directory named by its id.
type FSStore struct {
	root string
}

// NewFSStore creates the exports root if needed.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create exports dir: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) JobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

func (s *FSStore) Exists(jobID string) bool {
	info, err := os.Stat(s.JobDir(jobID))
	return err == nil && info.IsDir()
}

func (s *FSStore) Create(cfg *export.Config) error {
	jobDir := s.JobDir(cfg.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("cannot create job dir: %w", err)
	}

	if err := writeJSON(filepath.Join(jobDir, descriptorFile), cfg); err != nil {
		return fmt.Errorf("cannot write descriptor: %w", err)
	}

	rec := &export.StatusRecord{
		JobID:    cfg.ID,
		Status:   export.StatusPending,
		Progress: 0,
		Message:  "Export job created",
	}
	if err := writeJSON(filepath.Join(jobDir, statusFile), rec); err != nil {
		return fmt.Errorf("cannot write initial status: %w", err)
	}
	return nil
}

func (s *FSStore) ReadDescriptor(jobID string) (*export.Config, error) {
	data, err := os.ReadFile(filepath.Join(s.JobDir(jobID), descriptorFile))
	if err != nil {
		return nil, fmt.Errorf("cannot read descriptor: %w", err)
	}
	var cfg export.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse descriptor: %w", err)
	}
	return &cfg, nil
}

func (s *FSStore) WriteStatus(jobID string, rec *export.StatusRecord) error {
	return writeJSON(filepath.Join(s.JobDir(jobID), statusFile), rec)
}

func (s *FSStore) ReadStatus(jobID string) (*export.StatusRecord, bool) {
	data, err := os.ReadFile(filepath.Join(s.JobDir(jobID), statusFile))
	if err != nil {
		return nil, false
	}
	var rec export.StatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A read racing a whole-file replacement can see a torn record;
		// the caller retries on the next poll.
		return nil, false
	}
	return &rec, true
}

func (s *FSStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("cannot list exports dir: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FSStore) ListByStatus(status string) ([]string, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.ReadStatus(id)
		if ok && rec.Status == status {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

func (s *FSStore) Delete(jobID string) error {
	return os.RemoveAll(s.JobDir(jobID))
}

// writeJSON replaces the whole file in one write.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
