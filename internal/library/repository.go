package library

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	UpsertFile(ctx context.Context, file *MediaFile) error
	GetFile(ctx context.Context, id string) (*MediaFile, error)
	GetFileByPath(ctx context.Context, path string) (*MediaFile, error)
	ListFiles(ctx context.Context) ([]*MediaFile, error)
	DeleteFile(ctx context.Context, id string) error
	CountFiles(ctx context.Context) (int, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) UpsertFile(ctx context.Context, f *MediaFile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_files (id, path, filename, size, mtime, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			size = excluded.size,
			mtime = excluded.mtime,
			fingerprint = excluded.fingerprint
	`, f.ID, f.Path, f.Filename, f.Size, f.Mtime.Format(time.RFC3339), f.Fingerprint, f.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetFile(ctx context.Context, id string) (*MediaFile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, path, filename, size, mtime, fingerprint, created_at
		FROM media_files WHERE id = ?
	`, id)
	return r.scanFile(row)
}

func (r *SQLiteRepository) GetFileByPath(ctx context.Context, path string) (*MediaFile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, path, filename, size, mtime, fingerprint, created_at
		FROM media_files WHERE path = ?
	`, path)
	return r.scanFile(row)
}

func (r *SQLiteRepository) scanFile(row *sql.Row) (*MediaFile, error) {
	var f MediaFile
	var mtime, createdAt string

	err := row.Scan(&f.ID, &f.Path, &f.Filename, &f.Size, &mtime, &f.Fingerprint, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f.Mtime, _ = time.Parse(time.RFC3339, mtime)
	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &f, nil
}

func (r *SQLiteRepository) ListFiles(ctx context.Context) ([]*MediaFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, path, filename, size, mtime, fingerprint, created_at
		FROM media_files ORDER BY filename
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*MediaFile
	for rows.Next() {
		var f MediaFile
		var mtime, createdAt string
		if err := rows.Scan(&f.ID, &f.Path, &f.Filename, &f.Size, &mtime, &f.Fingerprint, &createdAt); err != nil {
			return nil, err
		}
		f.Mtime, _ = time.Parse(time.RFC3339, mtime)
		f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		files = append(files, &f)
	}
	return files, rows.Err()
}

func (r *SQLiteRepository) DeleteFile(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM media_files WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountFiles(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_files").Scan(&count)
	return count, err
}
