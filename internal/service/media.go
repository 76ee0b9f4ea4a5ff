package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Media upload failures that map to HTTP 400.
var (
	ErrMediaType     = errors.New("media type not allowed")
	ErrMediaTooLarge = errors.New("media file too large")
)

// allowedMediaExt is the whitelist of photo and video extensions citizens
// may attach to a review.
var allowedMediaExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".mp4": true, ".mov": true, ".avi": true,
}

// MediaStore writes review media files under a base directory with
// collision-free names.  Only the storage-relative path is persisted with
// the review.
type MediaStore struct {
	Dir      string
	MaxBytes int64
}

// NewMediaStore creates the storage directory if needed.
func NewMediaStore(dir string, maxBytes int64) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &MediaStore{Dir: dir, MaxBytes: maxBytes}, nil
}

// Save validates the extension and size of an uploaded file and writes it
// under a random uuid name, returning the storage-relative path.  Reading is
// capped at MaxBytes+1 so an oversized upload is rejected without buffering
// the whole body.
func (m *MediaStore) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedMediaExt[ext] {
		return "", fmt.Errorf("%w: %s", ErrMediaType, ext)
	}

	content, err := io.ReadAll(io.LimitReader(r, m.MaxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(content)) > m.MaxBytes {
		return "", ErrMediaTooLarge
	}

	name := uuid.NewString() + ext
	path := filepath.Join(m.Dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes a stored media file.  Missing files are ignored; the
// review row is the source of truth, not the filesystem.
func (m *MediaStore) Remove(path string) {
	_ = os.Remove(path)
}
