// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package media stores uploaded cover images and comic pages on the
// local filesystem. Files are content-addressed: the stored name is the
// SHA-256 of the bytes, sharded into a two-character prefix directory,
// so re-uploading identical content is idempotent and paths never
// collide. The database keeps the returned relative path.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/logging"
)

// Upload kind constants. Covers and pages have separate size caps.
const (
	KindCover = "cover"
	KindPage  = "page"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured cap.
	ErrTooLarge = errors.New("media: file exceeds size limit")
	// ErrUnsupportedType is returned for content that is not an
	// accepted image format.
	ErrUnsupportedType = errors.New("media: unsupported content type")
	// ErrNotFound is returned when a stored file does not exist.
	ErrNotFound = errors.New("media: file not found")
	// ErrInvalidPath is returned for paths that escape the store root.
	ErrInvalidPath = errors.New("media: invalid path")
)

// extensions maps accepted sniffed content types to file extensions.
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store is a filesystem-backed media store.
type Store struct {
	root          string
	maxCoverBytes int64
	maxPageBytes  int64
}

// NewStore creates the store root if needed and returns a Store.
func NewStore(cfg config.MediaConfig) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("media: storage root not configured")
	}
	if err := os.MkdirAll(cfg.Root, 0750); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}

	maxCover := cfg.MaxCoverBytes
	if maxCover <= 0 {
		maxCover = 5 << 20 // 5 MiB
	}
	maxPage := cfg.MaxPageBytes
	if maxPage <= 0 {
		maxPage = 20 << 20 // 20 MiB
	}

	return &Store{
		root:          cfg.Root,
		maxCoverBytes: maxCover,
		maxPageBytes:  maxPage,
	}, nil
}

// maxBytes returns the size cap for an upload kind.
func (s *Store) maxBytes(kind string) int64 {
	if kind == KindPage {
		return s.maxPageBytes
	}
	return s.maxCoverBytes
}

// Save reads an upload, enforces the size cap and image-type allowlist,
// and writes it under a content-addressed name. It returns the relative
// path to store in the database (e.g. "ab/ab12...ef.png").
func (s *Store) Save(kind string, r io.Reader) (string, error) {
	limit := s.maxBytes(kind)

	// Read one byte past the cap so oversize uploads are detected
	// while never buffering more than limit+1 bytes.
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", ErrTooLarge
	}
	if len(data) == 0 {
		return "", ErrUnsupportedType
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:])
	relPath := filepath.Join(name[:2], name+ext)

	absPath := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0750); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	// Identical content already stored; the path is the same.
	if _, err := os.Stat(absPath); err == nil {
		return filepath.ToSlash(relPath), nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(absPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to place upload: %w", err)
	}

	logging.Debug().
		Str("kind", kind).
		Str("path", filepath.ToSlash(relPath)).
		Int("size", len(data)).
		Msg("Stored media file")

	return filepath.ToSlash(relPath), nil
}

// Open returns a reader for a stored file along with its content type
// and size. The caller must close the reader.
func (s *Store) Open(relPath string) (io.ReadSeekCloser, string, int64, error) {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return nil, "", 0, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", 0, ErrNotFound
		}
		return nil, "", 0, fmt.Errorf("failed to open media file: %w", err)
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		if err == nil {
			return nil, "", 0, ErrNotFound
		}
		return nil, "", 0, fmt.Errorf("failed to stat media file: %w", err)
	}

	// Sniff the stored content rather than trusting the extension.
	header := make([]byte, 512)
	n, _ := io.ReadFull(f, header)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, "", 0, fmt.Errorf("failed to rewind media file: %w", err)
	}

	return f, http.DetectContentType(header[:n]), info.Size(), nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(relPath string) error {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// resolve turns a stored relative path into an absolute path inside the
// root, rejecting traversal attempts.
func (s *Store) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", ErrInvalidPath
	}
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, cleaned), nil
}
