package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// LocalBlobStore implements port.BlobStore on the local filesystem
type LocalBlobStore struct {
	baseDir string
	refs    refMapper
	logger  *zap.Logger
}

// NewLocalBlobStore creates a LocalBlobStore rooted at baseDir. Blob URLs are
// publicBaseURL joined with the blob path.
func NewLocalBlobStore(baseDir, publicBaseURL string, logger *zap.Logger) (*LocalBlobStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", baseDir, err)
	}
	return &LocalBlobStore{
		baseDir: baseDir,
		refs:    newRefMapper(publicBaseURL),
		logger:  logger,
	}, nil
}

// Put writes content to the relative path and returns its URL
func (s *LocalBlobStore) Put(ctx context.Context, path string, content []byte) (string, error) {
	rel, fullPath, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return "", fmt.Errorf("%w: failed to create directories: %v", domainwf.ErrStoreUnavailable, err)
	}

	// write then rename so readers never see a partial blob
	tmp := fullPath + ".part"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		s.logger.Error("Failed to write blob", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("%w: failed to write blob: %v", domainwf.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		s.logger.Error("Failed to move blob into place", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("%w: failed to write blob: %v", domainwf.ErrStoreUnavailable, err)
	}

	s.logger.Debug("Blob saved",
		zap.String("path", rel),
		zap.Int("size", len(content)))
	return s.refs.url(rel), nil
}

// Get reads a blob by URL or path
func (s *LocalBlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	rel, fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %s", domainwf.ErrNotFound, rel)
	}
	if err != nil {
		s.logger.Error("Failed to read blob", zap.String("path", fullPath), zap.Error(err))
		return nil, fmt.Errorf("%w: failed to read blob: %v", domainwf.ErrStoreUnavailable, err)
	}
	return content, nil
}

// Exists checks if a blob exists
func (s *LocalBlobStore) Exists(ctx context.Context, ref string) bool {
	_, fullPath, err := s.resolve(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// Delete removes a blob. Deleting a missing blob succeeds.
func (s *LocalBlobStore) Delete(ctx context.Context, ref string) error {
	rel, fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to delete blob", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("%w: failed to delete blob: %v", domainwf.ErrStoreUnavailable, err)
	}

	s.logger.Debug("Blob deleted", zap.String("path", rel))
	return nil
}

// resolve maps a ref to its relative path and a full path inside baseDir
func (s *LocalBlobStore) resolve(ref string) (string, string, error) {
	rel, err := s.refs.path(ref)
	if err != nil {
		return "", "", domainwf.NewValidationError("path", err.Error())
	}
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(rel))
	if err := s.validatePath(fullPath); err != nil {
		return "", "", domainwf.NewValidationError("path", err.Error())
	}
	return rel, fullPath, nil
}

// validatePath checks that the path is within baseDir
func (s *LocalBlobStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// Verify interface compliance
var _ port.BlobStore = (*LocalBlobStore)(nil)
