package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

var blobBucket = []byte("blobs")

// BoltBlobStore implements port.BlobStore in a single bbolt file.
// Blob paths are the keys of one bucket.
type BoltBlobStore struct {
	db     *bolt.DB
	refs   refMapper
	logger *zap.Logger
}

// NewBoltBlobStore opens (or creates) the bbolt file at path
func NewBoltBlobStore(path, publicBaseURL string, logger *zap.Logger) (*BoltBlobStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open blob database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blobBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create blob bucket: %w", err)
	}

	logger.Info("Blob database opened", zap.String("path", path))
	return &BoltBlobStore{db: db, refs: newRefMapper(publicBaseURL), logger: logger}, nil
}

// Put stores content under path and returns its URL
func (s *BoltBlobStore) Put(ctx context.Context, path string, content []byte) (string, error) {
	key, err := s.key(path)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blobBucket).Put(key, content)
	})
	if err != nil {
		s.logger.Error("Failed to write blob", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("%w: failed to write blob: %v", domainwf.ErrStoreUnavailable, err)
	}
	return s.refs.url(string(key)), nil
}

// Get reads a blob by URL or path
func (s *BoltBlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	key, err := s.key(ref)
	if err != nil {
		return nil, err
	}

	var content []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blobBucket).Get(key)
		if v == nil {
			return fmt.Errorf("%w: blob %s", domainwf.ErrNotFound, key)
		}
		// values are only valid inside the transaction
		content = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// Exists checks if a blob exists
func (s *BoltBlobStore) Exists(ctx context.Context, ref string) bool {
	key, err := s.key(ref)
	if err != nil {
		return false
	}
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(blobBucket).Get(key) != nil
		return nil
	})
	return found
}

// Delete removes a blob. Deleting a missing blob succeeds.
func (s *BoltBlobStore) Delete(ctx context.Context, ref string) error {
	key, err := s.key(ref)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blobBucket).Delete(key)
	})
	if err != nil {
		s.logger.Error("Failed to delete blob", zap.String("path", string(key)), zap.Error(err))
		return fmt.Errorf("%w: failed to delete blob: %v", domainwf.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the bbolt file
func (s *BoltBlobStore) Close() error {
	return s.db.Close()
}

func (s *BoltBlobStore) key(ref string) ([]byte, error) {
	p, err := s.refs.path(ref)
	if err != nil {
		return nil, domainwf.NewValidationError("path", err.Error())
	}
	return []byte(p), nil
}

// Verify interface compliance
var _ port.BlobStore = (*BoltBlobStore)(nil)
