package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// DocumentService serves stored blobs and their previews to signed-in users
type DocumentService interface {
	Blob(ctx context.Context, actor entity.Actor, ref string) (*port.Media, error)
	Preview(ctx context.Context, actor entity.Actor, ref string) (*port.Media, error)
}

type documentServiceImpl struct {
	blobs port.BlobStore
	media port.MediaProcessor
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(blobs port.BlobStore, media port.MediaProcessor) DocumentService {
	return &documentServiceImpl{blobs: blobs, media: media}
}

func (s *documentServiceImpl) Blob(ctx context.Context, actor entity.Actor, ref string) (*port.Media, error) {
	data, err := s.read(ctx, actor, ref)
	if err != nil {
		return nil, err
	}
	return &port.Media{Data: data, Ext: extension(ref), ContentType: http.DetectContentType(data)}, nil
}

func (s *documentServiceImpl) Preview(ctx context.Context, actor entity.Actor, ref string) (*port.Media, error) {
	data, err := s.read(ctx, actor, ref)
	if err != nil {
		return nil, err
	}
	preview, err := s.media.Preview(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render preview of %s: %w", ref, err)
	}
	return preview, nil
}

func (s *documentServiceImpl) read(ctx context.Context, actor entity.Actor, ref string) ([]byte, error) {
	if !actor.Role.IsValid() {
		return nil, fmt.Errorf("%w: documents require a designation", domainwf.ErrUnauthorized)
	}
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "/")
	if ref == "" {
		return nil, domainwf.NewValidationError("path", "path is required")
	}
	if !s.blobs.Exists(ctx, ref) {
		return nil, fmt.Errorf("%w: blob %s", domainwf.ErrNotFound, ref)
	}
	data, err := s.blobs.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", ref, err)
	}
	return data, nil
}

func extension(ref string) string {
	if i := strings.LastIndex(ref, "."); i >= 0 && i < len(ref)-1 {
		return strings.ToLower(ref[i+1:])
	}
	return ""
}
