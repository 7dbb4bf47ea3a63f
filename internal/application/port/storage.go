package port

import "context"

// BlobStore stores uploaded documents. Put returns the URL recorded on the
// owning record; Get and Delete accept either that URL or the raw path.
type BlobStore interface {
	Put(ctx context.Context, path string, content []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) bool
}

// Media is a normalised upload ready for the blob store
type Media struct {
	Data        []byte
	Ext         string
	ContentType string
}

// MediaProcessor converts uploads into storable form and renders previews
type MediaProcessor interface {
	// Normalize decodes HEIC to JPEG and downsizes oversized images. PDFs pass through.
	Normalize(data []byte, filename string) (*Media, error)
	// Preview renders the first page of a PDF or a thumbnail of an image
	Preview(data []byte) (*Media, error)
}
