package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// Options tunes upload normalisation
type Options struct {
	MaxDimension     int
	JPEGQuality      int
	PreviewDimension int
}

// DefaultOptions returns the settings used when config leaves them unset
func DefaultOptions() Options {
	return Options{
		MaxDimension:     2048,
		JPEGQuality:      85,
		PreviewDimension: 1024,
	}
}

// Processor implements port.MediaProcessor
type Processor struct {
	opts   Options
	logger *zap.Logger
}

// NewProcessor creates a media processor. Zero options fall back to defaults.
func NewProcessor(opts Options, logger *zap.Logger) *Processor {
	def := DefaultOptions()
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.PreviewDimension <= 0 {
		opts.PreviewDimension = def.PreviewDimension
	}
	return &Processor{opts: opts, logger: logger}
}

// Normalize prepares an upload for storage. PDFs pass through untouched, HEIC
// photos become JPEG and images larger than MaxDimension are downscaled.
func (p *Processor) Normalize(data []byte, filename string) (*port.Media, error) {
	if len(data) == 0 {
		return nil, domainwf.NewValidationError("file", "upload is empty")
	}

	switch {
	case IsPDF(data):
		return &port.Media{Data: data, Ext: "pdf", ContentType: "application/pdf"}, nil

	case IsHEIC(data):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, domainwf.NewValidationError("file", fmt.Sprintf("cannot decode HEIC image: %v", err))
		}
		p.logger.Debug("Converting HEIC upload to JPEG",
			zap.String("filename", filename),
			zap.Int("width", img.Bounds().Dx()),
			zap.Int("height", img.Bounds().Dy()))
		return p.encode(p.fit(img, p.opts.MaxDimension), imaging.JPEG)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domainwf.NewValidationError("file", "unsupported file type, expected an image or PDF")
	}

	format := imaging.JPEG
	if _, name, _ := image.DecodeConfig(bytes.NewReader(data)); name == "png" {
		format = imaging.PNG
	}

	b := img.Bounds()
	if b.Dx() <= p.opts.MaxDimension && b.Dy() <= p.opts.MaxDimension && (format == imaging.PNG || isJPEG(data)) {
		return &port.Media{Data: data, Ext: extFor(format), ContentType: contentTypeFor(format)}, nil
	}

	p.logger.Debug("Re-encoding upload",
		zap.String("filename", filename),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
		zap.Int("max_dimension", p.opts.MaxDimension))
	return p.encode(p.fit(img, p.opts.MaxDimension), format)
}

// Preview renders a PNG of the first PDF page or a downscaled copy of an image
func (p *Processor) Preview(data []byte) (*port.Media, error) {
	if len(data) == 0 {
		return nil, domainwf.NewValidationError("file", "document is empty")
	}

	var img image.Image
	switch {
	case IsPDF(data):
		page, err := firstPage(data)
		if err != nil {
			return nil, domainwf.NewValidationError("file", err.Error())
		}
		img = page
	case IsHEIC(data):
		decoded, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, domainwf.NewValidationError("file", fmt.Sprintf("cannot decode HEIC image: %v", err))
		}
		img = decoded
	default:
		decoded, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, domainwf.NewValidationError("file", "unsupported file type, expected an image or PDF")
		}
		img = decoded
	}

	return p.encode(p.fit(img, p.opts.PreviewDimension), imaging.PNG)
}

func (p *Processor) fit(img image.Image, limit int) image.Image {
	b := img.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return img
	}
	return imaging.Fit(img, limit, limit, imaging.Lanczos)
}

func (p *Processor) encode(img image.Image, format imaging.Format) (*port.Media, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(p.opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", extFor(format), err)
	}
	return &port.Media{Data: buf.Bytes(), Ext: extFor(format), ContentType: contentTypeFor(format)}, nil
}

// firstPage renders page one of a PDF
func firstPage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("cannot open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("cannot render PDF page: %w", err)
	}
	return img, nil
}

// IsPDF reports whether data starts with the PDF magic bytes
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// IsHEIC checks the ISO-BMFF ftyp box for a HEIC/HEIF brand
func IsHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isJPEG(data []byte) bool {
	return len(data) > 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}

func extFor(f imaging.Format) string {
	if f == imaging.PNG {
		return "png"
	}
	return "jpg"
}

func contentTypeFor(f imaging.Format) string {
	if f == imaging.PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Verify interface compliance
var _ port.MediaProcessor = (*Processor)(nil)
