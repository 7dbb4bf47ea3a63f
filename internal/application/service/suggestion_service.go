package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// ErrSuggestionsDisabled is returned when no receipt extractor is configured
var ErrSuggestionsDisabled = errors.New("receipt suggestions are disabled")

// SuggestionService prefills the voucher form from the receipt image. It never writes.
type SuggestionService interface {
	Suggest(ctx context.Context, actor entity.Actor, receiptID string) (*port.ReceiptSuggestion, error)
}

type suggestionServiceImpl struct {
	receipts  port.ReceiptRepository
	blobs     port.BlobStore
	media     port.MediaProcessor
	extractor port.ReceiptExtractor
	logger    Logger
}

// NewSuggestionService creates a SuggestionService. extractor may be nil.
func NewSuggestionService(
	receipts port.ReceiptRepository,
	blobs port.BlobStore,
	media port.MediaProcessor,
	extractor port.ReceiptExtractor,
	logger Logger,
) SuggestionService {
	return &suggestionServiceImpl{
		receipts:  receipts,
		blobs:     blobs,
		media:     media,
		extractor: extractor,
		logger:    logger,
	}
}

func (s *suggestionServiceImpl) Suggest(ctx context.Context, actor entity.Actor, receiptID string) (*port.ReceiptSuggestion, error) {
	if actor.Role != domainwf.RoleVoucher {
		return nil, fmt.Errorf("%w: role %q cannot read receipt suggestions", domainwf.ErrUnauthorized, actor.Role)
	}
	if s.extractor == nil {
		return nil, ErrSuggestionsDisabled
	}

	r, err := s.receipts.GetByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %s: %w", receiptID, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: receipt %s", domainwf.ErrNotFound, receiptID)
	}

	data, err := s.blobs.Get(ctx, r.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt image: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") && s.media != nil {
		// PDFs and HEIC go through the preview renderer first
		preview, err := s.media.Preview(data)
		if err != nil {
			return nil, fmt.Errorf("failed to render receipt for reading: %w", err)
		}
		data, mimeType = preview.Data, preview.ContentType
	}

	suggestion, err := s.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		s.logger.Error("Receipt extraction failed", "receipt_id", receiptID, "error", err)
		return nil, fmt.Errorf("failed to read receipt %s: %w", receiptID, err)
	}

	s.logger.Info("Receipt suggestion produced",
		"receipt_id", receiptID,
		"amount", suggestion.Amount,
		"confidence", suggestion.Confidence)
	return suggestion, nil
}
