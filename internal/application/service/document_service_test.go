package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

func TestDocumentService(t *testing.T) {
	blobs := &mockBlobs{data: map[string][]byte{"vouchers/1-a.pdf": pdfBytes}}
	media := &mockMedia{}
	svc := NewDocumentService(blobs, media)
	ctx := context.Background()
	checker := actorWith(domainwf.RoleChecker)

	blob, err := svc.Blob(ctx, checker, "/vouchers/1-a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", blob.Ext)
	assert.Equal(t, "application/pdf", blob.ContentType)

	preview, err := svc.Preview(ctx, checker, "vouchers/1-a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "image/png", preview.ContentType)
	assert.Equal(t, 1, media.previews)

	_, err = svc.Blob(ctx, checker, "vouchers/missing.pdf")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	_, err = svc.Blob(ctx, checker, " ")
	assert.ErrorIs(t, err, domainwf.ErrValidation)

	_, err = svc.Blob(ctx, entity.Actor{ID: "u-9"}, "vouchers/1-a.pdf")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
}

func TestSuggestionService(t *testing.T) {
	receipts := &mockReceiptRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Receipt, error) {
			if id == "r-1" {
				return &entity.Receipt{ID: "r-1", ImageURL: "receipts/1-a.pdf", Status: domainwf.StateApproved}, nil
			}
			return nil, nil
		},
	}
	blobs := &mockBlobs{data: map[string][]byte{"receipts/1-a.pdf": pdfBytes}}
	ctx := context.Background()

	t.Run("disabled without extractor", func(t *testing.T) {
		svc := NewSuggestionService(receipts, blobs, &mockMedia{}, nil, &mockLogger{})
		_, err := svc.Suggest(ctx, actorWith(domainwf.RoleVoucher), "r-1")
		assert.ErrorIs(t, err, ErrSuggestionsDisabled)
	})

	t.Run("voucher role only", func(t *testing.T) {
		svc := NewSuggestionService(receipts, blobs, &mockMedia{}, &mockExtractor{}, &mockLogger{})
		_, err := svc.Suggest(ctx, actorWith(domainwf.RoleFinance), "r-1")
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
	})

	t.Run("pdf receipts are rendered before reading", func(t *testing.T) {
		var gotMime string
		extractor := &mockExtractor{
			extractFunc: func(ctx context.Context, image []byte, mimeType string) (*port.ReceiptSuggestion, error) {
				gotMime = mimeType
				return &port.ReceiptSuggestion{Amount: 42.5, Description: "Taxi"}, nil
			},
		}
		media := &mockMedia{}
		svc := NewSuggestionService(receipts, blobs, media, extractor, &mockLogger{})

		s, err := svc.Suggest(ctx, actorWith(domainwf.RoleVoucher), "r-1")
		require.NoError(t, err)
		assert.Equal(t, 42.5, s.Amount)
		assert.Equal(t, "image/png", gotMime)
		assert.Equal(t, 1, media.previews)
	})

	t.Run("extractor failure", func(t *testing.T) {
		extractor := &mockExtractor{
			extractFunc: func(ctx context.Context, image []byte, mimeType string) (*port.ReceiptSuggestion, error) {
				return nil, errors.New("rate limited")
			},
		}
		svc := NewSuggestionService(receipts, blobs, &mockMedia{}, extractor, &mockLogger{})
		_, err := svc.Suggest(ctx, actorWith(domainwf.RoleVoucher), "r-1")
		assert.ErrorContains(t, err, "rate limited")
	})

	t.Run("missing receipt", func(t *testing.T) {
		svc := NewSuggestionService(receipts, blobs, &mockMedia{}, &mockExtractor{}, &mockLogger{})
		_, err := svc.Suggest(ctx, actorWith(domainwf.RoleVoucher), "r-404")
		assert.ErrorIs(t, err, domainwf.ErrNotFound)
	})
}

func TestExportService(t *testing.T) {
	vouchers := &mockVoucherRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Voucher, error) {
			if id == "v-1" {
				return &entity.Voucher{ID: "v-1", TicketNumber: "VOC600123"}, nil
			}
			return nil, nil
		},
		listFunc: func(ctx context.Context, q port.VoucherQuery) ([]*entity.Voucher, error) {
			return []*entity.Voucher{{ID: "v-1"}, {ID: "v-2"}}, nil
		},
	}
	exporter := &mockExporter{}
	svc := NewExportService(vouchers, exporter, NewRoleRouter(), &mockLogger{})
	ctx := context.Background()

	wb, err := svc.PaymentAdvice(ctx, actorWith(domainwf.RolePayment), "v-1")
	require.NoError(t, err)
	assert.Equal(t, "payment_advice_VOC600123.xlsx", wb.Filename)
	assert.Equal(t, []byte("advice-v-1"), wb.Data)

	_, err = svc.PaymentAdvice(ctx, actorWith(domainwf.RoleSubmitter), "v-1")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	_, err = svc.PaymentAdvice(ctx, actorWith(domainwf.RolePayment), "v-404")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)

	wb, err = svc.Register(ctx, actorWith(domainwf.RoleChecker), QueueChecker)
	require.NoError(t, err)
	assert.Equal(t, "vouchers_checker.xlsx", wb.Filename)
	assert.Equal(t, 2, exporter.rows)

	_, err = svc.Register(ctx, actorWith(domainwf.RoleChecker), QueuePayment)
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
}
