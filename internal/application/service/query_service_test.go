package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

func newQueryService(receipts *mockReceiptRepo, vouchers *mockVoucherRepo) QueryService {
	return NewQueryService(receipts, vouchers, NewRoleRouter(), &mockLogger{})
}

func TestQueryService_ReceiptQueueBuildsQuery(t *testing.T) {
	tests := []struct {
		name      string
		actor     entity.Actor
		queue     Queue
		status    string
		wantQuery port.ReceiptQuery
	}{
		{
			name:  "submitter lists own receipts",
			actor: actorWith(domainwf.RoleSubmitter),
			queue: QueueMyReceipts,
			wantQuery: port.ReceiptQuery{
				CreatedBy: "u-admin",
				OrderBy:   port.OrderCreatedAt,
			},
		},
		{
			name:  "finance without filter sees the whole company",
			actor: actorWith(domainwf.RoleFinance),
			queue: QueueFinance,
			wantQuery: port.ReceiptQuery{
				Company: "Acme",
				OrderBy: port.OrderCreatedAt,
			},
		},
		{
			name:   "finance filtered by status",
			actor:  actorWith(domainwf.RoleFinance),
			queue:  QueueFinance,
			status: "pending",
			wantQuery: port.ReceiptQuery{
				Company:  "Acme",
				Statuses: []domainwf.State{domainwf.StatePending},
				OrderBy:  port.OrderCreatedAt,
			},
		},
		{
			name:  "voucher creator lists approved receipts",
			actor: actorWith(domainwf.RoleVoucher),
			queue: QueueApprovedReceipts,
			wantQuery: port.ReceiptQuery{
				Statuses: []domainwf.State{domainwf.StateApproved},
				OrderBy:  port.OrderApprovedAt,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got port.ReceiptQuery
			receipts := &mockReceiptRepo{
				listFunc: func(ctx context.Context, q port.ReceiptQuery) ([]*entity.Receipt, error) {
					got = q
					return nil, nil
				},
			}
			svc := newQueryService(receipts, &mockVoucherRepo{})

			views, err := svc.ReceiptQueue(context.Background(), tt.actor, tt.queue, tt.status)
			require.NoError(t, err)
			assert.Empty(t, views)
			assert.Equal(t, tt.wantQuery, got)
		})
	}
}

func TestQueryService_ReceiptQueueRejections(t *testing.T) {
	svc := newQueryService(&mockReceiptRepo{}, &mockVoucherRepo{})
	ctx := context.Background()

	_, err := svc.ReceiptQueue(ctx, actorWith(domainwf.RoleSubmitter), QueueFinance, "")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	_, err = svc.ReceiptQueue(ctx, actorWith(domainwf.RoleChecker), QueueChecker, "")
	var verr *domainwf.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "queue", verr.Field)

	_, err = svc.ReceiptQueue(ctx, actorWith(domainwf.RoleFinance), QueueFinance, "checked")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestQueryService_ReceiptViewsCarryCombinedStatus(t *testing.T) {
	receipts := &mockReceiptRepo{
		listFunc: func(ctx context.Context, q port.ReceiptQuery) ([]*entity.Receipt, error) {
			return []*entity.Receipt{
				{ID: "r-1", Status: domainwf.StatePending, CreatedBy: "u-admin"},
				{ID: "r-2", Status: domainwf.StateVoucherCreated, CreatedBy: "u-admin", VoucherID: "v-1"},
			}, nil
		},
	}
	vouchers := &mockVoucherRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Voucher, error) {
			return &entity.Voucher{ID: id, ReceiptID: "r-2", Status: domainwf.StateInitiated}, nil
		},
	}
	svc := newQueryService(receipts, vouchers)

	views, err := svc.ReceiptQueue(context.Background(), actorWith(domainwf.RoleSubmitter), QueueMyReceipts, "")
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, domainwf.StatePending, views[0].CombinedStatus)
	assert.Nil(t, views[0].Voucher)
	assert.Equal(t, domainwf.StateInitiated, views[1].CombinedStatus)
	require.NotNil(t, views[1].Voucher)
	assert.Equal(t, "v-1", views[1].Voucher.ID)
}

func TestQueryService_VoucherQueue(t *testing.T) {
	var got port.VoucherQuery
	vouchers := &mockVoucherRepo{
		listFunc: func(ctx context.Context, q port.VoucherQuery) ([]*entity.Voucher, error) {
			got = q
			return []*entity.Voucher{{ID: "v-1"}}, nil
		},
	}
	svc := newQueryService(&mockReceiptRepo{}, vouchers)
	ctx := context.Background()

	list, err := svc.VoucherQueue(ctx, actorWith(domainwf.RolePayment), QueuePayment, "  VOC12 ")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "VOC12", got.Ticket)
	assert.Equal(t, []domainwf.State{domainwf.StateInitiated, domainwf.StatePaymentReleased, domainwf.StateRejected}, got.Statuses)

	_, err = svc.VoucherQueue(ctx, actorWith(domainwf.RoleVoucher), QueueMyVouchers, "")
	require.NoError(t, err)
	assert.Equal(t, "u-voucher", got.CreatedBy)

	_, err = svc.VoucherQueue(ctx, actorWith(domainwf.RolePayment), QueueChecker, "")
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)

	_, err = svc.VoucherQueue(ctx, actorWith(domainwf.RoleVoucher), QueueApprovedReceipts, "")
	assert.ErrorIs(t, err, domainwf.ErrValidation)
}

func TestQueryService_ReceiptCounts(t *testing.T) {
	receipts := &mockReceiptRepo{
		countByCreatorFunc: func(ctx context.Context, createdBy string) (entity.ReceiptCounts, error) {
			assert.Equal(t, "u-admin", createdBy)
			return entity.ReceiptCounts{Pending: 2, Approved: 1, Rejected: 3}, nil
		},
	}
	svc := newQueryService(receipts, &mockVoucherRepo{})

	counts, err := svc.ReceiptCounts(context.Background(), actorWith(domainwf.RoleSubmitter))
	require.NoError(t, err)
	assert.Equal(t, entity.ReceiptCounts{Pending: 2, Approved: 1, Rejected: 3}, counts)

	_, err = svc.ReceiptCounts(context.Background(), actorWith(domainwf.RoleChecker))
	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
}

func TestQueryService_DetailVisibility(t *testing.T) {
	receipt := &entity.Receipt{ID: "r-1", Status: domainwf.StateVoucherCreated, CreatedBy: "u-admin", Company: "Acme", VoucherID: "v-1"}
	voucher := &entity.Voucher{ID: "v-1", ReceiptID: "r-1", Status: domainwf.StateChecked}

	receipts := &mockReceiptRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Receipt, error) {
			if id == "r-1" {
				return receipt, nil
			}
			return nil, nil
		},
	}
	vouchers := &mockVoucherRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Voucher, error) {
			if id == "v-1" {
				return voucher, nil
			}
			return nil, nil
		},
		getByReceiptIDFunc: func(ctx context.Context, receiptID string) (*entity.Voucher, error) {
			if receiptID == "r-1" {
				return voucher, nil
			}
			return nil, nil
		},
	}
	svc := newQueryService(receipts, vouchers)
	ctx := context.Background()

	stranger := actorWith(domainwf.RoleSubmitter)
	stranger.ID = "u-other"
	otherFinance := actorWith(domainwf.RoleFinance)
	otherFinance.Company = "Globex"

	t.Run("owner sees combined status", func(t *testing.T) {
		view, err := svc.ReceiptDetail(ctx, actorWith(domainwf.RoleSubmitter), "r-1")
		require.NoError(t, err)
		assert.Equal(t, domainwf.StateChecked, view.CombinedStatus)
	})

	t.Run("detail carries the actor's actions", func(t *testing.T) {
		view, err := svc.ReceiptDetail(ctx, actorWith(domainwf.RoleInitiator), "r-1")
		require.NoError(t, err)
		assert.Empty(t, view.Actions)
		assert.Equal(t, []domainwf.Trigger{domainwf.TriggerInitiate}, view.VoucherActions)

		view, err = svc.ReceiptDetail(ctx, actorWith(domainwf.RoleChecker), "r-1")
		require.NoError(t, err)
		assert.Empty(t, view.VoucherActions)
	})

	t.Run("other submitter is refused", func(t *testing.T) {
		_, err := svc.ReceiptDetail(ctx, stranger, "r-1")
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
		_, err = svc.Voucher(ctx, stranger, "v-1")
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
	})

	t.Run("finance of another company is refused", func(t *testing.T) {
		_, err := svc.ReceiptDetail(ctx, otherFinance, "r-1")
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
		_, err = svc.VoucherByReceipt(ctx, otherFinance, "r-1")
		assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
	})

	t.Run("voucher roles see any voucher", func(t *testing.T) {
		v, err := svc.Voucher(ctx, actorWith(domainwf.RoleChecker), "v-1")
		require.NoError(t, err)
		assert.Equal(t, "r-1", v.ReceiptID)

		v, err = svc.VoucherByReceipt(ctx, actorWith(domainwf.RoleInitiator), "r-1")
		require.NoError(t, err)
		assert.Equal(t, "v-1", v.ID)
	})

	t.Run("missing records", func(t *testing.T) {
		_, err := svc.ReceiptDetail(ctx, actorWith(domainwf.RoleChecker), "r-404")
		assert.ErrorIs(t, err, domainwf.ErrNotFound)
		_, err = svc.Voucher(ctx, actorWith(domainwf.RoleChecker), "v-404")
		assert.ErrorIs(t, err, domainwf.ErrNotFound)
	})
}
