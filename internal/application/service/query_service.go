package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// QueryService serves the read side: queues, counts and detail views.
// Receipt views carry the combined status recomputed on every read.
type QueryService interface {
	ReceiptQueue(ctx context.Context, actor entity.Actor, q Queue, status string) ([]*entity.ReceiptView, error)
	VoucherQueue(ctx context.Context, actor entity.Actor, q Queue, ticket string) ([]*entity.Voucher, error)
	ReceiptCounts(ctx context.Context, actor entity.Actor) (entity.ReceiptCounts, error)
	ReceiptDetail(ctx context.Context, actor entity.Actor, receiptID string) (*entity.ReceiptView, error)
	Voucher(ctx context.Context, actor entity.Actor, voucherID string) (*entity.Voucher, error)
	VoucherByReceipt(ctx context.Context, actor entity.Actor, receiptID string) (*entity.Voucher, error)
}

type queryServiceImpl struct {
	receipts port.ReceiptRepository
	vouchers port.VoucherRepository
	router   RoleRouter
	logger   Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	receipts port.ReceiptRepository,
	vouchers port.VoucherRepository,
	router RoleRouter,
	logger Logger,
) QueryService {
	return &queryServiceImpl{
		receipts: receipts,
		vouchers: vouchers,
		router:   router,
		logger:   logger,
	}
}

// ReceiptQueue lists a receipt queue. status optionally narrows the finance queue.
func (s *queryServiceImpl) ReceiptQueue(ctx context.Context, actor entity.Actor, q Queue, status string) ([]*entity.ReceiptView, error) {
	if err := s.router.Authorize(actor.Role, q); err != nil {
		return nil, err
	}
	qd := queues[q]
	if qd.kind != domainwf.KindReceipt {
		return nil, domainwf.NewValidationError("queue", fmt.Sprintf("%s is not a receipt queue", q))
	}

	query := port.ReceiptQuery{
		Statuses: qd.statuses,
		OrderBy:  qd.orderBy,
	}
	if qd.byCreator {
		query.CreatedBy = actor.ID
	}
	if qd.byCompany {
		query.Company = actor.Company
	}
	if status = strings.TrimSpace(status); status != "" {
		st, err := domainwf.ParseState(domainwf.KindReceipt, status)
		if err != nil {
			return nil, domainwf.NewValidationError("status", err.Error())
		}
		query.Statuses = []domainwf.State{st}
	}

	receipts, err := s.receipts.List(ctx, query)
	if err != nil {
		s.logger.Error("Failed to list receipts", "queue", q, "error", err)
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	views := make([]*entity.ReceiptView, 0, len(receipts))
	for _, r := range receipts {
		view, err := s.view(ctx, r)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// VoucherQueue lists a voucher queue, optionally narrowed by a ticket number fragment
func (s *queryServiceImpl) VoucherQueue(ctx context.Context, actor entity.Actor, q Queue, ticket string) ([]*entity.Voucher, error) {
	if err := s.router.Authorize(actor.Role, q); err != nil {
		return nil, err
	}
	qd := queues[q]
	if qd.kind != domainwf.KindVoucher {
		return nil, domainwf.NewValidationError("queue", fmt.Sprintf("%s is not a voucher queue", q))
	}

	query := port.VoucherQuery{
		Statuses: qd.statuses,
		Ticket:   strings.TrimSpace(ticket),
		OrderBy:  qd.orderBy,
	}
	if qd.byCreator {
		query.CreatedBy = actor.ID
	}

	vouchers, err := s.vouchers.List(ctx, query)
	if err != nil {
		s.logger.Error("Failed to list vouchers", "queue", q, "error", err)
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return vouchers, nil
}

// ReceiptCounts summarises the actor's own receipts
func (s *queryServiceImpl) ReceiptCounts(ctx context.Context, actor entity.Actor) (entity.ReceiptCounts, error) {
	if err := s.router.Authorize(actor.Role, QueueMyReceipts); err != nil {
		return entity.ReceiptCounts{}, err
	}
	counts, err := s.receipts.CountByCreator(ctx, actor.ID)
	if err != nil {
		return entity.ReceiptCounts{}, fmt.Errorf("failed to count receipts: %w", err)
	}
	return counts, nil
}

// ReceiptDetail returns a receipt with its voucher, if any, and the triggers the actor may fire on each
func (s *queryServiceImpl) ReceiptDetail(ctx context.Context, actor entity.Actor, receiptID string) (*entity.ReceiptView, error) {
	r, err := s.receipts.GetByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %s: %w", receiptID, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: receipt %s", domainwf.ErrNotFound, receiptID)
	}
	if err := canSeeReceipt(actor, r); err != nil {
		return nil, err
	}

	view, err := s.view(ctx, r)
	if err != nil {
		return nil, err
	}
	view.Actions = s.router.Actions(actor.Role, domainwf.KindReceipt, r.Status)
	if view.Voucher != nil {
		view.VoucherActions = s.router.Actions(actor.Role, domainwf.KindVoucher, view.Voucher.Status)
	}
	return view, nil
}

// Voucher returns one voucher with its comment log
func (s *queryServiceImpl) Voucher(ctx context.Context, actor entity.Actor, voucherID string) (*entity.Voucher, error) {
	v, err := s.vouchers.GetByID(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher %s: %w", voucherID, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: voucher %s", domainwf.ErrNotFound, voucherID)
	}

	switch actor.Role {
	case domainwf.RoleSubmitter, domainwf.RoleFinance:
		r, err := s.receipts.GetByID(ctx, v.ReceiptID)
		if err != nil {
			return nil, fmt.Errorf("failed to load receipt %s: %w", v.ReceiptID, err)
		}
		if r == nil {
			return nil, fmt.Errorf("%w: receipt %s", domainwf.ErrNotFound, v.ReceiptID)
		}
		if err := canSeeReceipt(actor, r); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// VoucherByReceipt returns the voucher created from a receipt
func (s *queryServiceImpl) VoucherByReceipt(ctx context.Context, actor entity.Actor, receiptID string) (*entity.Voucher, error) {
	r, err := s.receipts.GetByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %s: %w", receiptID, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: receipt %s", domainwf.ErrNotFound, receiptID)
	}
	if err := canSeeReceipt(actor, r); err != nil {
		return nil, err
	}

	v, err := s.vouchers.GetByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher for receipt %s: %w", receiptID, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: no voucher for receipt %s", domainwf.ErrNotFound, receiptID)
	}
	return v, nil
}

func (s *queryServiceImpl) view(ctx context.Context, r *entity.Receipt) (*entity.ReceiptView, error) {
	if r.VoucherID == "" {
		return entity.NewReceiptView(r, nil), nil
	}
	v, err := s.vouchers.GetByID(ctx, r.VoucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher %s: %w", r.VoucherID, err)
	}
	return entity.NewReceiptView(r, v), nil
}

// canSeeReceipt keeps submitters to their own receipts and finance to its company
func canSeeReceipt(actor entity.Actor, r *entity.Receipt) error {
	switch actor.Role {
	case domainwf.RoleSubmitter:
		if r.CreatedBy != actor.ID {
			return fmt.Errorf("%w: receipt %s belongs to another user", domainwf.ErrUnauthorized, r.ID)
		}
	case domainwf.RoleFinance:
		if r.Company != actor.Company {
			return fmt.Errorf("%w: receipt %s belongs to another company", domainwf.ErrUnauthorized, r.ID)
		}
	}
	return nil
}
