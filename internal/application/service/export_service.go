package service

import (
	"context"
	"fmt"

	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// Workbook is a rendered spreadsheet ready for download
type Workbook struct {
	Filename string
	Data     []byte
}

// ExportService renders vouchers into xlsx workbooks
type ExportService interface {
	PaymentAdvice(ctx context.Context, actor entity.Actor, voucherID string) (*Workbook, error)
	Register(ctx context.Context, actor entity.Actor, q Queue) (*Workbook, error)
}

type exportServiceImpl struct {
	vouchers port.VoucherRepository
	exporter port.Exporter
	router   RoleRouter
	logger   Logger
}

// NewExportService creates a new ExportService
func NewExportService(vouchers port.VoucherRepository, exporter port.Exporter, router RoleRouter, logger Logger) ExportService {
	return &exportServiceImpl{
		vouchers: vouchers,
		exporter: exporter,
		router:   router,
		logger:   logger,
	}
}

func (s *exportServiceImpl) PaymentAdvice(ctx context.Context, actor entity.Actor, voucherID string) (*Workbook, error) {
	if !s.router.Permissions(actor.Role).CanExport {
		return nil, fmt.Errorf("%w: role %q cannot export vouchers", domainwf.ErrUnauthorized, actor.Role)
	}
	v, err := s.vouchers.GetByID(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher %s: %w", voucherID, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: voucher %s", domainwf.ErrNotFound, voucherID)
	}

	data, err := s.exporter.PaymentAdvice(v)
	if err != nil {
		s.logger.Error("Failed to render payment advice", "voucher_id", voucherID, "error", err)
		return nil, fmt.Errorf("failed to render payment advice: %w", err)
	}

	name := v.TicketNumber
	if name == "" {
		name = v.ID
	}
	return &Workbook{Filename: fmt.Sprintf("payment_advice_%s.xlsx", name), Data: data}, nil
}

// Register exports every voucher of a queue the actor may read
func (s *exportServiceImpl) Register(ctx context.Context, actor entity.Actor, q Queue) (*Workbook, error) {
	if !s.router.Permissions(actor.Role).CanExport {
		return nil, fmt.Errorf("%w: role %q cannot export vouchers", domainwf.ErrUnauthorized, actor.Role)
	}
	if err := s.router.Authorize(actor.Role, q); err != nil {
		return nil, err
	}
	qd := queues[q]
	if qd.kind != domainwf.KindVoucher {
		return nil, domainwf.NewValidationError("queue", fmt.Sprintf("%s is not a voucher queue", q))
	}

	query := port.VoucherQuery{Statuses: qd.statuses, OrderBy: qd.orderBy}
	if qd.byCreator {
		query.CreatedBy = actor.ID
	}
	vouchers, err := s.vouchers.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}

	data, err := s.exporter.Register(fmt.Sprintf("Voucher register: %s", q), vouchers)
	if err != nil {
		s.logger.Error("Failed to render voucher register", "queue", q, "error", err)
		return nil, fmt.Errorf("failed to render voucher register: %w", err)
	}

	s.logger.Info("Voucher register exported", "queue", q, "count", len(vouchers), "actor_id", actor.ID)
	return &Workbook{Filename: fmt.Sprintf("vouchers_%s.xlsx", q), Data: data}, nil
}
