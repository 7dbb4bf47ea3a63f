package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/zoompay/internal/domain/entity"
	"github.com/garyjia/zoompay/internal/domain/event"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// SubmitReceipt uploads the image and creates a pending receipt
func (e *engineImpl) SubmitReceipt(ctx context.Context, actor entity.Actor, image Upload) (*entity.Receipt, error) {
	if err := domainwf.Authorize(domainwf.KindReceipt, domainwf.TriggerSubmit, actor.Role); err != nil {
		return nil, err
	}
	if !actor.Approved {
		return nil, fmt.Errorf("%w: account %s is not approved", domainwf.ErrUnauthorized, actor.ID)
	}

	status, err := initialState(domainwf.KindReceipt, domainwf.TriggerSubmit)
	if err != nil {
		return nil, err
	}
	if err := requireDocument("image", image, e.maxUploadBytes); err != nil {
		return nil, err
	}

	now := e.now()
	blob, err := e.stage(ctx, image, func(ext string) string { return receiptPath(now, ext) })
	if err != nil {
		e.logFailure("Receipt upload failed", domainwf.KindReceipt, "", actor, err)
		return nil, err
	}

	company := actor.Company
	if company == "" {
		company = entity.UnknownCompany
	}

	receipt := &entity.Receipt{
		ImageURL:  blob.url,
		Status:    status,
		CreatedAt: now,
		CreatedBy: actor.ID,
		UserName:  actor.Name,
		UserEmail: actor.Email,
		Company:   company,
		UpdatedAt: now,
	}

	if err := e.receipts.Create(ctx, receipt); err != nil {
		err = fmt.Errorf("failed to create receipt: %w", err)
		e.orphan(ctx, blob, domainwf.KindReceipt, "", err)
		e.logFailure("Receipt submit failed", domainwf.KindReceipt, "", actor, err)
		return nil, err
	}

	return e.finishReceipt(ctx, actor, receipt.ID, domainwf.StateNone, event.TypeReceiptSubmitted)
}

// ApproveReceipt moves a pending receipt to approved. The comment is optional.
func (e *engineImpl) ApproveReceipt(ctx context.Context, actor entity.Actor, receiptID, comment string) (*entity.Receipt, error) {
	return e.advanceReceipt(ctx, actor, receiptID, receiptStep{
		trigger: domainwf.TriggerApprove,
		event:   event.TypeReceiptApproved,
		field:   "comment",
		text:    comment,
		apply: func(r *entity.Receipt, actor entity.Actor, now time.Time, _ string) {
			r.ApprovedBy = actor.DisplayName()
			r.ApprovedAt = &now
			r.RejectedReason = ""
		},
	})
}

// RejectReceipt moves a pending receipt to rejected and clears any approval
func (e *engineImpl) RejectReceipt(ctx context.Context, actor entity.Actor, receiptID, reason string) (*entity.Receipt, error) {
	return e.advanceReceipt(ctx, actor, receiptID, receiptStep{
		trigger: domainwf.TriggerReject,
		event:   event.TypeReceiptRejected,
		field:   "reason",
		text:    reason,
		apply: func(r *entity.Receipt, _ entity.Actor, _ time.Time, reason string) {
			r.RejectedReason = reason
			r.ApprovedBy = ""
			r.ApprovedAt = nil
		},
	})
}

// DeleteReceipt removes a receipt. Only its submitter may, and only while it is pending.
func (e *engineImpl) DeleteReceipt(ctx context.Context, actor entity.Actor, receiptID string) error {
	current, err := e.loadReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if current.CreatedBy != actor.ID {
		return fmt.Errorf("%w: receipt %s belongs to another user", domainwf.ErrUnauthorized, receiptID)
	}
	if current.Status != domainwf.StatePending {
		return fmt.Errorf("%w: receipt %s is %s, only pending receipts can be deleted", domainwf.ErrInvalidTransition, receiptID, current.Status)
	}

	ok, err := e.receipts.DeleteIfStatus(ctx, receiptID, actor.ID, domainwf.StatePending)
	if err != nil {
		err = fmt.Errorf("failed to delete receipt %s: %w", receiptID, err)
		e.logFailure("Receipt delete failed", domainwf.KindReceipt, receiptID, actor, err)
		return err
	}
	if !ok {
		return e.receiptConflict(ctx, receiptID, domainwf.StatePending)
	}

	if err := e.blobs.Delete(ctx, current.ImageURL); err != nil {
		e.logger.Error("Failed to delete receipt image",
			"record_id", receiptID,
			"path", current.ImageURL,
			"error", err,
		)
	}

	e.logger.Info("Receipt deleted", "record_id", receiptID, "actor_id", actor.ID)
	e.emit(ctx, event.TypeReceiptDeleted, domainwf.KindReceipt, receiptID,
		transitionPayload(current.Status, domainwf.StateNone, actor))

	return nil
}

// receiptStep describes one status-changing receipt operation
type receiptStep struct {
	trigger domainwf.Trigger
	event   event.Type
	field   string
	text    string
	apply   func(r *entity.Receipt, actor entity.Actor, now time.Time, text string)
}

func (e *engineImpl) advanceReceipt(ctx context.Context, actor entity.Actor, id string, step receiptStep) (*entity.Receipt, error) {
	if err := domainwf.Authorize(domainwf.KindReceipt, step.trigger, actor.Role); err != nil {
		return nil, err
	}

	current, err := e.loadReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Company != actor.Company {
		return nil, fmt.Errorf("%w: receipt %s belongs to another company", domainwf.ErrUnauthorized, id)
	}

	machine, err := machineFor(domainwf.KindReceipt, id, current.Status, step.trigger)
	if err != nil {
		return nil, err
	}

	text, err := commentText(domainwf.KindReceipt, current.Status, step.trigger, step.field, step.text)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if err := machine.Fire(ctx, step.trigger); err != nil {
		return nil, err
	}

	next := current.Clone()
	next.Status = machine.State()
	next.UpdatedAt = now
	step.apply(next, actor, now, text)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := e.receipts.UpdateIfStatus(txCtx, next, current.Status)
		if err != nil {
			return fmt.Errorf("failed to update receipt %s: %w", id, err)
		}
		if !ok {
			return e.receiptConflict(txCtx, id, current.Status)
		}

		if text != "" {
			c := entity.NewReceiptComment(actor, text, now)
			if err := e.comments.Append(txCtx, domainwf.KindReceipt, id, &c); err != nil {
				return fmt.Errorf("failed to append comment to receipt %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		e.logFailure("Receipt transition failed", domainwf.KindReceipt, id, actor, err)
		return nil, err
	}

	return e.finishReceipt(ctx, actor, id, current.Status, step.event)
}

// finishReceipt re-reads the stored receipt, then logs and announces the transition
func (e *engineImpl) finishReceipt(ctx context.Context, actor entity.Actor, id string, from domainwf.State, t event.Type) (*entity.Receipt, error) {
	stored, err := e.loadReceipt(ctx, id)
	if err != nil {
		return nil, err
	}

	e.logTransition(domainwf.KindReceipt, id, from, stored.Status, actor)
	e.emit(ctx, t, domainwf.KindReceipt, id, transitionPayload(from, stored.Status, actor))

	return stored, nil
}

// commentText applies the table's comment rule for the transition leaving from
func commentText(kind domainwf.Kind, from domainwf.State, trigger domainwf.Trigger, field, text string) (string, error) {
	row, err := domainwf.Find(kind, from, trigger)
	if err != nil {
		return "", err
	}

	switch row.Comment {
	case domainwf.CommentRequired:
		return requireText(field, text)
	case domainwf.CommentOptional:
		trimmed, err := requireText(field, text)
		if err != nil {
			return "", nil
		}
		return trimmed, nil
	default:
		return "", nil
	}
}
