package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/zoompay/internal/domain/entity"
	"github.com/garyjia/zoompay/internal/domain/event"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// commentingRoles may add free comments to a live voucher
var commentingRoles = map[domainwf.Role]bool{
	domainwf.RoleVoucher:   true,
	domainwf.RoleChecker:   true,
	domainwf.RoleInitiator: true,
	domainwf.RolePayment:   true,
}

// CreateVoucher validates the form, uploads the voucher document and then, in
// one transaction, inserts the voucher and moves the receipt from approved to
// voucher_created. A receipt that already has a voucher is no longer approved,
// so a second attempt fails with ErrInvalidTransition.
func (e *engineImpl) CreateVoucher(ctx context.Context, actor entity.Actor, receiptID string, in CreateVoucherInput) (*entity.Voucher, *entity.Receipt, error) {
	if err := domainwf.Authorize(domainwf.KindReceipt, domainwf.TriggerCreateVoucher, actor.Role); err != nil {
		return nil, nil, err
	}
	if err := domainwf.Authorize(domainwf.KindVoucher, domainwf.TriggerCreateVoucher, actor.Role); err != nil {
		return nil, nil, err
	}

	receipt, err := e.loadReceipt(ctx, receiptID)
	if err != nil {
		return nil, nil, err
	}
	receiptMachine, err := machineFor(domainwf.KindReceipt, receiptID, receipt.Status, domainwf.TriggerCreateVoucher)
	if err != nil {
		return nil, nil, err
	}
	voucherStatus, err := initialState(domainwf.KindVoucher, domainwf.TriggerCreateVoucher)
	if err != nil {
		return nil, nil, err
	}

	form, err := in.validate(e.maxUploadBytes)
	if err != nil {
		return nil, nil, err
	}

	now := e.now()
	blob, err := e.stage(ctx, in.Document, func(ext string) string { return voucherPath(now, ext) })
	if err != nil {
		e.logFailure("Voucher document upload failed", domainwf.KindVoucher, "", actor, err)
		return nil, nil, err
	}

	if err := receiptMachine.Fire(ctx, domainwf.TriggerCreateVoucher); err != nil {
		return nil, nil, err
	}

	company := receipt.Company
	if company == "" {
		company = entity.UnknownCompany
	}

	voucher := &entity.Voucher{
		ReceiptID:     receipt.ID,
		ImageURL:      receipt.ImageURL,
		VoucherURL:    blob.url,
		Status:        voucherStatus,
		BankName:      form.bankName,
		AccountTitle:  form.accountTitle,
		AccountNumber: form.accountNumber,
		Amount:        form.amount,
		Description:   form.description,
		TicketNumber:  TicketNumber(now),
		Company:       company,
		CreatedBy:     actor.ID,
		CreatedByName: actor.DisplayName(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.vouchers.Create(txCtx, voucher); err != nil {
			return fmt.Errorf("failed to create voucher: %w", err)
		}

		next := receipt.Clone()
		next.Status = receiptMachine.State()
		next.ProcessedBy = actor.ID
		next.ProcessedByName = actor.DisplayName()
		next.ProcessedAt = &now
		next.VoucherID = voucher.ID
		next.UpdatedAt = now

		ok, err := e.receipts.UpdateIfStatus(txCtx, next, receipt.Status)
		if err != nil {
			return fmt.Errorf("failed to link receipt %s: %w", receiptID, err)
		}
		if !ok {
			return e.receiptConflict(txCtx, receiptID, receipt.Status)
		}
		return nil
	})
	if err != nil {
		e.orphan(ctx, blob, domainwf.KindVoucher, "", err)
		e.logFailure("Voucher creation failed", domainwf.KindReceipt, receiptID, actor, err)
		return nil, nil, err
	}

	storedReceipt, err := e.loadReceipt(ctx, receiptID)
	if err != nil {
		return nil, nil, err
	}
	storedVoucher, err := e.loadVoucher(ctx, voucher.ID)
	if err != nil {
		return nil, nil, err
	}

	e.logTransition(domainwf.KindReceipt, receiptID, receipt.Status, storedReceipt.Status, actor)
	e.logTransition(domainwf.KindVoucher, storedVoucher.ID, domainwf.StateNone, storedVoucher.Status, actor)

	payload := transitionPayload(domainwf.StateNone, storedVoucher.Status, actor)
	payload["receipt_id"] = receiptID
	payload["amount"] = storedVoucher.Amount
	e.emit(ctx, event.TypeVoucherCreated, domainwf.KindVoucher, storedVoucher.ID, payload)

	return storedVoucher, storedReceipt, nil
}

// CheckVoucher approves a created voucher. The comment is required.
func (e *engineImpl) CheckVoucher(ctx context.Context, actor entity.Actor, voucherID, comment string) (*entity.Voucher, error) {
	return e.advanceVoucher(ctx, actor, voucherID, voucherStep{
		trigger: domainwf.TriggerCheck,
		event:   event.TypeVoucherChecked,
		field:   "comment",
		text:    comment,
		apply: func(v *entity.Voucher, stamp *entity.StageStamp, _ string) {
			v.Checked = stamp
		},
	})
}

// RejectAtCheck rejects a created voucher; the reason is kept on the voucher
func (e *engineImpl) RejectAtCheck(ctx context.Context, actor entity.Actor, voucherID, reason string) (*entity.Voucher, error) {
	return e.advanceVoucher(ctx, actor, voucherID, voucherStep{
		trigger: domainwf.TriggerCheckReject,
		event:   event.TypeVoucherRejected,
		field:   "reason",
		text:    reason,
		apply:   reject,
	})
}

// InitiateVoucher starts payment of a checked voucher. Notes become a comment when present.
func (e *engineImpl) InitiateVoucher(ctx context.Context, actor entity.Actor, voucherID, notes string) (*entity.Voucher, error) {
	return e.advanceVoucher(ctx, actor, voucherID, voucherStep{
		trigger: domainwf.TriggerInitiate,
		event:   event.TypeVoucherInitiated,
		field:   "notes",
		text:    notes,
		apply: func(v *entity.Voucher, stamp *entity.StageStamp, _ string) {
			v.Initiated = stamp
		},
	})
}

// ReleasePayment confirms disbursement of an initiated voucher
func (e *engineImpl) ReleasePayment(ctx context.Context, actor entity.Actor, voucherID, comment string) (*entity.Voucher, error) {
	return e.advanceVoucher(ctx, actor, voucherID, voucherStep{
		trigger: domainwf.TriggerRelease,
		event:   event.TypeVoucherReleased,
		field:   "comment",
		text:    comment,
		apply: func(v *entity.Voucher, stamp *entity.StageStamp, _ string) {
			v.Released = stamp
		},
	})
}

// RejectPayment rejects an initiated voucher
func (e *engineImpl) RejectPayment(ctx context.Context, actor entity.Actor, voucherID, reason string) (*entity.Voucher, error) {
	return e.advanceVoucher(ctx, actor, voucherID, voucherStep{
		trigger: domainwf.TriggerPaymentReject,
		event:   event.TypeVoucherRejected,
		field:   "reason",
		text:    reason,
		apply:   reject,
	})
}

// UploadProof stores the proof of payment and completes the voucher
func (e *engineImpl) UploadProof(ctx context.Context, actor entity.Actor, voucherID string, proof Upload) (*entity.Voucher, error) {
	return e.advanceVoucher(ctx, actor, voucherID, voucherStep{
		trigger:      domainwf.TriggerUploadProof,
		event:        event.TypeVoucherCompleted,
		fixedComment: entity.ProofUploadedComment,
		upload:       &proof,
		uploadField:  "proof",
		uploadPath: func(now time.Time, ext string) string {
			return proofPath(voucherID, now, ext)
		},
		apply: func(v *entity.Voucher, stamp *entity.StageStamp, url string) {
			v.ProofOfPaymentURL = url
			v.ProofUploaded = stamp
		},
	})
}

// AddVoucherComment appends a comment to a voucher that has not reached a terminal status
func (e *engineImpl) AddVoucherComment(ctx context.Context, actor entity.Actor, voucherID, text string) (*entity.Voucher, error) {
	if !commentingRoles[actor.Role] {
		return nil, fmt.Errorf("%w: role %q cannot comment on vouchers", domainwf.ErrUnauthorized, actor.Role)
	}

	current, err := e.loadVoucher(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: voucher %s is %s", domainwf.ErrInvalidTransition, voucherID, current.Status)
	}

	body, err := requireText("comment", text)
	if err != nil {
		return nil, err
	}

	c := entity.NewVoucherComment(actor, body, e.now())
	if err := e.comments.Append(ctx, domainwf.KindVoucher, voucherID, &c); err != nil {
		err = fmt.Errorf("failed to append comment to voucher %s: %w", voucherID, err)
		e.logFailure("Voucher comment failed", domainwf.KindVoucher, voucherID, actor, err)
		return nil, err
	}

	stored, err := e.loadVoucher(ctx, voucherID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Voucher comment added", "record_id", voucherID, "actor_id", actor.ID, "role", actor.Role)
	e.emit(ctx, event.TypeVoucherCommented, domainwf.KindVoucher, voucherID,
		transitionPayload(stored.Status, stored.Status, actor))

	return stored, nil
}

func reject(v *entity.Voucher, stamp *entity.StageStamp, _ string) {
	v.Rejected = stamp
}

// voucherStep describes one status-changing voucher operation
type voucherStep struct {
	trigger domainwf.Trigger
	event   event.Type
	field   string
	text    string

	// fixedComment replaces the table's comment rule when set
	fixedComment string

	upload      *Upload
	uploadField string
	uploadPath  func(now time.Time, ext string) string

	// apply receives the stage stamp and the uploaded document URL, if any
	apply func(v *entity.Voucher, stamp *entity.StageStamp, url string)
}

func (e *engineImpl) advanceVoucher(ctx context.Context, actor entity.Actor, id string, step voucherStep) (*entity.Voucher, error) {
	if err := domainwf.Authorize(domainwf.KindVoucher, step.trigger, actor.Role); err != nil {
		return nil, err
	}

	current, err := e.loadVoucher(ctx, id)
	if err != nil {
		return nil, err
	}

	machine, err := machineFor(domainwf.KindVoucher, id, current.Status, step.trigger)
	if err != nil {
		return nil, err
	}

	text := step.fixedComment
	if text == "" {
		if text, err = commentText(domainwf.KindVoucher, current.Status, step.trigger, step.field, step.text); err != nil {
			return nil, err
		}
	}
	if step.upload != nil {
		if err := requireDocument(step.uploadField, *step.upload, e.maxUploadBytes); err != nil {
			return nil, err
		}
	}

	now := e.now()

	var blob *stagedBlob
	if step.upload != nil {
		blob, err = e.stage(ctx, *step.upload, func(ext string) string { return step.uploadPath(now, ext) })
		if err != nil {
			e.logFailure("Voucher upload failed", domainwf.KindVoucher, id, actor, err)
			return nil, err
		}
	}

	if err := machine.Fire(ctx, step.trigger); err != nil {
		return nil, err
	}

	next := current.Clone()
	next.Status = machine.State()
	next.UpdatedAt = now

	url := ""
	if blob != nil {
		url = blob.url
	}
	step.apply(next, entity.NewStageStamp(actor, now), url)
	if next.Status == domainwf.StateRejected {
		next.RejectedReason = text
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := e.vouchers.UpdateIfStatus(txCtx, next, current.Status)
		if err != nil {
			return fmt.Errorf("failed to update voucher %s: %w", id, err)
		}
		if !ok {
			return e.voucherConflict(txCtx, id, current.Status)
		}

		if text != "" {
			c := entity.NewVoucherComment(actor, text, now)
			if err := e.comments.Append(txCtx, domainwf.KindVoucher, id, &c); err != nil {
				return fmt.Errorf("failed to append comment to voucher %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		e.orphan(ctx, blob, domainwf.KindVoucher, id, err)
		e.logFailure("Voucher transition failed", domainwf.KindVoucher, id, actor, err)
		return nil, err
	}

	stored, err := e.loadVoucher(ctx, id)
	if err != nil {
		return nil, err
	}

	e.logTransition(domainwf.KindVoucher, id, current.Status, stored.Status, actor)

	payload := transitionPayload(current.Status, stored.Status, actor)
	if stored.Status == domainwf.StateRejected {
		payload[event.KeyReason] = stored.RejectedReason
	}
	e.emit(ctx, step.event, domainwf.KindVoucher, id, payload)

	return stored, nil
}
