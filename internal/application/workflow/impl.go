package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/zoompay/internal/application/dispatcher"
	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/domain/entity"
	"github.com/garyjia/zoompay/internal/domain/event"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// engineImpl is the concrete implementation of LifecycleEngine
type engineImpl struct {
	receipts  port.ReceiptRepository
	vouchers  port.VoucherRepository
	comments  port.CommentRepository
	orphans   port.OrphanRepository
	blobs     port.BlobStore
	txManager port.TransactionManager

	media          port.MediaProcessor
	dispatcher     dispatcher.Dispatcher
	logger         Logger
	clock          func() time.Time
	maxUploadBytes int64
}

// EngineOption configures the lifecycle engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting lifecycle events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithMediaProcessor normalises uploads before they reach the blob store
func WithMediaProcessor(m port.MediaProcessor) EngineOption {
	return func(e *engineImpl) {
		e.media = m
	}
}

// WithMaxUploadBytes rejects documents larger than n bytes. Zero means no limit.
func WithMaxUploadBytes(n int64) EngineOption {
	return func(e *engineImpl) {
		e.maxUploadBytes = n
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the source of "now"
func WithClock(clock func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.clock = clock
	}
}

// NewEngine creates a new lifecycle engine
func NewEngine(
	receipts port.ReceiptRepository,
	vouchers port.VoucherRepository,
	comments port.CommentRepository,
	orphans port.OrphanRepository,
	blobs port.BlobStore,
	txManager port.TransactionManager,
	opts ...EngineOption,
) LifecycleEngine {
	e := &engineImpl{
		receipts:  receipts,
		vouchers:  vouchers,
		comments:  comments,
		orphans:   orphans,
		blobs:     blobs,
		txManager: txManager,
		logger:    nopLogger{},
		clock:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// now returns one UTC instant used for every timestamp of an operation
func (e *engineImpl) now() time.Time {
	return e.clock().UTC()
}

func (e *engineImpl) loadReceipt(ctx context.Context, id string) (*entity.Receipt, error) {
	r, err := e.receipts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %s: %w", id, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: receipt %s", domainwf.ErrNotFound, id)
	}
	return r, nil
}

func (e *engineImpl) loadVoucher(ctx context.Context, id string) (*entity.Voucher, error) {
	v, err := e.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher %s: %w", id, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: voucher %s", domainwf.ErrNotFound, id)
	}
	return v, nil
}

// machineFor positions a state machine at the record's status and checks the trigger can fire
func machineFor(kind domainwf.Kind, id string, current domainwf.State, trigger domainwf.Trigger) (domainwf.StateMachine, error) {
	if !current.ValidFor(kind) {
		return nil, fmt.Errorf("%w: %s %s has status %q", domainwf.ErrMalformedRecord, kind, id, current)
	}
	machine := BuildStateMachine(kind, current)
	if !machine.CanFire(trigger) {
		return nil, fmt.Errorf("%w: cannot %s %s %s in status %s", domainwf.ErrInvalidTransition, trigger, kind, id, current)
	}
	return machine, nil
}

// receiptConflict classifies a conditional write that matched no row
func (e *engineImpl) receiptConflict(ctx context.Context, id string, expected domainwf.State) error {
	r, err := e.receipts.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to re-read receipt %s: %w", id, err)
	}
	if r == nil {
		return fmt.Errorf("%w: receipt %s", domainwf.ErrNotFound, id)
	}
	return fmt.Errorf("%w: receipt %s moved from %s to %s", domainwf.ErrInvalidTransition, id, expected, r.Status)
}

func (e *engineImpl) voucherConflict(ctx context.Context, id string, expected domainwf.State) error {
	v, err := e.vouchers.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to re-read voucher %s: %w", id, err)
	}
	if v == nil {
		return fmt.Errorf("%w: voucher %s", domainwf.ErrNotFound, id)
	}
	return fmt.Errorf("%w: voucher %s moved from %s to %s", domainwf.ErrInvalidTransition, id, expected, v.Status)
}

// stagedBlob is a document uploaded ahead of the record write that references it
type stagedBlob struct {
	path string
	url  string
}

// stage normalises and uploads a document, naming it with pathFor(ext)
func (e *engineImpl) stage(ctx context.Context, u Upload, pathFor func(ext string) string) (*stagedBlob, error) {
	data := u.Data
	ext := extOf(u.Filename, "jpg")

	if e.media != nil {
		m, err := e.media.Normalize(u.Data, u.Filename)
		if err != nil {
			return nil, err
		}
		data, ext = m.Data, m.Ext
	}

	p := pathFor(ext)
	url, err := e.blobs.Put(ctx, p, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", p, err)
	}
	return &stagedBlob{path: p, url: url}, nil
}

// orphan records a staged blob whose record write failed. The blob is left in
// place for the sweeper; the write error is what the caller sees.
func (e *engineImpl) orphan(ctx context.Context, blob *stagedBlob, kind domainwf.Kind, recordID string, cause error) {
	if blob == nil {
		return
	}

	e.logger.Error("Orphaned blob after failed write",
		"path", blob.path,
		"kind", kind,
		"record_id", recordID,
		"error", cause,
	)

	rec := &port.OrphanedBlob{
		Path:       blob.path,
		Kind:       kind,
		RecordID:   recordID,
		Reason:     cause.Error(),
		RecordedAt: e.now(),
	}
	if err := e.orphans.Record(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Error("Failed to record orphaned blob", "path", blob.path, "error", err)
	}

	if e.dispatcher == nil {
		return
	}
	// Dispatched inline so the audit entry exists before the caller sees the write error
	evt := event.NewEvent(event.TypeBlobOrphaned, string(kind), recordID, map[string]interface{}{
		event.KeyPath:   blob.path,
		event.KeyReason: cause.Error(),
	})
	if err := e.dispatcher.Dispatch(context.WithoutCancel(ctx), evt); err != nil {
		e.logger.Error("Failed to dispatch orphan event", "path", blob.path, "error", err)
	}
}

// emit dispatches a lifecycle event without waiting for handlers
func (e *engineImpl) emit(ctx context.Context, t event.Type, kind domainwf.Kind, recordID string, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(t, string(kind), recordID, payload))
}

func transitionPayload(from, to domainwf.State, actor entity.Actor) map[string]interface{} {
	return map[string]interface{}{
		event.KeyFrom:    from.String(),
		event.KeyTo:      to.String(),
		event.KeyActorID: actor.ID,
		event.KeyRole:    actor.Role.String(),
	}
}

// logFailure logs a failed write unless it was a rejected precondition
func (e *engineImpl) logFailure(msg string, kind domainwf.Kind, id string, actor entity.Actor, err error) {
	if errors.Is(err, domainwf.ErrInvalidTransition) || errors.Is(err, domainwf.ErrNotFound) {
		return
	}
	e.logger.Error(msg,
		"kind", kind,
		"record_id", id,
		"actor_id", actor.ID,
		"role", actor.Role,
		"error", err,
	)
}

func (e *engineImpl) logTransition(kind domainwf.Kind, id string, from, to domainwf.State, actor entity.Actor) {
	e.logger.Info("Lifecycle transition",
		"kind", kind,
		"record_id", id,
		"from", from,
		"to", to,
		"actor_id", actor.ID,
		"role", actor.Role,
	)
}
