package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
)

// OrphanSweeperConfig holds configuration for the orphan sweeper
type OrphanSweeperConfig struct {
	Interval  time.Duration
	Retention time.Duration
	// Delete removes orphans older than Retention from the blob store.
	// When false the sweeper only reports them.
	Delete bool
}

// DefaultOrphanSweeperConfig returns default configuration
func DefaultOrphanSweeperConfig() OrphanSweeperConfig {
	return OrphanSweeperConfig{
		Interval:  time.Hour,
		Retention: 7 * 24 * time.Hour,
	}
}

// SweepResult summarises one sweep
type SweepResult struct {
	Pending int
	Expired int
	Deleted int
	Failed  int
}

// OrphanSweeper periodically reports blobs left behind by failed writes and
// optionally deletes the expired ones
type OrphanSweeper struct {
	config  OrphanSweeperConfig
	orphans port.OrphanRepository
	blobs   port.BlobStore
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

// NewOrphanSweeper creates a new orphan sweeper
func NewOrphanSweeper(config OrphanSweeperConfig, orphans port.OrphanRepository, blobs port.BlobStore, logger *zap.Logger) *OrphanSweeper {
	def := DefaultOrphanSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Retention <= 0 {
		config.Retention = def.Retention
	}
	return &OrphanSweeper{
		config:  config,
		orphans: orphans,
		blobs:   blobs,
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the sweep loop
func (s *OrphanSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("orphan sweeper already running")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true

	s.logger.Info("OrphanSweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("retention", s.config.Retention),
		zap.Bool("delete", s.config.Delete))

	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (s *OrphanSweeper) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("OrphanSweeper stopped")
	return nil
}

// Name returns the worker name for identification
func (s *OrphanSweeper) Name() string {
	return "OrphanSweeper"
}

func (s *OrphanSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Orphan sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one pass: count pending orphans, then delete the expired ones if enabled
func (s *OrphanSweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	pending, err := s.orphans.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orphaned blobs: %w", err)
	}
	result := &SweepResult{Pending: pending}
	if pending == 0 {
		return result, nil
	}

	expired, err := s.orphans.ListPending(ctx, s.now().Add(-s.config.Retention))
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned blobs: %w", err)
	}
	result.Expired = len(expired)

	s.logger.Warn("Orphaned blobs awaiting reconciliation",
		zap.Int("pending", pending),
		zap.Int("expired", len(expired)),
		zap.Bool("delete", s.config.Delete))

	if !s.config.Delete {
		return result, nil
	}

	for _, o := range expired {
		if ctx.Err() != nil {
			break
		}
		if err := s.blobs.Delete(ctx, o.Path); err != nil {
			result.Failed++
			s.logger.Error("Failed to delete orphaned blob",
				zap.Int64("orphan_id", o.ID),
				zap.String("path", o.Path),
				zap.Error(err))
			continue
		}
		if err := s.orphans.MarkDeleted(ctx, o.ID, s.now()); err != nil {
			result.Failed++
			s.logger.Error("Failed to mark orphaned blob deleted",
				zap.Int64("orphan_id", o.ID),
				zap.Error(err))
			continue
		}
		result.Deleted++
		s.logger.Info("Orphaned blob deleted",
			zap.Int64("orphan_id", o.ID),
			zap.String("path", o.Path),
			zap.String("record_kind", string(o.Kind)),
			zap.String("record_id", o.RecordID))
	}

	return result, nil
}
