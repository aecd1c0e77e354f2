package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSweepInProgress is returned when a sweep is already running
	ErrSweepInProgress = errors.New("reconciliation sweep already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// SweepStatus represents the outcome of one reconciliation sweep
type SweepStatus string

const (
	SweepStatusRunning SweepStatus = "RUNNING"
	SweepStatusSuccess SweepStatus = "SUCCESS"
	SweepStatusFailed  SweepStatus = "FAILED"
)

// SweepRecord captures one sweep for monitoring
type SweepRecord struct {
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      SweepStatus
	Checked     int
	Drifted     int
	Errors      int
	Pruned      int64
	Error       string
}

// Reconciler is the sweep entry point. The scheduler only cares about the
// aggregate counts; drift handling lives in the application layer.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (checked, drifted, failed int, err error)
}

// NotificationPruner removes expired notifications
type NotificationPruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// ReconciliationSchedulerConfig holds configuration for the background sweep loop
type ReconciliationSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Interval between sweeps
	Interval time.Duration
	// SweepTimeout is the maximum time one sweep can run
	SweepTimeout time.Duration
}

// DefaultReconciliationSchedulerConfig returns default configuration
func DefaultReconciliationSchedulerConfig() ReconciliationSchedulerConfig {
	return ReconciliationSchedulerConfig{
		Enabled:      true,
		Interval:     15 * time.Minute,
		SweepTimeout: 10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *ReconciliationSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.SweepTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ReconciliationScheduler periodically reconciles local listings against
// their marketplace state and prunes expired notifications. One sweep runs
// at a time; a tick that lands while a sweep is still running is skipped.
type ReconciliationScheduler struct {
	config     ReconciliationSchedulerConfig
	reconciler Reconciler
	pruner     NotificationPruner
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  bool

	// Sweep history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*SweepRecord
	maxHistory int
}

// NewReconciliationScheduler creates a new reconciliation scheduler
func NewReconciliationScheduler(
	config ReconciliationSchedulerConfig,
	reconciler Reconciler,
	pruner NotificationPruner,
	logger *zap.Logger,
) (*ReconciliationScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ReconciliationScheduler{
		config:     config,
		reconciler: reconciler,
		pruner:     pruner,
		logger:     logger,
		history:    make([]*SweepRecord, 0, 50),
		maxHistory: 50,
	}, nil
}

// Start starts the scheduler loop
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("reconciliation scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("sweep_timeout", s.config.SweepTimeout),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish
func (s *ReconciliationScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("reconciliation scheduler stopped")
}

// IsRunning reports whether the scheduler loop is active
func (s *ReconciliationScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Config returns the scheduler configuration
func (s *ReconciliationScheduler) Config() ReconciliationSchedulerConfig {
	return s.config
}

// TriggerNow runs a sweep immediately, outside the regular interval
func (s *ReconciliationScheduler) TriggerNow(ctx context.Context) (*SweepRecord, error) {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return nil, ErrSchedulerNotRunning
	}
	return s.sweep(ctx)
}

// History returns recent sweep records, newest first
func (s *ReconciliationScheduler) History() []*SweepRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*SweepRecord, len(s.history))
	for i, record := range s.history {
		result[len(s.history)-1-i] = record
	}
	return result
}

func (s *ReconciliationScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.sweep(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
				s.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *ReconciliationScheduler) sweep(ctx context.Context) (*SweepRecord, error) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return nil, ErrSweepInProgress
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	record := &SweepRecord{StartedAt: time.Now(), Status: SweepStatusRunning}
	s.appendHistory(record)

	checked, drifted, failed, err := s.reconciler.ReconcileAll(sweepCtx)
	record.Checked = checked
	record.Drifted = drifted
	record.Errors = failed

	if err != nil {
		now := time.Now()
		record.CompletedAt = &now
		record.Status = SweepStatusFailed
		record.Error = err.Error()
		return record, err
	}

	if s.pruner != nil {
		pruned, pruneErr := s.pruner.PruneExpired(sweepCtx)
		if pruneErr != nil {
			s.logger.Warn("notification pruning failed", zap.Error(pruneErr))
		} else {
			record.Pruned = pruned
		}
	}

	now := time.Now()
	record.CompletedAt = &now
	record.Status = SweepStatusSuccess

	s.logger.Info("reconciliation sweep completed",
		zap.Int("checked", checked),
		zap.Int("drifted", drifted),
		zap.Int("errors", failed),
		zap.Int64("pruned", record.Pruned),
		zap.Duration("duration", now.Sub(record.StartedAt)),
	)
	return record, nil
}

func (s *ReconciliationScheduler) appendHistory(record *SweepRecord) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append(s.history, record)
	if len(s.history) > s.maxHistory {
		s.history = s.history[1:]
	}
}
