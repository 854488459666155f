package sender

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/observability"
	"solana-auto-sender/internal/policy"
	"solana-auto-sender/internal/solana"
	"solana-auto-sender/internal/storage"
)

// Scheduler timing defaults.
const (
	DefaultTickInterval = 500 * time.Millisecond
	DefaultEvalTimeout  = 2 * time.Minute
)

// Scheduler drives the evaluation loop: every tick it walks the registered
// configurations in creation order and evaluates the active ones. Each
// evaluation runs in its own goroutine guarded by a per-config in-flight
// marker, so a sweep still waiting for confirmation is never doubled by the
// next tick. One failing config never stops the others.
type Scheduler struct {
	registry    *Registry
	executor    *TransferExecutor
	threshold   *policy.Threshold
	rpc         solana.RPCClient
	transferLog storage.TransferLogStore
	evalLog     storage.EvaluationLogStore
	interval    time.Duration
	evalTimeout time.Duration
	logger      *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	evalWG  sync.WaitGroup

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}

	wake chan struct{}
}

// SchedulerOption configures Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets the tick interval.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithEvalTimeout sets the per-evaluation timeout.
func WithEvalTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.evalTimeout = d
	}
}

// NewScheduler creates a Scheduler in the stopped state.
func NewScheduler(
	registry *Registry,
	executor *TransferExecutor,
	threshold *policy.Threshold,
	rpc solana.RPCClient,
	transferLog storage.TransferLogStore,
	evalLog storage.EvaluationLogStore,
	logger *log.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		registry:    registry,
		executor:    executor,
		threshold:   threshold,
		rpc:         rpc,
		transferLog: transferLog,
		evalLog:     evalLog,
		interval:    DefaultTickInterval,
		evalTimeout: DefaultEvalTimeout,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the evaluation loop. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	observability.SetSchedulerRunning(true)

	s.loopWG.Add(1)
	go s.loop(loopCtx)

	s.logger.Printf("[scheduler] Started interval=%s", s.interval)
}

// Stop halts the loop and waits for in-flight evaluations to finish.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.loopWG.Wait()
	s.evalWG.Wait()
	observability.SetSchedulerRunning(false)
	s.logger.Printf("[scheduler] Stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// InFlight returns the number of evaluations currently executing.
func (s *Scheduler) InFlight() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return len(s.inFlight)
}

// Wake triggers an immediate tick without waiting out the interval. Used by
// balance subscriptions when a watched wallet receives funds.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		case <-s.wake:
			s.tick(ctx)
		}
	}
}

// tick evaluates every active configuration. Dispatch order is creation
// order; configs still in flight from an earlier tick are skipped.
func (s *Scheduler) tick(ctx context.Context) {
	started := time.Now()

	configs, err := s.registry.List(ctx)
	if err != nil {
		s.logger.Printf("[scheduler] List configs failed: %v", err)
		return
	}

	active := 0
	for _, cfg := range configs {
		if !cfg.IsActive {
			continue
		}
		active++

		if !s.beginEval(cfg.ID) {
			continue
		}

		s.evalWG.Add(1)
		go func(cfg *domain.AutoSenderConfig) {
			defer s.evalWG.Done()
			defer s.endEval(cfg.ID)
			s.evaluate(cfg)
		}(cfg)
	}

	observability.SetActiveConfigs(active)
	observability.RecordTick(time.Since(started).Seconds())
}

func (s *Scheduler) beginEval(id string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) endEval(id string) {
	s.inFlightMu.Lock()
	delete(s.inFlight, id)
	s.inFlightMu.Unlock()
}

// evaluate runs one config through balance check, policy, and, when the
// policy says so, the transfer. The context is detached from the loop:
// stopping the scheduler cancels the ticker only, a sweep already submitting
// runs to completion and lands its records, bounded by the evaluation
// timeout alone. Every outcome lands in the evaluation log; LastCheckedAt
// advances no matter what.
func (s *Scheduler) evaluate(cfg *domain.AutoSenderConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), s.evalTimeout)
	defer cancel()

	now := time.Now().UTC()

	balanceLamports, err := s.rpc.GetBalance(ctx, cfg.SourceAddress)
	if err != nil {
		s.recordError(ctx, cfg, now, 0, "transient", err)
		return
	}
	balance := solana.LamportsToSOL(balanceLamports)

	decision := s.threshold.Evaluate(balance, cfg.ReserveAmount)
	if !decision.Transfer() {
		s.recordChecked(ctx, cfg, now, balance, decision.Kind.String())
		return
	}

	record, err := s.executor.Execute(ctx, cfg, decision.Amount)
	if err != nil {
		kind := "transient"
		if IsConfigurationError(err) {
			kind = "configuration"
			if derr := s.registry.Deactivate(ctx, cfg.ID, err.Error()); derr != nil {
				s.logger.Printf("[scheduler] Deactivate %s failed: %v", cfg.ID, derr)
			} else {
				s.logger.Printf("[scheduler] Deactivated config %s: %v", cfg.ID, err)
			}
		}
		s.recordError(ctx, cfg, now, balance, kind, err)
		return
	}

	if err := s.transferLog.Insert(ctx, record); err != nil {
		s.logger.Printf("[scheduler] Transfer log insert failed for %s: %v", record.Signature, err)
	}
	if err := s.registry.RecordTransfer(ctx, cfg.ID, record.AmountSOL, record.ConfirmedAt); err != nil {
		s.logger.Printf("[scheduler] Stats update failed for %s: %v", cfg.ID, err)
	}

	s.appendEvalLog(ctx, &domain.EvaluationRecord{
		ConfigID:    cfg.ID,
		Outcome:     domain.OutcomeTransferred,
		BalanceSOL:  balance,
		AmountSOL:   record.AmountSOL,
		Signature:   record.Signature,
		EvaluatedAt: now,
	})
	observability.RecordEvaluation(string(domain.OutcomeTransferred))
}

func (s *Scheduler) recordChecked(ctx context.Context, cfg *domain.AutoSenderConfig, now time.Time, balance float64, reason string) {
	if err := s.registry.RecordCheck(ctx, cfg.ID, now); err != nil {
		s.logger.Printf("[scheduler] Stats update failed for %s: %v", cfg.ID, err)
	}
	s.appendEvalLog(ctx, &domain.EvaluationRecord{
		ConfigID:    cfg.ID,
		Outcome:     domain.OutcomeChecked,
		Reason:      reason,
		BalanceSOL:  balance,
		EvaluatedAt: now,
	})
	observability.RecordEvaluation(string(domain.OutcomeChecked))
}

func (s *Scheduler) recordError(ctx context.Context, cfg *domain.AutoSenderConfig, now time.Time, balance float64, kind string, evalErr error) {
	s.logger.Printf("[scheduler] Evaluation failed config=%s kind=%s: %v", cfg.ID, kind, evalErr)

	if err := s.registry.RecordCheck(ctx, cfg.ID, now); err != nil {
		s.logger.Printf("[scheduler] Stats update failed for %s: %v", cfg.ID, err)
	}
	s.appendEvalLog(ctx, &domain.EvaluationRecord{
		ConfigID:    cfg.ID,
		Outcome:     domain.OutcomeError,
		Reason:      kind,
		BalanceSOL:  balance,
		EvaluatedAt: now,
	})
	observability.RecordEvaluation(string(domain.OutcomeError))
	observability.RecordEvaluationError(kind)
}

func (s *Scheduler) appendEvalLog(ctx context.Context, r *domain.EvaluationRecord) {
	if s.evalLog == nil {
		return
	}
	if err := s.evalLog.Insert(ctx, r); err != nil {
		s.logger.Printf("[scheduler] Evaluation log insert failed: %v", err)
	}
}
