package sender

import (
	"context"
	"fmt"
	"log"
	"sync"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/policy"
	"solana-auto-sender/internal/solana"
)

// Service is the management surface of the auto-sender: config CRUD,
// threshold updates, and lifecycle of the evaluation loop. The HTTP layer
// in cmd/server is a thin shell around it.
type Service struct {
	registry  *Registry
	scheduler *Scheduler
	threshold *policy.Threshold
	ws        solana.WSClient // nil disables balance wakeups
	logger    *log.Logger

	subsMu sync.Mutex
	subs   map[string]string // config ID -> subscribed source address
}

// NewService creates a Service. ws may be nil; balance wakeups are an
// optimization, the ticker alone is sufficient.
func NewService(
	registry *Registry,
	scheduler *Scheduler,
	threshold *policy.Threshold,
	ws solana.WSClient,
	logger *log.Logger,
) *Service {
	return &Service{
		registry:  registry,
		scheduler: scheduler,
		threshold: threshold,
		ws:        ws,
		logger:    logger,
		subs:      make(map[string]string),
	}
}

// Start launches the evaluation loop regardless of config count. Normally
// the loop follows the active-config count via reconcile; this is the
// operator override.
func (s *Service) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
}

// Stop halts the evaluation loop, waiting for in-flight sweeps.
func (s *Service) Stop() {
	s.scheduler.Stop()
}

// AddAutoSender registers a new configuration and, when a WebSocket client
// is wired, watches its source wallet for deposits. Adding the first active
// config starts the evaluation loop.
func (s *Service) AddAutoSender(ctx context.Context, p AddParams) (*domain.AutoSenderConfig, error) {
	cfg, err := s.registry.Add(ctx, p)
	if err != nil {
		return nil, err
	}

	s.watchSource(ctx, cfg.ID, cfg.SourceAddress)
	s.reconcile(ctx)
	return cfg, nil
}

// RemoveAutoSender deletes a configuration, purges its signing key, and
// drops its balance subscription. Removing the last active config stops the
// evaluation loop.
func (s *Service) RemoveAutoSender(ctx context.Context, id string) error {
	s.unwatchSource(ctx, id)
	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}
	s.reconcile(ctx)
	return nil
}

// ToggleAutoSender activates or deactivates a configuration. The evaluation
// loop starts when the first config goes active and stops when the last one
// goes inactive.
func (s *Service) ToggleAutoSender(ctx context.Context, id string, active bool) (*domain.AutoSenderConfig, error) {
	cfg, err := s.registry.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	s.reconcile(ctx)
	return cfg, nil
}

// reconcile aligns the scheduler state with the active-config count. The
// loop's lifetime is bounded by Stop, not by the request context that
// happened to trigger the start.
func (s *Service) reconcile(ctx context.Context) {
	configs, err := s.registry.List(ctx)
	if err != nil {
		s.logger.Printf("[service] List configs for reconcile failed: %v", err)
		return
	}

	active := 0
	for _, c := range configs {
		if c.IsActive {
			active++
		}
	}

	switch {
	case active > 0 && !s.scheduler.Running():
		s.scheduler.Start(context.Background())
	case active == 0 && s.scheduler.Running():
		s.scheduler.Stop()
	}
}

// GetConfig retrieves one configuration.
func (s *Service) GetConfig(ctx context.Context, id string) (*domain.AutoSenderConfig, error) {
	return s.registry.Get(ctx, id)
}

// GetConfigs retrieves all configurations.
func (s *Service) GetConfigs(ctx context.Context) ([]*domain.AutoSenderConfig, error) {
	return s.registry.List(ctx)
}

// UpdateSolRate sets the SOL->USD conversion rate used by every evaluation.
func (s *Service) UpdateSolRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("rate must be > 0, got %f", rate)
	}
	s.threshold.SetRate(rate)
	s.logger.Printf("[service] SOL rate set to %.4f USD", rate)
	return nil
}

// UpdateUSDThreshold sets the minimum USD value a wallet must exceed before
// sweeps are considered.
func (s *Service) UpdateUSDThreshold(minUSD float64) error {
	if minUSD < 0 {
		return fmt.Errorf("threshold must be >= 0, got %f", minUSD)
	}
	s.threshold.SetMinUSD(minUSD)
	s.logger.Printf("[service] USD threshold set to %.2f", minUSD)
	return nil
}

// Status is a snapshot of the service for the /status endpoint.
type Status struct {
	Running      bool    `json:"running"`
	InFlight     int     `json:"in_flight"`
	ConfigCount  int     `json:"config_count"`
	ActiveCount  int     `json:"active_count"`
	SolRate      float64 `json:"sol_rate_usd"`
	USDThreshold float64 `json:"usd_threshold"`

	Configs []*domain.AutoSenderConfig `json:"-"`
}

// GetStatus reports the current service state.
func (s *Service) GetStatus(ctx context.Context) (*Status, error) {
	configs, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	active := 0
	for _, c := range configs {
		if c.IsActive {
			active++
		}
	}

	rate, minUSD := s.threshold.Snapshot()
	return &Status{
		Running:      s.scheduler.Running(),
		InFlight:     s.scheduler.InFlight(),
		ConfigCount:  len(configs),
		ActiveCount:  active,
		SolRate:      rate,
		USDThreshold: minUSD,
		Configs:      configs,
	}, nil
}

// watchSource subscribes to the source wallet's balance and turns each
// notification into an early scheduler tick.
func (s *Service) watchSource(ctx context.Context, configID, address string) {
	if s.ws == nil {
		return
	}

	ch, err := s.ws.SubscribeAccount(ctx, address)
	if err != nil {
		// Wakeups are best-effort; the ticker still covers this wallet.
		s.logger.Printf("[service] Balance subscription failed for %s: %v", address, err)
		return
	}

	s.subsMu.Lock()
	s.subs[configID] = address
	s.subsMu.Unlock()

	go func() {
		for range ch {
			s.scheduler.Wake()
		}
	}()
}

// unwatchSource drops the balance subscription for a configuration.
func (s *Service) unwatchSource(ctx context.Context, configID string) {
	if s.ws == nil {
		return
	}

	s.subsMu.Lock()
	address, ok := s.subs[configID]
	delete(s.subs, configID)
	s.subsMu.Unlock()

	if !ok {
		return
	}
	if err := s.ws.UnsubscribeAccount(ctx, address); err != nil {
		s.logger.Printf("[service] Unsubscribe failed for %s: %v", address, err)
	}
}
