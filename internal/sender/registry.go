package sender

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/observability"
	"solana-auto-sender/internal/secrets"
	"solana-auto-sender/internal/solana"
	"solana-auto-sender/internal/storage"
)

// AddParams are the operator-supplied fields for a new auto-sender.
// SecretKey is the base58-encoded 64-byte keypair for the source wallet; it
// goes to the in-memory key store and nowhere else.
type AddParams struct {
	Name               string
	SourceAddress      string
	DestinationAddress string
	ReserveAmount      *float64 // nil applies domain.DefaultReserveAmount
	SecretKey          string
}

// Registry owns the configuration set: validation, persistence, and the
// pairing of each config with its signing key.
type Registry struct {
	store  storage.ConfigStore
	keys   *secrets.Store
	rpc    solana.RPCClient
	logger *log.Logger

	// mu serializes the read-modify-write mutations; the scheduler's stats
	// writes race management toggles otherwise.
	mu sync.Mutex
}

// NewRegistry creates a Registry.
func NewRegistry(store storage.ConfigStore, keys *secrets.Store, rpc solana.RPCClient, logger *log.Logger) *Registry {
	return &Registry{store: store, keys: keys, rpc: rpc, logger: logger}
}

// Add validates and registers a new auto-sender configuration. New configs
// start active.
func (r *Registry) Add(ctx context.Context, p AddParams) (*domain.AutoSenderConfig, error) {
	if err := solana.ValidateAddress(p.SourceAddress); err != nil {
		return nil, fmt.Errorf("source address: %w", err)
	}
	if err := solana.ValidateAddress(p.DestinationAddress); err != nil {
		return nil, fmt.Errorf("destination address: %w", err)
	}
	if p.SourceAddress == p.DestinationAddress {
		return nil, fmt.Errorf("source and destination are the same address")
	}

	// The source must be a wallet that can sign; program-derived addresses
	// are off-curve and have no private key.
	onCurve, err := solana.IsOnCurve(p.SourceAddress)
	if err != nil {
		return nil, fmt.Errorf("source address: %w", err)
	}
	if !onCurve {
		return nil, fmt.Errorf("source address %s is not an on-curve wallet address", p.SourceAddress)
	}

	signer, err := solanago.PrivateKeyFromBase58(p.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(signer) != 64 {
		return nil, fmt.Errorf("secret key must be 64 bytes, got %d", len(signer))
	}
	if signer.PublicKey().String() != p.SourceAddress {
		return nil, fmt.Errorf("secret key does not control source address %s", p.SourceAddress)
	}

	reserve := domain.DefaultReserveAmount
	if p.ReserveAmount != nil {
		if *p.ReserveAmount < 0 {
			return nil, fmt.Errorf("reserve amount must be >= 0, got %f", *p.ReserveAmount)
		}
		reserve = *p.ReserveAmount
	}

	// Two configs sweeping the same wallet is allowed but almost always an
	// operator mistake, so it gets a warning.
	existing, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	for _, c := range existing {
		if c.SourceAddress == p.SourceAddress {
			r.logger.Printf("[registry] WARNING: source %s already swept by config %s", p.SourceAddress, c.ID)
		}
	}

	// An unfunded destination is legal, the first sweep creates it on chain,
	// but it is usually a typo'd address.
	if info, err := r.rpc.GetAccountInfo(ctx, p.DestinationAddress); err != nil {
		r.logger.Printf("[registry] WARNING: destination %s lookup failed: %v", p.DestinationAddress, err)
	} else if info == nil || info.Lamports == 0 {
		r.logger.Printf("[registry] WARNING: destination %s has no funded account on chain", p.DestinationAddress)
	}

	cfg := &domain.AutoSenderConfig{
		ID:                 uuid.NewString(),
		Name:               p.Name,
		SourceAddress:      p.SourceAddress,
		DestinationAddress: p.DestinationAddress,
		ReserveAmount:      reserve,
		IsActive:           true,
		CreatedAt:          time.Now().UTC(),
	}

	if err := r.store.Insert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("insert config: %w", err)
	}
	r.keys.Put(cfg.ID, []byte(signer))
	observability.SetSecretsResident(r.keys.Len())

	r.logger.Printf("[registry] Added config %s source=%s dest=%s reserve=%.4f active=%v",
		cfg.ID, cfg.SourceAddress, cfg.DestinationAddress, cfg.ReserveAmount, cfg.IsActive)

	return cfg.Clone(), nil
}

// Remove deletes a configuration and purges its signing key.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.keys.Delete(id)
	observability.SetSecretsResident(r.keys.Len())
	r.logger.Printf("[registry] Removed config %s", id)
	return nil
}

// SetActive activates or deactivates a configuration. Activation requires
// the signing key to be resident; after a restart the key is gone and the
// config must be re-registered.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) (*domain.AutoSenderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if active && !r.keys.Has(id) {
		return nil, fmt.Errorf("cannot activate %s: signing key not held, re-register the secret", id)
	}

	cfg.IsActive = active
	if active {
		cfg.DeactivatedReason = ""
	}
	if err := r.store.Update(ctx, cfg); err != nil {
		return nil, err
	}

	r.logger.Printf("[registry] Config %s active=%v", id, active)
	return cfg.Clone(), nil
}

// Deactivate turns a configuration off and records why. Used by the
// scheduler when an evaluation hits a configuration error.
func (r *Registry) Deactivate(ctx context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cfg.IsActive = false
	cfg.DeactivatedReason = reason
	return r.store.Update(ctx, cfg)
}

// Get retrieves one configuration.
func (r *Registry) Get(ctx context.Context, id string) (*domain.AutoSenderConfig, error) {
	return r.store.GetByID(ctx, id)
}

// List retrieves all configurations ordered by creation time.
func (r *Registry) List(ctx context.Context) ([]*domain.AutoSenderConfig, error) {
	return r.store.List(ctx)
}

// HasSigningKey reports whether the key for a configuration is resident.
func (r *Registry) HasSigningKey(id string) bool {
	return r.keys.Has(id)
}

// RecordCheck advances LastCheckedAt. Called on every evaluation regardless
// of outcome.
func (r *Registry) RecordCheck(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cfg.LastCheckedAt = at
	return r.store.Update(ctx, cfg)
}

// RecordTransfer applies the stats of one confirmed transfer.
func (r *Registry) RecordTransfer(ctx context.Context, id string, amountSOL float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cfg.LastCheckedAt = at
	cfg.LastTransferAt = at
	cfg.TotalTransferred += amountSOL
	cfg.TransferCount++
	return r.store.Update(ctx, cfg)
}
