package domain

import "time"

// DefaultReserveAmount is the SOL balance left behind in a source wallet
// when no explicit reserve is configured.
const DefaultReserveAmount = 5.0

// AutoSenderConfig describes one source wallet being swept to a destination.
//
// The signing secret for SourceAddress is deliberately NOT part of this
// struct; it lives in the secrets store keyed by config ID and never leaves
// process memory.
type AutoSenderConfig struct {
	ID                 string  // uuid, assigned at creation, immutable
	Name               string  // operator-facing label
	SourceAddress      string  // base58 pubkey, immutable after creation
	DestinationAddress string  // base58 pubkey, immutable after creation
	ReserveAmount      float64 // SOL always left behind, >= 0
	IsActive           bool
	DeactivatedReason  string // set when the scheduler auto-deactivates

	// Stats, owned by the scheduler.
	LastCheckedAt    time.Time // advanced on every evaluation
	LastTransferAt   time.Time // advanced only on confirmed transfer
	TotalTransferred float64   // cumulative SOL, monotonically non-decreasing
	TransferCount    int64     // confirmed transfers, monotonically non-decreasing

	CreatedAt time.Time
}

// Clone returns a copy safe to hand out to callers.
func (c *AutoSenderConfig) Clone() *AutoSenderConfig {
	cp := *c
	return &cp
}
