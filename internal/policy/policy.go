// Package policy implements the sweep decision rules: the USD-value gate,
// reserve arithmetic, and the minimum-transferable gate.
package policy

import "sync"

// MinTransferAmount is the smallest sweep worth submitting, in SOL.
// Anything below this would be eaten by network fees.
const MinTransferAmount = 0.001

// Default threshold values applied until the operator overrides them.
const (
	DefaultMinUSDThreshold = 15.0
)

// DecisionKind classifies the outcome of an evaluation.
type DecisionKind int

const (
	// NoOpBelowUSDThreshold: balance * rate is at or below the USD threshold.
	NoOpBelowUSDThreshold DecisionKind = iota
	// NoOpInsufficientAmount: the transferable amount is below MinTransferAmount.
	NoOpInsufficientAmount
	// DoTransfer: sweep Amount SOL to the destination.
	DoTransfer
)

// String returns a short label for logging and the evaluation log.
func (k DecisionKind) String() string {
	switch k {
	case NoOpBelowUSDThreshold:
		return "below_usd_threshold"
	case NoOpInsufficientAmount:
		return "insufficient_amount"
	case DoTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a balance against the threshold rules.
type Decision struct {
	Kind   DecisionKind
	Amount float64 // SOL to transfer, set only when Kind == DoTransfer
}

// Transfer reports whether the decision authorizes a transfer.
func (d Decision) Transfer() bool {
	return d.Kind == DoTransfer
}

// Evaluate applies the threshold rules to a wallet balance.
// It is a pure function of its inputs:
//
//	balanceUsd = balance * rate
//	balanceUsd <= minUSD            -> no-op (inclusive comparison)
//	amount = max(0, balance - reserve)
//	amount < MinTransferAmount      -> no-op
//	otherwise                       -> transfer amount
func Evaluate(balance, reserve, rate, minUSD float64) Decision {
	balanceUSD := balance * rate
	if balanceUSD <= minUSD {
		return Decision{Kind: NoOpBelowUSDThreshold}
	}

	amount := balance - reserve
	if amount < 0 {
		amount = 0
	}
	if amount < MinTransferAmount {
		return Decision{Kind: NoOpInsufficientAmount}
	}

	return Decision{Kind: DoTransfer, Amount: amount}
}

// Threshold holds the process-wide SOL/USD rate and minimum USD threshold.
// It is shared by every evaluation and mutated via the management surface.
type Threshold struct {
	mu     sync.RWMutex
	rate   float64 // SOL -> USD
	minUSD float64
}

// NewThreshold creates a Threshold with the given initial values.
func NewThreshold(rate, minUSD float64) *Threshold {
	return &Threshold{rate: rate, minUSD: minUSD}
}

// SetRate updates the SOL->USD conversion rate.
func (t *Threshold) SetRate(rate float64) {
	t.mu.Lock()
	t.rate = rate
	t.mu.Unlock()
}

// SetMinUSD updates the minimum USD threshold.
func (t *Threshold) SetMinUSD(minUSD float64) {
	t.mu.Lock()
	t.minUSD = minUSD
	t.mu.Unlock()
}

// Snapshot returns the current rate and threshold as one consistent pair.
func (t *Threshold) Snapshot() (rate, minUSD float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rate, t.minUSD
}

// Evaluate applies the pure decision function using the current snapshot.
func (t *Threshold) Evaluate(balance, reserve float64) Decision {
	rate, minUSD := t.Snapshot()
	return Evaluate(balance, reserve, rate, minUSD)
}
