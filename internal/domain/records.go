package domain

import "time"

// EvaluationOutcome classifies the result of one per-config evaluation.
type EvaluationOutcome string

const (
	// OutcomeChecked means the config was evaluated and policy decided no-op.
	OutcomeChecked EvaluationOutcome = "CHECKED"
	// OutcomeTransferred means a transfer was submitted and confirmed.
	OutcomeTransferred EvaluationOutcome = "TRANSFERRED"
	// OutcomeError means the evaluation failed (transient or configuration).
	OutcomeError EvaluationOutcome = "ERROR"
)

// TransferRecord is a confirmed on-chain sweep.
// Corresponds to the transfers table in PostgreSQL.
type TransferRecord struct {
	ConfigID    string
	Signature   string  // transaction signature
	AmountSOL   float64 // amount swept, SOL
	Lamports    uint64  // exact on-chain amount
	Source      string
	Destination string
	ConfirmedAt time.Time
}

// EvaluationRecord is one row of the append-only evaluation log.
// Corresponds to the evaluation_log table in ClickHouse.
type EvaluationRecord struct {
	ConfigID    string
	Outcome     EvaluationOutcome
	Reason      string  // no-op reason or error kind, empty on transfer
	BalanceSOL  float64 // balance observed at evaluation time
	AmountSOL   float64 // amount transferred, 0 unless TRANSFERRED
	Signature   string  // set only on TRANSFERRED
	EvaluatedAt time.Time
}
