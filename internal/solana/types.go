package solana

// LamportsPerSOL is the number of smallest units in one SOL.
const LamportsPerSOL = 1_000_000_000

// Commitment is the confirmation depth required before a transaction is
// considered final.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Blockhash is the short-lived replay-protection context for a transaction.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignatureStatus is one entry from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *uint64
	ConfirmationStatus Commitment
	Err                interface{} // non-nil when the transaction failed on-chain
}

// Confirmed reports whether the status satisfies the given commitment level.
func (s *SignatureStatus) Confirmed(level Commitment) bool {
	if s == nil || s.Err != nil {
		return false
	}
	switch level {
	case CommitmentProcessed:
		return s.ConfirmationStatus != ""
	case CommitmentConfirmed:
		return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
	case CommitmentFinalized:
		return s.ConfirmationStatus == CommitmentFinalized
	default:
		return false
	}
}

// AccountInfo is the subset of account state the auto-sender reads.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Executable bool   `json:"executable"`
}

// SOLToLamports converts a SOL amount to lamports, flooring fractional
// lamports. Negative amounts clamp to zero.
func SOLToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(sol * LamportsPerSOL)
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}
