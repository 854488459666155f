package solana

import "context"

// RPCClient defines the chain RPC operations the auto-sender consumes.
// The contract is provider-agnostic: any Solana JSON-RPC endpoint works.
type RPCClient interface {
	// GetBalance retrieves the confirmed balance of an address in lamports.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetLatestBlockhash retrieves a fresh blockhash. Callers must fetch a
	// new one per transaction attempt; the network rejects stale values.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// SendTransaction submits base64-encoded signed transaction bytes and
	// returns the transaction signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	// The result slice matches the input order; unknown signatures yield nil.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetAccountInfo retrieves account lamports/owner for an address.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)
}
