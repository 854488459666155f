// Package stub provides scriptable RPC client implementations for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-auto-sender/internal/solana"
)

// RPCClient is a scriptable implementation of solana.RPCClient. Each method
// delegates to the corresponding Fn field when set and falls back to a
// canned default otherwise. Safe for concurrent use.
type RPCClient struct {
	mu sync.Mutex

	GetBalanceFn            func(ctx context.Context, address string) (uint64, error)
	GetLatestBlockhashFn    func(ctx context.Context) (*solana.Blockhash, error)
	SendTransactionFn       func(ctx context.Context, txBase64 string) (string, error)
	GetSignatureStatusesFn  func(ctx context.Context, signatures ...string) ([]*solana.SignatureStatus, error)
	GetAccountInfoFn        func(ctx context.Context, address string) (*solana.AccountInfo, error)

	// Balances is the fallback for GetBalance when GetBalanceFn is nil.
	Balances map[string]uint64

	// Counters for call verification.
	GetBalanceCalls      int
	SendTransactionCalls int
	StatusCalls          int

	// SentTransactions records every base64 payload passed to SendTransaction.
	SentTransactions []string
}

// NewRPCClient creates a stub with empty balances.
func NewRPCClient() *RPCClient {
	return &RPCClient{Balances: make(map[string]uint64)}
}

func (s *RPCClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	s.mu.Lock()
	s.GetBalanceCalls++
	fn := s.GetBalanceFn
	bal, ok := s.Balances[address]
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, address)
	}
	if !ok {
		return 0, fmt.Errorf("no balance scripted for %s", address)
	}
	return bal, nil
}

func (s *RPCClient) GetLatestBlockhash(ctx context.Context) (*solana.Blockhash, error) {
	s.mu.Lock()
	fn := s.GetLatestBlockhashFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return &solana.Blockhash{
		Blockhash:            "GfVcyD4kkTrj4bKc7WA9sZCin9JDbdT4Zkd3EittNR1W",
		LastValidBlockHeight: 100_000,
	}, nil
}

func (s *RPCClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	s.mu.Lock()
	s.SendTransactionCalls++
	s.SentTransactions = append(s.SentTransactions, txBase64)
	fn := s.SendTransactionFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, txBase64)
	}
	return "stub-signature", nil
}

func (s *RPCClient) GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	s.mu.Lock()
	s.StatusCalls++
	fn := s.GetSignatureStatusesFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, signatures...)
	}
	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i := range signatures {
		statuses[i] = &solana.SignatureStatus{ConfirmationStatus: "finalized"}
	}
	return statuses, nil
}

func (s *RPCClient) GetAccountInfo(ctx context.Context, address string) (*solana.AccountInfo, error) {
	s.mu.Lock()
	fn := s.GetAccountInfoFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, address)
	}
	return &solana.AccountInfo{Lamports: 0}, nil
}

// SetBalance scripts the balance returned for an address.
func (s *RPCClient) SetBalance(address string, lamports uint64) {
	s.mu.Lock()
	s.Balances[address] = lamports
	s.mu.Unlock()
}

var _ solana.RPCClient = (*RPCClient)(nil)
