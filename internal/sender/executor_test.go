package sender

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/secrets"
	"solana-auto-sender/internal/solana"
	"solana-auto-sender/internal/solana/stub"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestWallet generates a fresh keypair for tests.
func newTestWallet(t *testing.T) (solanago.PrivateKey, string) {
	t.Helper()
	wallet := solanago.NewWallet()
	return wallet.PrivateKey, wallet.PublicKey().String()
}

func newTestExecutor(rpc *stub.RPCClient, keys *secrets.Store) *TransferExecutor {
	return NewTransferExecutor(rpc, keys, discardLogger(),
		WithConfirmAttempts(3),
		WithConfirmDelay(time.Millisecond),
	)
}

func TestExecuteSuccess(t *testing.T) {
	priv, source := newTestWallet(t)
	_, dest := newTestWallet(t)

	keys := secrets.NewStore(time.Minute)
	rpc := stub.NewRPCClient()

	cfg := &domain.AutoSenderConfig{ID: "cfg-1", SourceAddress: source, DestinationAddress: dest}
	keys.Put(cfg.ID, []byte(priv))

	exec := newTestExecutor(rpc, keys)
	record, err := exec.Execute(context.Background(), cfg, 2.5)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if record.Lamports != 2_500_000_000 {
		t.Errorf("lamports = %d, want 2500000000", record.Lamports)
	}
	if record.AmountSOL != 2.5 {
		t.Errorf("amount = %v, want 2.5", record.AmountSOL)
	}
	if record.Signature == "" {
		t.Error("empty signature")
	}
	if record.Source != source || record.Destination != dest {
		t.Errorf("addresses = %s -> %s", record.Source, record.Destination)
	}
	if rpc.SendTransactionCalls != 1 {
		t.Errorf("SendTransaction called %d times, want 1", rpc.SendTransactionCalls)
	}
	if len(rpc.SentTransactions) != 1 || rpc.SentTransactions[0] == "" {
		t.Error("no transaction payload captured")
	}
}

func TestExecuteMissingKey(t *testing.T) {
	_, source := newTestWallet(t)
	_, dest := newTestWallet(t)

	keys := secrets.NewStore(time.Minute)
	rpc := stub.NewRPCClient()
	cfg := &domain.AutoSenderConfig{ID: "cfg-1", SourceAddress: source, DestinationAddress: dest}

	exec := newTestExecutor(rpc, keys)
	_, err := exec.Execute(context.Background(), cfg, 1)
	if !IsConfigurationError(err) {
		t.Errorf("err = %v, want ConfigurationError", err)
	}
}

func TestExecuteMismatchedKey(t *testing.T) {
	privA, _ := newTestWallet(t)
	_, sourceB := newTestWallet(t)
	_, dest := newTestWallet(t)

	keys := secrets.NewStore(time.Minute)
	rpc := stub.NewRPCClient()

	// Key for wallet A registered against wallet B's address.
	cfg := &domain.AutoSenderConfig{ID: "cfg-1", SourceAddress: sourceB, DestinationAddress: dest}
	keys.Put(cfg.ID, []byte(privA))

	exec := newTestExecutor(rpc, keys)
	_, err := exec.Execute(context.Background(), cfg, 1)
	if !IsConfigurationError(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if rpc.SendTransactionCalls != 0 {
		t.Error("transaction was submitted despite key mismatch")
	}
}

func TestExecuteSendFailure(t *testing.T) {
	priv, source := newTestWallet(t)
	_, dest := newTestWallet(t)

	keys := secrets.NewStore(time.Minute)
	rpc := stub.NewRPCClient()
	rpc.SendTransactionFn = func(ctx context.Context, txBase64 string) (string, error) {
		return "", fmt.Errorf("node unavailable")
	}

	cfg := &domain.AutoSenderConfig{ID: "cfg-1", SourceAddress: source, DestinationAddress: dest}
	keys.Put(cfg.ID, []byte(priv))

	exec := newTestExecutor(rpc, keys)
	_, err := exec.Execute(context.Background(), cfg, 1)
	if !IsTransientError(err) {
		t.Errorf("err = %v, want TransientError", err)
	}
}

func TestExecuteOnChainFailure(t *testing.T) {
	priv, source := newTestWallet(t)
	_, dest := newTestWallet(t)

	keys := secrets.NewStore(time.Minute)
	rpc := stub.NewRPCClient()
	rpc.GetSignatureStatusesFn = func(ctx context.Context, sigs ...string) ([]*solana.SignatureStatus, error) {
		return []*solana.SignatureStatus{
			{ConfirmationStatus: solana.CommitmentFinalized, Err: map[string]any{"InstructionError": []any{0, "Custom"}}},
		}, nil
	}

	cfg := &domain.AutoSenderConfig{ID: "cfg-1", SourceAddress: source, DestinationAddress: dest}
	keys.Put(cfg.ID, []byte(priv))

	exec := newTestExecutor(rpc, keys)
	_, err := exec.Execute(context.Background(), cfg, 1)
	if !IsTransientError(err) {
		t.Errorf("err = %v, want TransientError", err)
	}
	if rpc.StatusCalls != 1 {
		t.Errorf("status polled %d times, want 1 (on-chain failure is final)", rpc.StatusCalls)
	}
}

func TestExecuteConfirmationTimeout(t *testing.T) {
	priv, source := newTestWallet(t)
	_, dest := newTestWallet(t)

	keys := secrets.NewStore(time.Minute)
	rpc := stub.NewRPCClient()
	rpc.GetSignatureStatusesFn = func(ctx context.Context, sigs ...string) ([]*solana.SignatureStatus, error) {
		return []*solana.SignatureStatus{nil}, nil
	}

	cfg := &domain.AutoSenderConfig{ID: "cfg-1", SourceAddress: source, DestinationAddress: dest}
	keys.Put(cfg.ID, []byte(priv))

	exec := newTestExecutor(rpc, keys)
	_, err := exec.Execute(context.Background(), cfg, 1)
	if !IsTransientError(err) {
		t.Errorf("err = %v, want TransientError", err)
	}
	if rpc.StatusCalls != 3 {
		t.Errorf("status polled %d times, want 3", rpc.StatusCalls)
	}
}

func TestExecuteZeroLamports(t *testing.T) {
	priv, source := newTestWallet(t)
	_, dest := newTestWallet(t)

	keys := secrets.NewStore(time.Minute)
	rpc := stub.NewRPCClient()
	cfg := &domain.AutoSenderConfig{ID: "cfg-1", SourceAddress: source, DestinationAddress: dest}
	keys.Put(cfg.ID, []byte(priv))

	exec := newTestExecutor(rpc, keys)
	if _, err := exec.Execute(context.Background(), cfg, 0); !IsConfigurationError(err) {
		t.Errorf("err = %v, want ConfigurationError for zero amount", err)
	}
}
