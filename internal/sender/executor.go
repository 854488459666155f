package sender

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/avast/retry-go/v4"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/observability"
	"solana-auto-sender/internal/secrets"
	"solana-auto-sender/internal/solana"
)

// Confirmation polling defaults.
const (
	DefaultConfirmAttempts = 30
	DefaultConfirmDelay    = 2 * time.Second
)

// TransferExecutor builds, signs, submits and confirms one sweep. It makes
// exactly one submission attempt per call; retrying across ticks is the
// scheduler's job.
type TransferExecutor struct {
	rpc             solana.RPCClient
	keys            *secrets.Store
	commitment      solana.Commitment
	confirmAttempts uint
	confirmDelay    time.Duration
	logger          *log.Logger
}

// ExecutorOption configures TransferExecutor.
type ExecutorOption func(*TransferExecutor)

// WithConfirmAttempts sets how many times confirmation is polled.
func WithConfirmAttempts(n uint) ExecutorOption {
	return func(e *TransferExecutor) {
		e.confirmAttempts = n
	}
}

// WithConfirmDelay sets the delay between confirmation polls.
func WithConfirmDelay(d time.Duration) ExecutorOption {
	return func(e *TransferExecutor) {
		e.confirmDelay = d
	}
}

// WithCommitment sets the commitment level a transfer must reach.
func WithCommitment(c solana.Commitment) ExecutorOption {
	return func(e *TransferExecutor) {
		e.commitment = c
	}
}

// NewTransferExecutor creates a TransferExecutor.
func NewTransferExecutor(rpc solana.RPCClient, keys *secrets.Store, logger *log.Logger, opts ...ExecutorOption) *TransferExecutor {
	e := &TransferExecutor{
		rpc:             rpc,
		keys:            keys,
		commitment:      solana.CommitmentConfirmed,
		confirmAttempts: DefaultConfirmAttempts,
		confirmDelay:    DefaultConfirmDelay,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sweeps amountSOL from the config's source to its destination and
// waits for on-chain confirmation. A fresh blockhash is fetched on every
// call; stale ones are rejected by the network.
func (e *TransferExecutor) Execute(ctx context.Context, cfg *domain.AutoSenderConfig, amountSOL float64) (*domain.TransferRecord, error) {
	signer, err := e.signingKey(cfg)
	if err != nil {
		return nil, err
	}

	lamports := solana.SOLToLamports(amountSOL)
	if lamports == 0 {
		return nil, &ConfigurationError{ConfigID: cfg.ID, Reason: fmt.Sprintf("amount %f SOL rounds to zero lamports", amountSOL)}
	}

	dest, err := solanago.PublicKeyFromBase58(cfg.DestinationAddress)
	if err != nil {
		return nil, &ConfigurationError{ConfigID: cfg.ID, Reason: "invalid destination address", Err: err}
	}

	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, &TransientError{Op: "get latest blockhash", Err: err}
	}
	recentHash, err := solanago.HashFromBase58(blockhash.Blockhash)
	if err != nil {
		return nil, &TransientError{Op: "parse blockhash", Err: err}
	}

	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{
			system.NewTransferInstruction(
				lamports,
				signer.PublicKey(),
				dest,
			).Build(),
		},
		recentHash,
		solanago.TransactionPayer(signer.PublicKey()),
	)
	if err != nil {
		return nil, &TransientError{Op: "build transaction", Err: err}
	}

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if signer.PublicKey().Equals(key) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return nil, &ConfigurationError{ConfigID: cfg.ID, Reason: "sign transaction", Err: err}
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, &TransientError{Op: "marshal transaction", Err: err}
	}

	started := time.Now()

	signature, err := e.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		return nil, &TransientError{Op: "send transaction", Err: err}
	}

	e.logger.Printf("[executor] Submitted transfer config=%s amount=%.9f SOL sig=%s", cfg.ID, amountSOL, signature)

	if err := e.awaitConfirmation(ctx, signature); err != nil {
		return nil, err
	}

	observability.RecordTransfer(lamports, time.Since(started).Seconds())
	e.logger.Printf("[executor] Confirmed transfer config=%s sig=%s", cfg.ID, signature)

	return &domain.TransferRecord{
		ConfigID:    cfg.ID,
		Signature:   signature,
		AmountSOL:   amountSOL,
		Lamports:    lamports,
		Source:      cfg.SourceAddress,
		Destination: cfg.DestinationAddress,
		ConfirmedAt: time.Now().UTC(),
	}, nil
}

// signingKey loads the key for cfg and verifies it actually controls the
// source address. A mismatch means the operator registered the wrong key;
// that can never heal on its own.
func (e *TransferExecutor) signingKey(cfg *domain.AutoSenderConfig) (solanago.PrivateKey, error) {
	raw, err := e.keys.Get(cfg.ID)
	if err != nil {
		return nil, &ConfigurationError{ConfigID: cfg.ID, Reason: "signing key not held", Err: err}
	}
	if len(raw) != 64 {
		return nil, &ConfigurationError{ConfigID: cfg.ID, Reason: fmt.Sprintf("signing key must be 64 bytes, got %d", len(raw))}
	}

	signer := solanago.PrivateKey(raw)
	if signer.PublicKey().String() != cfg.SourceAddress {
		return nil, &ConfigurationError{ConfigID: cfg.ID, Reason: "signing key does not match source address"}
	}
	return signer, nil
}

// notConfirmedYet marks a poll that saw no satisfying status.
var errNotConfirmedYet = fmt.Errorf("not confirmed yet")

// awaitConfirmation polls signature status until the configured commitment
// is reached or attempts run out.
func (e *TransferExecutor) awaitConfirmation(ctx context.Context, signature string) error {
	err := retry.Do(
		func() error {
			statuses, err := e.rpc.GetSignatureStatuses(ctx, signature)
			if err != nil {
				return err
			}
			if len(statuses) == 0 || statuses[0] == nil {
				return errNotConfirmedYet
			}
			if statuses[0].Err != nil {
				return retry.Unrecoverable(fmt.Errorf("transaction failed on-chain: %v", statuses[0].Err))
			}
			if !statuses[0].Confirmed(e.commitment) {
				return errNotConfirmedYet
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.confirmAttempts),
		retry.Delay(e.confirmDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if n > 0 && n%10 == 0 {
				e.logger.Printf("[executor] Still waiting for confirmation sig=%s attempt=%d", signature, n)
			}
		}),
	)
	if err != nil {
		return &TransientError{Op: "confirm transaction", Err: err}
	}
	return nil
}
