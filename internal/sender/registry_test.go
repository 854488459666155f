package sender

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-auto-sender/internal/secrets"
	"solana-auto-sender/internal/solana/stub"
	"solana-auto-sender/internal/storage/memory"
)

func newTestRegistry() (*Registry, *secrets.Store) {
	keys := secrets.NewStore(time.Minute)
	return NewRegistry(memory.NewConfigStore(), keys, stub.NewRPCClient(), discardLogger()), keys
}

func validAddParams(t *testing.T) AddParams {
	t.Helper()
	priv, source := newTestWallet(t)
	_, dest := newTestWallet(t)
	return AddParams{
		Name:               "sweep",
		SourceAddress:      source,
		DestinationAddress: dest,
		SecretKey:          priv.String(),
	}
}

func TestRegistryAdd(t *testing.T) {
	r, keys := newTestRegistry()
	ctx := context.Background()

	p := validAddParams(t)
	cfg, err := r.Add(ctx, p)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if cfg.ID == "" {
		t.Error("no ID assigned")
	}
	if cfg.ReserveAmount != 5 {
		t.Errorf("reserve = %v, want default 5", cfg.ReserveAmount)
	}
	if !cfg.IsActive {
		t.Error("new config not active by default")
	}
	if !keys.Has(cfg.ID) {
		t.Error("signing key not resident after Add")
	}
}

func TestRegistryAddValidation(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	good := validAddParams(t)

	tests := []struct {
		name    string
		mutate  func(*AddParams)
		wantErr string
	}{
		{"bad source", func(p *AddParams) { p.SourceAddress = "nope" }, "source address"},
		{"bad destination", func(p *AddParams) { p.DestinationAddress = "nope" }, "destination address"},
		{"same source and destination", func(p *AddParams) { p.DestinationAddress = p.SourceAddress }, "same address"},
		{"bad secret", func(p *AddParams) { p.SecretKey = "not-base58!" }, "decode secret key"},
		{"negative reserve", func(p *AddParams) { v := -1.0; p.ReserveAmount = &v }, "reserve amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			tt.mutate(&p)
			_, err := r.Add(ctx, p)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Add = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryAddRejectsOffCurveSource(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	// Program-derived addresses are off-curve by construction; no private
	// key can control them.
	pda, _, err := solanago.FindProgramAddress([][]byte{[]byte("vault")}, solanago.SystemProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}

	p := validAddParams(t)
	p.SourceAddress = pda.String()
	_, err = r.Add(ctx, p)
	if err == nil || !strings.Contains(err.Error(), "on-curve") {
		t.Errorf("Add = %v, want off-curve rejection", err)
	}
}

func TestRegistryAddSecretMismatch(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	p := validAddParams(t)
	other, _ := newTestWallet(t)
	p.SecretKey = other.String()

	_, err := r.Add(ctx, p)
	if err == nil || !strings.Contains(err.Error(), "does not control source address") {
		t.Errorf("Add = %v, want key mismatch error", err)
	}
}

func TestRegistryRemovePurgesKey(t *testing.T) {
	r, keys := newTestRegistry()
	ctx := context.Background()

	cfg, err := r.Add(ctx, validAddParams(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := r.Remove(ctx, cfg.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if keys.Has(cfg.ID) {
		t.Error("signing key survived Remove")
	}
	if _, err := r.Get(ctx, cfg.ID); err == nil {
		t.Error("config survived Remove")
	}
}

func TestRegistrySetActive(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	cfg, err := r.Add(ctx, validAddParams(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := r.SetActive(ctx, cfg.ID, false)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got.IsActive {
		t.Error("config still active after SetActive(false)")
	}

	got, err = r.SetActive(ctx, cfg.ID, true)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if !got.IsActive {
		t.Error("config not active after SetActive(true)")
	}
}

func TestRegistryActivationRequiresKey(t *testing.T) {
	r, keys := newTestRegistry()
	ctx := context.Background()

	cfg, err := r.Add(ctx, validAddParams(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Simulate restart: key gone, config persisted.
	keys.Delete(cfg.ID)

	if _, err := r.SetActive(ctx, cfg.ID, true); err == nil {
		t.Error("SetActive(true) succeeded without resident key")
	}
	// Deactivation needs no key.
	if _, err := r.SetActive(ctx, cfg.ID, false); err != nil {
		t.Errorf("SetActive(false): %v", err)
	}
}

func TestRegistryDeactivateRecordsReason(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	cfg, err := r.Add(ctx, validAddParams(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := r.Deactivate(ctx, cfg.ID, "signing key does not match source address"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	got, _ := r.Get(ctx, cfg.ID)
	if got.IsActive {
		t.Error("config still active")
	}
	if got.DeactivatedReason == "" {
		t.Error("no deactivation reason recorded")
	}

	// Reactivating clears the reason.
	got, err = r.SetActive(ctx, cfg.ID, true)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got.DeactivatedReason != "" {
		t.Error("reason not cleared on reactivation")
	}
}

func TestRegistryStats(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	cfg, err := r.Add(ctx, validAddParams(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	checkAt := time.Now().UTC()
	if err := r.RecordCheck(ctx, cfg.ID, checkAt); err != nil {
		t.Fatalf("RecordCheck: %v", err)
	}

	got, _ := r.Get(ctx, cfg.ID)
	if !got.LastCheckedAt.Equal(checkAt) {
		t.Errorf("LastCheckedAt = %v, want %v", got.LastCheckedAt, checkAt)
	}
	if got.TransferCount != 0 || !got.LastTransferAt.IsZero() {
		t.Error("transfer stats moved on a plain check")
	}

	transferAt := checkAt.Add(time.Second)
	if err := r.RecordTransfer(ctx, cfg.ID, 2.5, transferAt); err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
	if err := r.RecordTransfer(ctx, cfg.ID, 1.5, transferAt.Add(time.Second)); err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}

	got, _ = r.Get(ctx, cfg.ID)
	if got.TotalTransferred != 4 {
		t.Errorf("TotalTransferred = %v, want 4", got.TotalTransferred)
	}
	if got.TransferCount != 2 {
		t.Errorf("TransferCount = %d, want 2", got.TransferCount)
	}
	if !got.LastTransferAt.Equal(transferAt.Add(time.Second)) {
		t.Errorf("LastTransferAt = %v", got.LastTransferAt)
	}
}

func TestRegistryConcurrentStatsAndToggle(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	cfg, err := r.Add(ctx, validAddParams(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Stats writes racing toggles must never be lost: both sides are
	// read-modify-write against the same row.
	const transfers = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < transfers; i++ {
			if err := r.RecordTransfer(ctx, cfg.ID, 1, time.Now().UTC()); err != nil {
				t.Errorf("RecordTransfer: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < transfers; i++ {
			if _, err := r.SetActive(ctx, cfg.ID, i%2 == 0); err != nil {
				t.Errorf("SetActive: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	got, _ := r.Get(ctx, cfg.ID)
	if got.TransferCount != transfers {
		t.Errorf("TransferCount = %d, want %d", got.TransferCount, transfers)
	}
	if got.TotalTransferred != transfers {
		t.Errorf("TotalTransferred = %v, want %d", got.TotalTransferred, transfers)
	}
}
