package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/storage"
)

func testConfig(id string, createdAt time.Time) *domain.AutoSenderConfig {
	return &domain.AutoSenderConfig{
		ID:                 id,
		Name:               "payroll sweep",
		SourceAddress:      "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		DestinationAddress: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		ReserveAmount:      5,
		IsActive:           true,
		CreatedAt:          createdAt,
	}
}

func TestConfigInsertAndGet(t *testing.T) {
	s := NewConfigStore()
	ctx := context.Background()

	c := testConfig("cfg-1", time.Now())
	if err := s.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.GetByID(ctx, "cfg-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SourceAddress != c.SourceAddress || !got.IsActive {
		t.Errorf("got %+v", got)
	}

	// Store hands out copies.
	got.Name = "mutated"
	again, _ := s.GetByID(ctx, "cfg-1")
	if again.Name != "payroll sweep" {
		t.Error("stored config mutated through returned copy")
	}
}

func TestConfigInsertDuplicate(t *testing.T) {
	s := NewConfigStore()
	ctx := context.Background()

	c := testConfig("cfg-1", time.Now())
	if err := s.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, c); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("second Insert = %v, want ErrDuplicateKey", err)
	}
}

func TestConfigInsertInvalid(t *testing.T) {
	s := NewConfigStore()
	ctx := context.Background()

	if err := s.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(nil) = %v, want ErrInvalidInput", err)
	}
	if err := s.Insert(ctx, &domain.AutoSenderConfig{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(no ID) = %v, want ErrInvalidInput", err)
	}
}

func TestConfigUpdate(t *testing.T) {
	s := NewConfigStore()
	ctx := context.Background()

	c := testConfig("cfg-1", time.Now())
	if err := s.Update(ctx, c); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update before Insert = %v, want ErrNotFound", err)
	}

	if err := s.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	c.IsActive = false
	c.TransferCount = 3
	if err := s.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.GetByID(ctx, "cfg-1")
	if got.IsActive || got.TransferCount != 3 {
		t.Errorf("got %+v after update", got)
	}
}

func TestConfigDelete(t *testing.T) {
	s := NewConfigStore()
	ctx := context.Background()

	if err := s.Delete(ctx, "cfg-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete missing = %v, want ErrNotFound", err)
	}

	if err := s.Insert(ctx, testConfig("cfg-1", time.Now())); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Delete(ctx, "cfg-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, "cfg-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrNotFound", err)
	}
}

func TestConfigListOrder(t *testing.T) {
	s := NewConfigStore()
	ctx := context.Background()

	base := time.Now()
	s.Insert(ctx, testConfig("cfg-b", base.Add(2*time.Second)))
	s.Insert(ctx, testConfig("cfg-a", base))
	s.Insert(ctx, testConfig("cfg-c", base.Add(time.Second)))

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].ID != "cfg-a" || list[1].ID != "cfg-c" || list[2].ID != "cfg-b" {
		t.Errorf("order = %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}
