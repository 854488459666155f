package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-auto-sender/internal/policy"
	"solana-auto-sender/internal/secrets"
	"solana-auto-sender/internal/sender"
	"solana-auto-sender/internal/solana/stub"
	"solana-auto-sender/internal/storage/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	rpc := stub.NewRPCClient()
	keys := secrets.NewStore(time.Minute)
	registry := sender.NewRegistry(memory.NewConfigStore(), keys, rpc, logger)
	executor := sender.NewTransferExecutor(rpc, keys, logger)
	threshold := policy.NewThreshold(200, 15)
	scheduler := sender.NewScheduler(
		registry, executor, threshold, rpc,
		memory.NewTransferLogStore(), memory.NewEvaluationLogStore(), logger,
	)
	return newHandler(sender.NewService(registry, scheduler, threshold, nil, logger), logger)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func testAddRequest() addRequest {
	wallet := solanago.NewWallet()
	dest := solanago.NewWallet()
	return addRequest{
		Name:               "treasury sweep",
		SourceAddress:      wallet.PublicKey().String(),
		DestinationAddress: dest.PublicKey().String(),
		SecretKey:          wallet.PrivateKey.String(),
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected ok body, got %q", rec.Body.String())
	}
}

func TestAddAndListAutoSenders(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/auto-senders", testAddRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created configResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}
	if !created.IsActive {
		t.Error("new config not active by default")
	}
	if created.ReserveAmount != 5.0 {
		t.Errorf("expected default reserve 5.0, got %f", created.ReserveAmount)
	}
	// The secret must never round-trip through the API.
	if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
		t.Errorf("response leaks secret material: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/auto-senders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []configResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("expected the created config in list, got %+v", list)
	}
}

func TestAddRejectsInvalidAddress(t *testing.T) {
	h := newTestHandler(t)

	req := testAddRequest()
	req.SourceAddress = "not-a-pubkey"
	rec := doJSON(t, h, http.MethodPost, "/auto-senders", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRemoveAndNotFound(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/auto-senders", testAddRequest())
	var created configResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = doJSON(t, h, http.MethodGet, "/auto-senders/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/auto-senders/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/auto-senders/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestActivateDeactivate(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/auto-senders", testAddRequest())
	var created configResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = doJSON(t, h, http.MethodPost, "/auto-senders/"+created.ID+"/deactivate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cfg configResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cfg.IsActive {
		t.Error("expected deactivated config")
	}

	rec = doJSON(t, h, http.MethodPost, "/auto-senders/"+created.ID+"/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPolicyEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPut, "/policy/rate", rateRequest{Rate: 150})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPut, "/policy/threshold", thresholdRequest{MinUSD: 25})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/policy/rate", rateRequest{Rate: -1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative rate, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status sender.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.SolRate != 150 || status.USDThreshold != 25 {
		t.Errorf("expected updated policy in status, got %+v", status)
	}
	if status.Running {
		t.Error("expected scheduler stopped")
	}
}

func TestSchedulerEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/scheduler/start", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/status", nil)
	var status sender.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Error("expected scheduler running")
	}

	rec = doJSON(t, h, http.MethodPost, "/scheduler/stop", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
