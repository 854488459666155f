package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"solana-auto-sender/internal/domain"
	"solana-auto-sender/internal/observability"
	"solana-auto-sender/internal/sender"
	"solana-auto-sender/internal/storage"
)

// configResponse is the wire form of a configuration. Secrets are never part
// of it; they are write-only at registration time.
type configResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	SourceAddress      string    `json:"source_address"`
	DestinationAddress string    `json:"destination_address"`
	ReserveAmount      float64   `json:"reserve_amount"`
	IsActive           bool      `json:"is_active"`
	DeactivatedReason  string    `json:"deactivated_reason,omitempty"`
	LastCheckedAt      time.Time `json:"last_checked_at,omitempty"`
	LastTransferAt     time.Time `json:"last_transfer_at,omitempty"`
	TotalTransferred   float64   `json:"total_transferred"`
	TransferCount      int64     `json:"transfer_count"`
	CreatedAt          time.Time `json:"created_at"`
}

func toConfigResponse(c *domain.AutoSenderConfig) configResponse {
	return configResponse{
		ID:                 c.ID,
		Name:               c.Name,
		SourceAddress:      c.SourceAddress,
		DestinationAddress: c.DestinationAddress,
		ReserveAmount:      c.ReserveAmount,
		IsActive:           c.IsActive,
		DeactivatedReason:  c.DeactivatedReason,
		LastCheckedAt:      c.LastCheckedAt,
		LastTransferAt:     c.LastTransferAt,
		TotalTransferred:   c.TotalTransferred,
		TransferCount:      c.TransferCount,
		CreatedAt:          c.CreatedAt,
	}
}

type addRequest struct {
	Name               string   `json:"name"`
	SourceAddress      string   `json:"source_address"`
	DestinationAddress string   `json:"destination_address"`
	ReserveAmount      *float64 `json:"reserve_amount,omitempty"`
	SecretKey          string   `json:"secret_key"`
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

type thresholdRequest struct {
	MinUSD float64 `json:"min_usd"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// newHandler builds the management mux.
func newHandler(svc *sender.Service, logger *log.Logger) http.Handler {
	h := &handler{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", h.status)

	mux.HandleFunc("GET /auto-senders", h.list)
	mux.HandleFunc("POST /auto-senders", h.add)
	mux.HandleFunc("GET /auto-senders/{id}", h.get)
	mux.HandleFunc("DELETE /auto-senders/{id}", h.remove)
	mux.HandleFunc("POST /auto-senders/{id}/activate", h.setActive(true))
	mux.HandleFunc("POST /auto-senders/{id}/deactivate", h.setActive(false))

	mux.HandleFunc("POST /scheduler/start", h.start)
	mux.HandleFunc("POST /scheduler/stop", h.stop)

	mux.HandleFunc("PUT /policy/rate", h.setRate)
	mux.HandleFunc("PUT /policy/threshold", h.setThreshold)

	return mux
}

type handler struct {
	svc    *sender.Service
	logger *log.Logger
}

type statusResponse struct {
	*sender.Status
	Configs []configResponse `json:"configs"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.GetStatus(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := statusResponse{Status: status, Configs: make([]configResponse, 0, len(status.Configs))}
	for _, c := range status.Configs {
		resp.Configs = append(resp.Configs, toConfigResponse(c))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	configs, err := h.svc.GetConfigs(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]configResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, toConfigResponse(c))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.svc.AddAutoSender(r.Context(), sender.AddParams{
		Name:               req.Name,
		SourceAddress:      req.SourceAddress,
		DestinationAddress: req.DestinationAddress,
		ReserveAmount:      req.ReserveAmount,
		SecretKey:          req.SecretKey,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toConfigResponse(cfg))
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.GetConfig(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveAutoSender(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := h.svc.ToggleAutoSender(r.Context(), r.PathValue("id"), active)
		if err != nil {
			h.writeError(w, statusFor(err), err)
			return
		}
		h.writeJSON(w, http.StatusOK, toConfigResponse(cfg))
	}
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	// The loop must outlive this request.
	h.svc.Start(context.Background())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) {
	h.svc.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.UpdateSolRate(req.Rate); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.UpdateUSDThreshold(req.MinUSD); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Printf("Encode response: %v", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, code int, err error) {
	h.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
