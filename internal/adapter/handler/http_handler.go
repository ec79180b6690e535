package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ldinh/marketd/internal/core/domain"
	"github.com/ldinh/marketd/internal/core/service"
)

type HTTPHandler struct {
	markets   *service.MarketService
	purchases *service.PurchaseService
}

func NewHTTPHandler(markets *service.MarketService, purchases *service.PurchaseService) *HTTPHandler {
	return &HTTPHandler{markets: markets, purchases: purchases}
}

type OpenMarketRequest struct {
	Tenant          string `json:"tenant"`
	CallerID        string `json:"caller_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CloseMarketRequest struct {
	Tenant   string `json:"tenant"`
	CallerID string `json:"caller_id"`
	Reason   string `json:"reason"`
}

type PurchaseHTTPRequest struct {
	RequestID string `json:"request_id"`
	Tenant    string `json:"tenant"`
	BuyerID   string `json:"buyer_id"`
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
}

type MarketStateResponse struct {
	Tenant     string `json:"tenant"`
	Generation int64  `json:"generation"`
	IsOpen     bool   `json:"is_open"`
	ClosesAt   string `json:"closes_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func marketStateResponse(state *domain.MarketState) MarketStateResponse {
	resp := MarketStateResponse{
		Tenant:     state.Tenant,
		Generation: state.Generation,
		IsOpen:     state.IsOpen,
	}
	if !state.ClosesAt.IsZero() {
		resp.ClosesAt = state.ClosesAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *HTTPHandler) OpenMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OpenMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Tenant == "" || req.CallerID == "" || req.DurationMinutes <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing required fields"})
		return
	}

	state, err := h.markets.Open(r.Context(), req.Tenant, req.CallerID, time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketStateResponse(state))
}

func (h *HTTPHandler) CloseMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CloseMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Tenant == "" || req.CallerID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing required fields"})
		return
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	if err := h.markets.Close(r.Context(), req.Tenant, req.CallerID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (h *HTTPHandler) MarketState(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "tenant is required"})
		return
	}

	state, err := h.markets.Snapshot(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketStateResponse(state))
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "tenant is required"})
		return
	}

	views, err := h.markets.ListInventory(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PurchaseHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Tenant == "" || req.BuyerID == "" || req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing required fields"})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	receipt, err := h.purchases.Purchase(r.Context(), service.PurchaseRequest{
		RequestID: req.RequestID,
		Tenant:    req.Tenant,
		BuyerID:   req.BuyerID,
		ItemID:    req.ItemID,
		Qty:       req.Quantity,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps domain errors to HTTP statuses. Domain rejections
// need a changed request, not a retry, so they all land in the 4xx
// range.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status, message = http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrNotOpen):
		status, message = http.StatusConflict, "market not open"
	case errors.Is(err, domain.ErrExpired):
		status, message = http.StatusGone, "market window expired"
	case errors.Is(err, domain.ErrItemNotFound):
		status, message = http.StatusNotFound, "item not found"
	case errors.Is(err, domain.ErrSoldOut):
		status, message = http.StatusGone, "sold out"
	case errors.Is(err, domain.ErrLimitReached):
		status, message = http.StatusConflict, "per-user limit reached"
	case errors.Is(err, domain.ErrInsufficientFunds):
		status, message = http.StatusPaymentRequired, "insufficient funds"
	case errors.Is(err, domain.ErrDuplicateRequest):
		status, message = http.StatusConflict, "duplicate request"
	}

	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
