// Package httpx is the thin HTTP surface over the order service. It maps
// request bodies to orchestrator inputs and CreationResult kinds to status
// codes; no business logic lives here.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecomsvc/order-events/internal/httpx/middlewares"
	"github.com/ecomsvc/order-events/internal/order"
)

type Handler struct {
	orders *order.Service
}

func NewHandler(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

// CreateOrder runs the creation saga for one request.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	slog.InfoContext(r.Context(), "creating order",
		"request_id", middlewares.RequestID(r.Context()),
		"customer_id", req.CustomerID,
	)

	result := h.orders.CreateOrder(r.Context(), order.CreateOrderInput{
		CustomerID: req.CustomerID,
		Name:       req.Name,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
	})

	if result.Success() {
		writeJSON(w, http.StatusCreated, mapOrderToResponse(result.Order))
		return
	}

	switch result.Kind {
	case order.FailureEntityNotFound:
		writeError(w, http.StatusNotFound, string(result.Kind), result.Messages...)
	case order.FailureServiceUnavailable:
		writeError(w, http.StatusServiceUnavailable, string(result.Kind), result.Messages...)
	default:
		writeError(w, http.StatusUnprocessableEntity, string(result.Kind), result.Messages...)
	}
}

// GetOrderByID returns a persisted order.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "order_id_required")
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "order_lookup_failed")
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, messages ...string) {
	writeJSON(w, status, ErrorResponse{Error: code, Messages: messages})
}
