package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopstack/checkout/internal/auth"
	"github.com/shopstack/checkout/internal/domain"
)

type Handler struct {
	service *Service
	guard   *FlightGuard
	logger  *slog.Logger
}

func NewHandler(service *Service, guard *FlightGuard, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		guard:   guard,
		logger:  logger,
	}
}

type checkoutRequest struct {
	Mode      domain.CheckoutMode `json:"mode"`
	ProductID string              `json:"product_id,omitempty"`
	Quantity  int                 `json:"quantity,omitempty"`
	Address   string              `json:"address"`
	Phone     string              `json:"phone"`
	Payment   PaymentInput        `json:"payment"`
}

type checkoutResponse struct {
	OrderID         string `json:"order_id"`
	TotalCents      int64  `json:"total_cents"`
	Redirect        string `json:"redirect"`
	Message         string `json:"message"`
	CODAdvanceCents int64  `json:"cod_advance_cents,omitempty"`
}

// HandleCheckout runs one attempt. Exactly one outcome is reported per
// attempt: a success payload, a redirect destination, or a single error
// message.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r)
	if userID == "" {
		h.writeRedirect(w, http.StatusUnauthorized, ErrUnauthenticated.Destination)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.guard.Begin(userID) {
		h.writeError(w, http.StatusTooManyRequests, "An order is already being placed")
		return
	}

	// Deferred so a panic below still releases the user's in-flight slot.
	succeeded := false
	defer func() { h.guard.Finish(userID, succeeded) }()

	result, err := h.service.PlaceOrder(r.Context(), userID, Request{
		Mode:      req.Mode,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Address:   req.Address,
		Phone:     req.Phone,
		Payment:   req.Payment,
	})
	if err != nil {
		h.reportFailure(w, userID, err)
		return
	}
	succeeded = true

	h.writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:         result.Order.ID,
		TotalCents:      result.Order.TotalCents,
		Redirect:        result.Redirect,
		Message:         "Order placed successfully",
		CODAdvanceCents: result.CODAdvanceCents,
	})
}

// reportFailure classifies the error: preconditions redirect, validation
// failures surface their first-violation message, everything else passes the
// backend message through.
func (h *Handler) reportFailure(w http.ResponseWriter, userID string, err error) {
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		h.writeRedirect(w, http.StatusConflict, redirect.Destination)
		return
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		h.writeError(w, http.StatusBadRequest, validation.Message)
		return
	}

	if errors.Is(err, ErrNoValidProducts) {
		h.writeError(w, http.StatusUnprocessableEntity, ErrNoValidProducts.Error())
		return
	}

	h.logger.Error("checkout failed", "error", err, "user_id", userID)
	message := err.Error()
	if message == "" {
		message = "Failed to place order"
	}
	h.writeError(w, http.StatusInternalServerError, message)
}

func (h *Handler) HandleBanks(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{"banks": SupportedBanks})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeRedirect(w http.ResponseWriter, status int, destination string) {
	h.writeJSON(w, status, map[string]string{"redirect": destination})
}
