package cart

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopstack/checkout/internal/auth"
)

// Handler serves the cart page read. This is the one consumer of the cached
// view; a snapshot up to the TTL old is acceptable here.
type Handler struct {
	store  *CachedStore
	logger *slog.Logger
}

func NewHandler(store *CachedStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

type viewItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name,omitempty"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	items, err := h.store.ListLines(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list cart", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	view := make([]viewItem, 0, len(items))
	var totalCents int64
	for _, item := range items {
		price := item.ResolvedPriceCents()
		v := viewItem{
			ProductID:  item.ResolvedProductID(),
			Quantity:   item.Quantity,
			PriceCents: price,
		}
		if item.Product != nil {
			v.Name = item.Product.Name
		}
		view = append(view, v)
		totalCents += price * int64(item.Quantity)
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"items":       view,
		"total_cents": totalCents,
	})
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
