package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopstack/checkout/internal/domain"
)

// Handler delivers the order confirmation notification for each
// order.placed event. When no webhook is configured the notification is
// logged only.
type Handler struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHandler(webhookURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		webhookURL: webhookURL,
		httpClient: client,
		logger:     logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "user_id", event.UserID)

	message := fmt.Sprintf("Your order %s has been placed: %d items, total %d.",
		event.OrderID, len(event.Lines), event.TotalCents)

	if h.webhookURL == "" {
		h.logger.Info("order confirmation", "order_id", event.OrderID, "message", message)
		return nil
	}

	if err := h.deliver(ctx, event.UserID, message); err != nil {
		h.logger.Error("failed to deliver notification", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("deliver notification: %w", err)
	}

	h.logger.Info("order confirmation delivered", "order_id", event.OrderID)
	return nil
}

func (h *Handler) deliver(ctx context.Context, userID, message string) error {
	body := map[string]string{
		"user_id": userID,
		"message": message,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	return nil
}
