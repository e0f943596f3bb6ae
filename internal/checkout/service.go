package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopstack/checkout/internal/domain"
)

// CartStore is the persisted cart owned by the storefront backend. Clear
// deletes only the rows owned by the given user.
type CartStore interface {
	ListLines(ctx context.Context, userID string) ([]domain.CandidateItem, error)
	Clear(ctx context.Context, userID string) error
}

// CatalogStore exposes the authoritative product catalog. ListProductIDs is
// fetched once per attempt as the reconciliation snapshot.
type CatalogStore interface {
	ListProductIDs(ctx context.Context) (map[string]struct{}, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type OrderStore interface {
	Insert(ctx context.Context, order *domain.Order) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Service struct {
	carts           CartStore
	catalog         CatalogStore
	orders          OrderStore
	publisher       Publisher
	logger          *slog.Logger
	codAdvanceCents int64
}

// NewService wires the checkout pipeline. publisher may be nil when event
// publication is disabled.
func NewService(carts CartStore, catalog CatalogStore, orders OrderStore, publisher Publisher, logger *slog.Logger, codAdvanceCents int64) *Service {
	return &Service{
		carts:           carts,
		catalog:         catalog,
		orders:          orders,
		publisher:       publisher,
		logger:          logger,
		codAdvanceCents: codAdvanceCents,
	}
}

// Result is the success signal of one attempt: the recorded order and the
// follow-up navigation destination.
type Result struct {
	Order    *domain.Order
	Redirect string
	// CODAdvanceCents is the fixed prepayment disclosed for cash on
	// delivery; zero for every other method.
	CODAdvanceCents int64
}

// PlaceOrder runs one checkout attempt end to end: validate inputs, resolve
// the candidate items, reconcile them against the catalog, record the order
// and clear the cart when the flow was cart-based. Every failure is terminal
// for the attempt; nothing is retried.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req Request) (*Result, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	// Input validation runs before any persistence call, so a rejected
	// attempt never writes a partial order.
	if strings.TrimSpace(req.Address) == "" {
		return nil, &ValidationError{Field: "address", Message: "Please enter your address"}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, &ValidationError{Field: "phone", Message: "Please enter your phone number"}
	}
	if err := ValidatePayment(req.Payment); err != nil {
		return nil, err
	}

	candidates, err := s.resolveItems(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	// The total is computed over the full candidate list, before
	// reconciliation filters it.
	total := OrderTotalCents(candidates)

	catalogIDs, err := s.catalog.ListProductIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	lines := Reconcile(candidates, catalogIDs, s.logger)
	if len(lines) == 0 {
		return nil, ErrNoValidProducts
	}

	order := &domain.Order{
		UserID:         userID,
		TotalCents:     total,
		PaymentMethod:  req.Payment.Method,
		PaymentStatus:  domain.PaymentStatusCompleted,
		DeliveryStatus: domain.DeliveryStatusOrdered,
		Address:        req.Address,
		Phone:          req.Phone,
		Lines:          lines,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	// The order is durably recorded before the cart is touched. A failed
	// clear leaves the user with a stale cart but a valid order.
	if req.Mode == domain.ModeCart {
		if err := s.carts.Clear(ctx, userID); err != nil {
			s.logger.Error("failed to clear cart after order", "error", err, "order_id", order.ID, "user_id", userID)
			return nil, err
		}
	}

	s.publishPlaced(ctx, order)

	result := &Result{
		Order:    order,
		Redirect: "/orders/" + order.ID,
	}
	if req.Payment.Method == domain.PaymentMethodCOD {
		result.CODAdvanceCents = s.codAdvanceCents
	}

	s.logger.Info("order placed", "order_id", order.ID, "user_id", userID, "total_cents", total, "lines", len(lines), "method", req.Payment.Method)
	return result, nil
}

// publishPlaced emits the order.placed event. Publication is best-effort;
// the order is already recorded and a delivery failure must not fail the
// attempt.
func (s *Service) publishPlaced(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderPlacedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalCents:    order.TotalCents,
		PaymentMethod: order.PaymentMethod,
		Lines:         order.Lines,
		PlacedAt:      time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
		s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
	}
}
