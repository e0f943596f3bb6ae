package checkout

import (
	"context"
	"fmt"

	"github.com/shopstack/checkout/internal/domain"
)

// Request is one checkout attempt as submitted by the storefront.
type Request struct {
	Mode      domain.CheckoutMode
	ProductID string
	Quantity  int
	Address   string
	Phone     string
	Payment   PaymentInput
}

// resolveItems produces the candidate list for the attempt: a single ad-hoc
// item in buy-now mode, or the user's persisted cart lines joined with their
// catalog rows. An empty result halts the attempt with a redirect to the
// matching recovery destination.
func (s *Service) resolveItems(ctx context.Context, userID string, req Request) ([]domain.CandidateItem, error) {
	switch req.Mode {
	case domain.ModeBuyNow:
		product, err := s.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", req.ProductID, err)
		}
		if product == nil {
			return nil, ErrNothingToBuy
		}
		qty := req.Quantity
		if qty < 1 {
			qty = 1
		}
		return []domain.CandidateItem{{Quantity: qty, Product: product}}, nil

	case domain.ModeCart:
		items, err := s.carts.ListLines(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		if len(items) == 0 {
			return nil, ErrEmptyCart
		}
		return items, nil

	default:
		return nil, &ValidationError{Field: "mode", Message: "Invalid checkout mode"}
	}
}
