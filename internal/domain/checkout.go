package domain

// CheckoutMode selects where the payable item set comes from.
type CheckoutMode string

const (
	// ModeBuyNow checks out a single ad-hoc product outside the cart.
	ModeBuyNow CheckoutMode = "buy_now"
	// ModeCart checks out the user's persisted cart lines.
	ModeCart CheckoutMode = "cart"
)

// CandidateItem is a purchasable line before catalog reconciliation. It is
// the canonical shape both item sources resolve into: buy-now items carry
// the product directly, cart lines carry a join against the catalog row.
// Transient; lives for a single checkout attempt.
type CandidateItem struct {
	// ProductID is the bare identity carried by the line itself. It may be
	// empty when the nested Product reference is the only identity source.
	ProductID string
	Quantity  int
	// PriceCents is the price carried directly on the line, if any.
	PriceCents int64
	// Product is the joined catalog reference, when the source had one.
	Product *Product
}

// ResolvedProductID prefers the explicit product reference over the bare
// identity field.
func (c CandidateItem) ResolvedProductID() string {
	if c.Product != nil && c.Product.ID != "" {
		return c.Product.ID
	}
	return c.ProductID
}

// ResolvedPriceCents falls back from the line's own price to the joined
// product's price. Zero when neither is present; that is a data-quality
// defect upstream, not something checkout validates.
func (c CandidateItem) ResolvedPriceCents() int64 {
	if c.PriceCents > 0 {
		return c.PriceCents
	}
	if c.Product != nil {
		return c.Product.PriceCents
	}
	return 0
}
