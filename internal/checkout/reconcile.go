package checkout

import (
	"log/slog"

	"github.com/shopstack/checkout/internal/domain"
)

// Reconcile cross-checks each candidate against the catalog snapshot taken
// for this attempt and returns the order lines to persist. Candidates whose
// resolved identity is not in the snapshot are discarded with a diagnostic;
// discarding one candidate never affects another's inclusion.
func Reconcile(candidates []domain.CandidateItem, catalogIDs map[string]struct{}, logger *slog.Logger) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(candidates))
	for _, c := range candidates {
		productID := c.ResolvedProductID()
		if _, ok := catalogIDs[productID]; !ok {
			logger.Warn("skipping item not found in catalog", "product_id", productID)
			continue
		}
		lines = append(lines, domain.OrderLine{
			ProductID:  productID,
			Quantity:   c.Quantity,
			PriceCents: c.ResolvedPriceCents(),
		})
	}
	return lines
}

// OrderTotalCents sums unit price times quantity over the full candidate
// list. The persisted total is computed before reconciliation, so a
// candidate later discarded still contributes to it. Recorded as a known
// quirk of the flow; do not recompute from the surviving lines.
func OrderTotalCents(candidates []domain.CandidateItem) int64 {
	var total int64
	for _, c := range candidates {
		total += c.ResolvedPriceCents() * int64(c.Quantity)
	}
	return total
}
