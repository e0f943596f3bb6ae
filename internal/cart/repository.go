package cart

import (
	"context"
	"database/sql"

	"github.com/shopstack/checkout/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListLines returns the user's cart lines joined with their catalog rows.
// The join is left-outer on purpose: a line whose product has disappeared
// from the catalog still surfaces as a candidate and is discarded later by
// reconciliation, not here.
func (r *Repository) ListLines(ctx context.Context, userID string) ([]domain.CandidateItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.product_id, c.quantity, p.id, p.name, p.price_cents
		FROM cart_items c
		LEFT JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []domain.CandidateItem
	for rows.Next() {
		var item domain.CandidateItem
		var productID, name sql.NullString
		var priceCents sql.NullInt64
		if err := rows.Scan(&item.ProductID, &item.Quantity, &productID, &name, &priceCents); err != nil {
			return nil, err
		}
		if productID.Valid {
			item.Product = &domain.Product{
				ID:         productID.String,
				Name:       name.String,
				PriceCents: priceCents.Int64,
			}
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Clear deletes every cart line owned by the user.
func (r *Repository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE user_id = $1
	`, userID)
	return err
}
