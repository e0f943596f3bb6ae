package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopstack/checkout/internal/domain"
)

const (
	// cart view per user: cart:view:{user_id} -> JSON candidate list
	viewKey = "cart:view:%s"
	viewTTL = 5 * time.Minute
)

// CachedStore fronts the cart repository with a short-lived Redis view
// cache for the cart page read. Cache failures degrade to the database; they
// never fail a read. Order placement must not resolve candidates through
// this store: the cached snapshot can lag the persisted cart by up to the
// TTL. Use CheckoutStore there.
type CachedStore struct {
	repo   *Repository
	rdb    *redis.Client
	logger *slog.Logger
}

func NewCachedStore(repo *Repository, rdb *redis.Client, logger *slog.Logger) *CachedStore {
	return &CachedStore{repo: repo, rdb: rdb, logger: logger}
}

func (s *CachedStore) ListLines(ctx context.Context, userID string) ([]domain.CandidateItem, error) {
	key := fmt.Sprintf(viewKey, userID)
	if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var items []domain.CandidateItem
		if err := json.Unmarshal(cached, &items); err == nil {
			return items, nil
		}
		s.logger.Warn("discarding undecodable cart view cache entry", "user_id", userID)
	}

	items, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		if err := s.rdb.Set(ctx, key, data, viewTTL).Err(); err != nil {
			s.logger.Warn("failed to cache cart view", "error", err, "user_id", userID)
		}
	}

	return items, nil
}

// Clear deletes the user's cart rows and invalidates the cached view. The
// cart is only cleared after the order lines are durably recorded, so a
// stale cache here would show ghost items on the next read.
func (s *CachedStore) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, fmt.Sprintf(viewKey, userID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate cart view cache", "error", err, "user_id", userID)
	}
	return nil
}

// CheckoutStore is the cart access used by order placement. Candidate
// resolution always reads the database, so every attempt sees the cart as
// persisted at that moment; Clear goes through the cached store so the view
// cache is invalidated along with the rows.
type CheckoutStore struct {
	repo  *Repository
	cache *CachedStore
}

func NewCheckoutStore(repo *Repository, cache *CachedStore) *CheckoutStore {
	return &CheckoutStore{repo: repo, cache: cache}
}

func (s *CheckoutStore) ListLines(ctx context.Context, userID string) ([]domain.CandidateItem, error) {
	return s.repo.ListLines(ctx, userID)
}

func (s *CheckoutStore) Clear(ctx context.Context, userID string) error {
	return s.cache.Clear(ctx, userID)
}
