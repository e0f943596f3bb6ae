//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shopstack/checkout/internal/cart"
	"github.com/shopstack/checkout/internal/catalog"
	"github.com/shopstack/checkout/internal/checkout"
	"github.com/shopstack/checkout/internal/domain"
	"github.com/shopstack/checkout/internal/messaging"
	"github.com/shopstack/checkout/internal/notifier"
	"github.com/shopstack/checkout/internal/orders"
)

func seedProduct(t *testing.T, db *sql.DB, id, name string, priceCents int64) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO products (id, name, price_cents) VALUES ($1, $2, $3)`, id, name, priceCents); err != nil {
		t.Fatalf("failed to seed product %s: %v", id, err)
	}
}

func seedCartLine(t *testing.T, db *sql.DB, userID, productID string, quantity int) {
	t.Helper()
	if _, err := db.Exec(`
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), userID, productID, quantity); err != nil {
		t.Fatalf("failed to seed cart line %s/%s: %v", userID, productID, err)
	}
}

func newService(db *sql.DB) (*checkout.Service, *cart.Repository, *orders.Repository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cartRepo := cart.NewRepository(db)
	ordersRepo := orders.NewRepository(db)
	svc := checkout.NewService(cartRepo, catalog.NewRepository(db), ordersRepo, nil, logger, 9900)
	return svc, cartRepo, ordersRepo
}

func TestCartCheckoutFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	seedProduct(t, db, "p1", "Desk Lamp", 100)
	seedProduct(t, db, "p2", "Notebook", 50)
	seedCartLine(t, db, "u1", "p1", 2)
	seedCartLine(t, db, "u1", "p2", 1)

	svc, cartRepo, ordersRepo := newService(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := checkout.NewHandler(svc, checkout.NewFlightGuard(), logger)

	reqBody := `{
		"mode": "cart",
		"address": "221B Baker Street",
		"phone": "9876543210",
		"payment": {"method": "upi", "upi_id": "user@bank"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()

	handler.HandleCheckout(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp struct {
		OrderID    string `json:"order_id"`
		TotalCents int64  `json:"total_cents"`
		Redirect   string `json:"redirect"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OrderID == "" {
		t.Fatal("expected order ID to be set")
	}
	if resp.TotalCents != 250 {
		t.Fatalf("expected total 250, got %d", resp.TotalCents)
	}
	if resp.Message != "Order placed successfully" {
		t.Fatalf("unexpected message: %s", resp.Message)
	}
	if resp.Redirect != "/orders/"+resp.OrderID {
		t.Fatalf("unexpected redirect: %s", resp.Redirect)
	}

	stored, err := ordersRepo.GetByID(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("failed to fetch order from DB: %v", err)
	}
	if stored == nil {
		t.Fatal("order not found in database")
	}
	if stored.UserID != "u1" {
		t.Fatalf("expected user u1, got %s", stored.UserID)
	}
	if stored.TotalCents != 250 {
		t.Fatalf("expected stored total 250, got %d", stored.TotalCents)
	}
	if len(stored.Lines) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(stored.Lines))
	}
	if stored.PaymentStatus != domain.PaymentStatusCompleted {
		t.Fatalf("expected payment status %s, got %s", domain.PaymentStatusCompleted, stored.PaymentStatus)
	}
	if stored.DeliveryStatus != domain.DeliveryStatusOrdered {
		t.Fatalf("expected delivery status %s, got %s", domain.DeliveryStatusOrdered, stored.DeliveryStatus)
	}

	remaining, err := cartRepo.ListLines(ctx, "u1")
	if err != nil {
		t.Fatalf("failed to list cart lines: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected cart to be emptied, got %d lines", len(remaining))
	}
}

func TestCheckoutDiscardsVanishedProducts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	seedProduct(t, db, "p1", "Desk Lamp", 100)
	seedCartLine(t, db, "u1", "p1", 1)
	// This line points at a product that no longer exists in the catalog.
	seedCartLine(t, db, "u1", "ghost", 1)

	svc, _, ordersRepo := newService(db)

	result, err := svc.PlaceOrder(ctx, "u1", checkout.Request{
		Mode:    domain.ModeCart,
		Address: "221B Baker Street",
		Phone:   "9876543210",
		Payment: checkout.PaymentInput{Method: domain.PaymentMethodCOD},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	stored, err := ordersRepo.GetByID(ctx, result.Order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order from DB: %v", err)
	}
	if len(stored.Lines) != 1 {
		t.Fatalf("expected 1 surviving line, got %d", len(stored.Lines))
	}
	if stored.Lines[0].ProductID != "p1" {
		t.Fatalf("expected surviving line p1, got %s", stored.Lines[0].ProductID)
	}
	// The vanished line contributes nothing to the total.
	if stored.TotalCents != 100 {
		t.Fatalf("expected total 100, got %d", stored.TotalCents)
	}
	if result.CODAdvanceCents != 9900 {
		t.Fatalf("expected COD advance 9900, got %d", result.CODAdvanceCents)
	}
}

func TestCheckoutReadsPersistedCartNotCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	redisAddr, redisCleanup := SetupRedis(ctx, t)
	defer redisCleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() { _ = rdb.Close() }()

	seedProduct(t, db, "p1", "Desk Lamp", 100)
	seedProduct(t, db, "p2", "Notebook", 60)
	// The cart as persisted right now.
	seedCartLine(t, db, "u1", "p2", 1)

	// A stale view snapshot left over from an earlier cart page read.
	stale, err := json.Marshal([]domain.CandidateItem{
		{ProductID: "p1", Quantity: 2, PriceCents: 100},
	})
	if err != nil {
		t.Fatalf("failed to marshal stale snapshot: %v", err)
	}
	if err := rdb.Set(ctx, "cart:view:u1", stale, time.Minute).Err(); err != nil {
		t.Fatalf("failed to seed stale cache entry: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cartRepo := cart.NewRepository(db)
	cartCache := cart.NewCachedStore(cartRepo, rdb, logger)
	store := cart.NewCheckoutStore(cartRepo, cartCache)
	ordersRepo := orders.NewRepository(db)
	svc := checkout.NewService(store, catalog.NewRepository(db), ordersRepo, nil, logger, 9900)

	result, err := svc.PlaceOrder(ctx, "u1", checkout.Request{
		Mode:    domain.ModeCart,
		Address: "221B Baker Street",
		Phone:   "9876543210",
		Payment: checkout.PaymentInput{Method: domain.PaymentMethodCOD},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	stored, err := ordersRepo.GetByID(ctx, result.Order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order from DB: %v", err)
	}
	if len(stored.Lines) != 1 || stored.Lines[0].ProductID != "p2" {
		t.Fatalf("expected the order to carry the persisted cart line p2, got %+v", stored.Lines)
	}
	if stored.TotalCents != 60 {
		t.Fatalf("expected total 60 from the persisted cart, got %d", stored.TotalCents)
	}

	if err := rdb.Get(ctx, "cart:view:u1").Err(); err != redis.Nil {
		t.Fatalf("expected the cached view to be invalidated after the order, got %v", err)
	}
	remaining, err := cartRepo.ListLines(ctx, "u1")
	if err != nil {
		t.Fatalf("failed to list cart lines: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected the cart to be emptied, got %d lines", len(remaining))
	}
}

func TestCartViewCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	redisAddr, redisCleanup := SetupRedis(ctx, t)
	defer redisCleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() { _ = rdb.Close() }()

	seedProduct(t, db, "p1", "Desk Lamp", 100)
	seedCartLine(t, db, "u1", "p1", 2)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := cart.NewCachedStore(cart.NewRepository(db), rdb, logger)

	first, err := cache.ListLines(ctx, "u1")
	if err != nil {
		t.Fatalf("ListLines: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 cart line, got %d", len(first))
	}

	viewHandler := cart.NewHandler(cache, logger)
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	viewHandler.HandleView(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from the cart view, got %d: %s", rec.Code, rec.Body.String())
	}
	var view struct {
		Items []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
		TotalCents int64 `json:"total_cents"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode cart view: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].ProductID != "p1" || view.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart view items: %+v", view.Items)
	}
	if view.TotalCents != 200 {
		t.Fatalf("expected view total 200, got %d", view.TotalCents)
	}

	// Drop the rows behind the cache's back; the view keeps serving until
	// it expires or is invalidated.
	if _, err := db.Exec(`DELETE FROM cart_items WHERE user_id = $1`, "u1"); err != nil {
		t.Fatalf("failed to delete cart rows: %v", err)
	}
	second, err := cache.ListLines(ctx, "u1")
	if err != nil {
		t.Fatalf("ListLines: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected the cached view to be served, got %d lines", len(second))
	}

	if err := cache.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	third, err := cache.ListLines(ctx, "u1")
	if err != nil {
		t.Fatalf("ListLines: %v", err)
	}
	if len(third) != 0 {
		t.Fatalf("expected an empty view after Clear, got %d lines", len(third))
	}

	// An unreachable Redis degrades to the database instead of failing.
	seedCartLine(t, db, "u1", "p1", 2)
	downCache := cart.NewCachedStore(cart.NewRepository(db), redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 500 * time.Millisecond,
	}), logger)
	lines, err := downCache.ListLines(ctx, "u1")
	if err != nil {
		t.Fatalf("expected the read to degrade to the database, got %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 cart line from the database, got %d", len(lines))
	}
}

func TestOrderPlacedEventDelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var (
		mu            sync.Mutex
		notifications []map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		mu.Lock()
		notifications = append(notifications, req)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	producer := messaging.NewProducer(brokers, "order.placed")
	defer func() { _ = producer.Close() }()
	consumer := messaging.NewConsumer(brokers, "order.placed", "order-notifier")
	defer func() { _ = consumer.Close() }()

	handler := notifier.NewHandler(server.URL, server.Client(), logger)

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(consumeCtx, handler.Handle) }()

	event := domain.OrderPlacedEvent{
		OrderID:       "ord-e2e-1",
		UserID:        "u1",
		TotalCents:    250,
		PaymentMethod: domain.PaymentMethodUPI,
		Lines: []domain.OrderLine{
			{ProductID: "p1", Quantity: 2, PriceCents: 100},
			{ProductID: "p2", Quantity: 1, PriceCents: 50},
		},
		PlacedAt: time.Now().UTC(),
	}

	// The first publish can race topic auto-creation.
	var publishErr error
	for attempt := 0; attempt < 10; attempt++ {
		if publishErr = producer.Publish(ctx, event.OrderID, event); publishErr == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if publishErr != nil {
		t.Fatalf("failed to publish event: %v", publishErr)
	}

	deadline := time.After(90 * time.Second)
	for {
		mu.Lock()
		delivered := len(notifications)
		mu.Unlock()
		if delivered > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the notification")
		case err := <-done:
			t.Fatalf("consumer stopped early: %v", err)
		case <-time.After(250 * time.Millisecond):
		}
	}

	stopConsumer()
	<-done

	mu.Lock()
	got := notifications[0]
	mu.Unlock()
	if got["user_id"] != "u1" {
		t.Fatalf("expected notification for u1, got %s", got["user_id"])
	}
	if !strings.Contains(got["message"], "ord-e2e-1") {
		t.Fatalf("expected the message to name the order, got %q", got["message"])
	}
	if !strings.Contains(got["message"], "2 items") {
		t.Fatalf("expected the message to carry the line count, got %q", got["message"])
	}
}

func TestOrderVisibilityScopedToOwner(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	seedProduct(t, db, "p1", "Desk Lamp", 100)
	seedCartLine(t, db, "u1", "p1", 1)

	svc, _, ordersRepo := newService(db)
	result, err := svc.PlaceOrder(ctx, "u1", checkout.Request{
		Mode:    domain.ModeCart,
		Address: "221B Baker Street",
		Phone:   "9876543210",
		Payment: checkout.PaymentInput{Method: domain.PaymentMethodCOD},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := orders.NewHandler(ordersRepo, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", handler.HandleGet)

	get := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/orders/"+result.Order.ID, nil)
		if userID != "" {
			req.Header.Set("X-User-ID", userID)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	if rec := get("u1"); rec.Code != http.StatusOK {
		t.Fatalf("expected owner to see the order, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := get("u2"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected another user to get 404, got %d", rec.Code)
	}
	if rec := get(""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestBuyNowCheckout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	seedProduct(t, db, "p1", "Desk Lamp", 100)
	// A cart line that must survive a buy-now attempt untouched.
	seedCartLine(t, db, "u1", "p1", 4)

	svc, cartRepo, ordersRepo := newService(db)

	result, err := svc.PlaceOrder(ctx, "u1", checkout.Request{
		Mode:      domain.ModeBuyNow,
		ProductID: "p1",
		Quantity:  3,
		Address:   "221B Baker Street",
		Phone:     "9876543210",
		Payment:   checkout.PaymentInput{Method: domain.PaymentMethodNetbanking, Bank: "HDFC Bank"},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.Order.TotalCents != 300 {
		t.Fatalf("expected total 300, got %d", result.Order.TotalCents)
	}

	lines, err := cartRepo.ListLines(ctx, "u1")
	if err != nil {
		t.Fatalf("failed to list cart lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected the cart to be untouched, got %d lines", len(lines))
	}

	listed, err := ordersRepo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 order, got %d", len(listed))
	}
	if len(listed[0].Lines) != 1 || listed[0].Lines[0].Quantity != 3 {
		t.Fatalf("unexpected order lines: %+v", listed[0].Lines)
	}
}
