// Package app assembles the domain services shared by the api and cron-worker
// binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/restaurant-backend/internal/cart"
	"github.com/angelmondragon/restaurant-backend/internal/catalog"
	"github.com/angelmondragon/restaurant-backend/internal/discounts"
	"github.com/angelmondragon/restaurant-backend/internal/orders"
	"github.com/angelmondragon/restaurant-backend/internal/pricing"
	"github.com/angelmondragon/restaurant-backend/internal/stock"
	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/db"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/metrics"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
	"github.com/angelmondragon/restaurant-backend/pkg/redis"
	"github.com/angelmondragon/restaurant-backend/pkg/stripe"
)

// Services is the wired domain layer.
type Services struct {
	Catalog      catalog.Reader
	Pricing      pricing.Service
	StockLedger  stock.Ledger
	StockAdmin   stock.AdminService
	Discounts    discounts.Service
	Cart         cart.Service
	Orders       orders.Service
	Outbox       *outbox.Service
	OutboxRepo   *outbox.Repository
	DeadLetters  *outbox.DeadLetters
	StripeClient *stripe.Client
	Metrics      *metrics.OrderMetrics
}

// Build wires every service against one database and Redis client. Metrics
// register on reg; pass nil to skip registration.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*Services, error) {
	gdb := dbClient.DB()

	var catalogReader catalog.Reader = catalog.NewRepository(gdb)
	if redisClient != nil {
		cached, err := catalog.NewCachedReader(catalogReader, redisClient, cfg.Catalog.CacheTTL, logg)
		if err != nil {
			return nil, fmt.Errorf("catalog cache: %w", err)
		}
		catalogReader = cached
	}
	branches := catalog.NewBranchRepository(gdb)

	outboxRepo := outbox.NewRepository(gdb)
	outboxSvc := outbox.NewService(outboxRepo, logg)
	deadLetters, err := outbox.NewDeadLetters(outbox.NewDLQRepository(gdb), dbClient, logg)
	if err != nil {
		return nil, fmt.Errorf("dead letters: %w", err)
	}

	var orderMetrics *metrics.OrderMetrics
	if reg != nil {
		orderMetrics = metrics.NewOrderMetrics(reg)
	}

	pricingSvc, err := pricing.NewService(pricing.ServiceParams{
		Repository: pricing.NewRepository(gdb),
		Catalog:    catalogReader,
		Tx:         dbClient,
		Outbox:     outboxSvc,
		Logger:     logg,
		Metrics:    orderMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("pricing service: %w", err)
	}

	stockRepo := stock.NewRepository(gdb)
	ledger, err := stock.NewLedger(stockRepo, dbClient, logg)
	if err != nil {
		return nil, fmt.Errorf("stock ledger: %w", err)
	}
	stockAdmin, err := stock.NewAdminService(stockRepo, dbClient, logg)
	if err != nil {
		return nil, fmt.Errorf("stock admin: %w", err)
	}

	discountSvc, err := discounts.NewService(discounts.NewRepository(gdb), logg, nil)
	if err != nil {
		return nil, fmt.Errorf("discount service: %w", err)
	}

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repository: cart.NewRepository(gdb),
		Catalog:    catalogReader,
		Branches:   branches,
		Prices:     pricingSvc,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, fmt.Errorf("stripe client: %w", err)
	}
	gateway, err := stripe.NewGateway(stripeClient)
	if err != nil {
		return nil, fmt.Errorf("stripe gateway: %w", err)
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repository:     orders.NewRepository(gdb),
		Carts:          cartSvc,
		Stock:          ledger,
		Discounts:      discountSvc,
		Branches:       branches,
		Gateway:        gateway,
		Tx:             dbClient,
		Outbox:         outboxSvc,
		Logger:         logg,
		Metrics:        orderMetrics,
		Currency:       cfg.Payments.Currency,
		GatewayTimeout: cfg.Payments.GatewayTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}

	return &Services{
		Catalog:      catalogReader,
		Pricing:      pricingSvc,
		StockLedger:  ledger,
		StockAdmin:   stockAdmin,
		Discounts:    discountSvc,
		Cart:         cartSvc,
		Orders:       orderSvc,
		Outbox:       outboxSvc,
		OutboxRepo:   outboxRepo,
		DeadLetters:  deadLetters,
		StripeClient: stripeClient,
		Metrics:      orderMetrics,
	}, nil
}
