package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/restaurant-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/restaurant-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/restaurant-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/restaurant-backend/api/controllers/webhooks"
	"github.com/angelmondragon/restaurant-backend/api/middleware"
	"github.com/angelmondragon/restaurant-backend/internal/cart"
	"github.com/angelmondragon/restaurant-backend/internal/discounts"
	"github.com/angelmondragon/restaurant-backend/internal/orders"
	"github.com/angelmondragon/restaurant-backend/internal/pricing"
	"github.com/angelmondragon/restaurant-backend/internal/stock"
	stripewebhook "github.com/angelmondragon/restaurant-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/enums"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs.
type RedisStore interface {
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type stripeSigner interface {
	SigningSecret() string
}

type stripeEventGuard interface {
	Claim(ctx context.Context, eventID string) (stripewebhook.ClaimState, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

// Dependencies are the services mounted by NewRouter. Nil services answer
// with an "unavailable" error instead of panicking.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         RedisStore
	Gatherer      prometheus.Gatherer
	Cart          cart.Service
	Orders        orders.Service
	Pricing       pricing.Service
	Stock         stock.AdminService
	Discounts     discounts.Service
	DeadLetters   controllers.DeadLetterService
	StripeClient  stripeSigner
	StripeWebhook webhookcontrollers.StripeWebhookService
	WebhookGuard  stripeEventGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutIDLimit,
	)

	pingers := map[string]controllers.Pinger{"postgres": deps.DB}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.WebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{lineId}", cartcontrollers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{lineId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
			r.Put("/delivery", cartcontrollers.CartSetDelivery(deps.Cart, logg))
			r.Post("/merge", cartcontrollers.CartMerge(deps.Cart, logg))
		})

		r.With(middleware.RateLimit(checkoutPolicy, deps.Redis, logg)).
			Post("/v1/checkout", ordercontrollers.Checkout(deps.Orders, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleStaff, enums.ActorRoleAdmin))
			r.Use(middleware.PinBranchQuery(logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(deps.Orders, logg))
				r.Post("/{orderId}/advance", controllers.AdminOrderAdvance(deps.Orders, logg))
				r.Patch("/{orderId}/eta", controllers.AdminOrderETA(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.AdminOrderCancel(deps.Orders, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).
					Post("/{orderId}/refund", controllers.AdminOrderRefund(deps.Orders, logg))
			})

			r.Route("/stock", func(r chi.Router) {
				r.Get("/low", controllers.AdminLowStock(deps.Stock, logg))
				r.Get("/{itemId}", controllers.AdminStockGet(deps.Stock, logg))
				r.Put("/{itemId}", controllers.AdminStockSet(deps.Stock, logg))
				r.Post("/{itemId}/adjust", controllers.AdminStockAdjust(deps.Stock, logg))
			})

			r.Get("/catalog/{itemId}/price", controllers.AdminResolvePrice(deps.Pricing, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))

				r.Get("/refund-failures", controllers.AdminRefundFailures(deps.Orders, logg))
				r.Get("/outbox/dead-letters", controllers.AdminListDeadLetters(deps.DeadLetters, logg))
				r.Post("/outbox/dead-letters/replay", controllers.AdminReplayDeadLetters(deps.DeadLetters, logg))

				r.Get("/catalog/{itemId}/price-overrides", controllers.AdminPriceOverrideHistory(deps.Pricing, logg))
				r.Route("/price-overrides", func(r chi.Router) {
					r.Post("/", controllers.AdminCreatePriceOverride(deps.Pricing, logg))
					r.Post("/sweep", controllers.AdminSweepPriceOverrides(deps.Pricing, logg))
					r.Patch("/{overrideId}", controllers.AdminSetPriceOverrideActive(deps.Pricing, logg))
					r.Delete("/{overrideId}", controllers.AdminDeletePriceOverride(deps.Pricing, logg))
				})

				r.Route("/discounts", func(r chi.Router) {
					r.Post("/", controllers.AdminCreateDiscount(deps.Discounts, logg))
					r.Get("/", controllers.AdminListDiscounts(deps.Discounts, logg))
					r.Get("/{discountId}", controllers.AdminGetDiscount(deps.Discounts, logg))
					r.Patch("/{discountId}", controllers.AdminSetDiscountActive(deps.Discounts, logg))
				})
			})
		})
	})

	return r
}
