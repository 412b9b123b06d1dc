package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	checkoutcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/checkout"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	productcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/products"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type cartTokens interface {
	Issue(cartID string) (string, error)
	Parse(token string) (string, error)
}

type redisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type stripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingSecretProvider interface {
	SigningSecret() string
}

// Params collects the collaborators the HTTP surface is built from.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	Readiness     map[string]controllers.Pinger
	Redis         redisStore
	CartTokens    cartTokens
	NewCartID     func() string
	Catalog       catalog.Service
	Carts         cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Stripe        signingSecretProvider
	StripeWebhook stripeWebhookService
	WebhookGuard  stripeWebhookGuard
	Gatherer      prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	newCartID := p.NewCartID
	if newCartID == nil {
		newCartID = cart.NewCartID
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutEmailLimit,
	)
	cartScope := middleware.CartToken(p.CartTokens, newCartID, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.Stripe, p.WebhookGuard, logg))

		r.Get("/products", productcontrollers.List(p.Catalog, logg))
		r.Get("/products/{ref}", productcontrollers.Get(p.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(cartScope)
			r.Get("/", cartcontrollers.CartFetch(p.Carts, logg))
			r.Delete("/", cartcontrollers.CartClear(p.Carts, logg))
			r.Get("/count", cartcontrollers.CartCount(p.Carts, logg))
			r.Post("/items", cartcontrollers.CartAddItem(p.Carts, logg))
			r.Patch("/items", cartcontrollers.CartUpdateItem(p.Carts, logg))
			r.Delete("/items", cartcontrollers.CartRemoveItem(p.Carts, logg))
		})

		r.With(
			cartScope,
			middleware.RateLimit(checkoutPolicy, p.Redis, logg),
			middleware.Idempotency(p.Redis, cfg.Checkout.IdempotencyKeyTTL, logg),
		).Post("/checkout", checkoutcontrollers.Start(p.Checkout, logg))
		r.Get("/checkout/confirmation", checkoutcontrollers.Confirm(p.Checkout, logg))

		r.Get("/orders", ordercontrollers.List(p.Orders, logg))
		r.Get("/orders/{orderId}", ordercontrollers.Detail(p.Orders, logg))
	})

	return r
}
