package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kariuki00743/safipay/api/controllers"
	webhookcontrollers "github.com/kariuki00743/safipay/api/controllers/webhooks"
	"github.com/kariuki00743/safipay/api/middleware"
	"github.com/kariuki00743/safipay/internal/transactions"
	mpesawebhook "github.com/kariuki00743/safipay/internal/webhooks/mpesa"
	"github.com/kariuki00743/safipay/pkg/config"
	"github.com/kariuki00743/safipay/pkg/logger"
	pkgredis "github.com/kariuki00743/safipay/pkg/redis"
)

// Store is the slice of the redis client the HTTP layer needs.
type Store interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
	Ping(context.Context) error
}

type callbackHandler interface {
	Handle(ctx context.Context, raw []byte) mpesawebhook.Outcome
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	store Store,
	gatherer prometheus.Gatherer,
	txService transactions.Service,
	callbacks callbackHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App),
	)

	pushPolicy := middleware.NewRateLimitPolicy(
		"stkpush",
		cfg.RateLimit.PushWindow,
		cfg.RateLimit.PushPerIP,
		cfg.RateLimit.PushPerUser,
	)

	r.Get("/health", controllers.Health(cfg, dbP, store))
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// The provider cannot authenticate; the callback is matched on CheckoutRequestID.
	r.Post("/api/callback", webhookcontrollers.MPesaCallback(callbacks, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(store, cfg.Idempotency.RequestTTL, logg))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(txService, logg))
			r.Post("/", controllers.CreateTransaction(txService, logg))
			r.Get("/{transactionId}", controllers.GetTransaction(txService, logg))
		})

		r.With(middleware.RateLimit(pushPolicy, store, logg)).Post("/stkpush", controllers.STKPush(txService, logg))
		r.Post("/confirm-payment", controllers.ConfirmPayment(txService, logg))
		r.Post("/cancel-payment", controllers.CancelPayment(txService, logg))
		r.Post("/release", controllers.Release(txService, logg))
		r.Post("/dispute", controllers.Dispute(txService, logg))
		r.Post("/refund", controllers.Refund(txService, logg))
	})

	return r
}
