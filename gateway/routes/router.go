package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"subledger/core/runtime"
	"subledger/core/types"
	"subledger/gateway/middleware"
)

// Ledger is the runtime client the handlers submit to. *runtime.Processor
// satisfies it for an in-process ledger.
type Ledger interface {
	Balance(ctx context.Context, key types.Pubkey) (uint64, error)
	Execute(ctx context.Context, tx *runtime.Transaction) (*runtime.Receipt, error)
}

type Config struct {
	Ledger   Ledger
	Resolver KeyResolver
	// ProgramID is the subscription program the facade creates catalogs on.
	ProgramID types.Pubkey
	// MinPlanPrice is the cheapest plan accepted, in SOL.
	MinPlanPrice decimal.Decimal
	// MaxRetries bounds resubmission of a transaction that failed with a
	// temporary error. Validation failures are never retried.
	MaxRetries    uint
	RetryDelay    time.Duration
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	Logger        *slog.Logger
	// NewNonce seeds fresh creator account addresses. Defaults to uuid.New.
	NewNonce func() uuid.UUID
}

// NewHandler builds the facade router. It does not listen; the embedding
// process mounts it.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("gateway: ledger required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("gateway: key resolver required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewNonce == nil {
		cfg.NewNonce = uuid.New
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	h := &handlers{
		ledger:    cfg.Ledger,
		resolver:  cfg.Resolver,
		programID: cfg.ProgramID,
		minPrice:  cfg.MinPlanPrice,
		attempts:  cfg.MaxRetries + 1,
		delay:     cfg.RetryDelay,
		logger:    cfg.Logger,
		validate:  validator.New(),
		newNonce:  cfg.NewNonce,
	}

	r := chi.NewRouter()
	mount := func(method, pattern, name string, fn http.HandlerFunc) {
		var handler http.Handler = fn
		if cfg.Observability != nil {
			handler = cfg.Observability.Middleware(name)(handler)
		}
		if cfg.RateLimiter != nil {
			handler = cfg.RateLimiter.Middleware(name)(handler)
		}
		r.Method(method, pattern, handler)
	}
	mount(http.MethodGet, "/", "docs", h.docs)
	mount(http.MethodGet, "/balance", "balance", h.balance)
	mount(http.MethodPost, "/createCreator", "createCreator", h.createCreator)
	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, "subledger-gateway"), nil
}
