package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/noah-isme/stationery-pos/internal/app"
	"github.com/noah-isme/stationery-pos/internal/auth"
	"github.com/noah-isme/stationery-pos/internal/catalog"
	"github.com/noah-isme/stationery-pos/internal/commission"
	"github.com/noah-isme/stationery-pos/internal/common"
	"github.com/noah-isme/stationery-pos/internal/events"
	"github.com/noah-isme/stationery-pos/internal/health"
	"github.com/noah-isme/stationery-pos/internal/inventory"
	"github.com/noah-isme/stationery-pos/internal/invoice"
	"github.com/noah-isme/stationery-pos/internal/lock"
	"github.com/noah-isme/stationery-pos/internal/obs"
	"github.com/noah-isme/stationery-pos/internal/pos"
	"github.com/noah-isme/stationery-pos/internal/purchase"
	"github.com/noah-isme/stationery-pos/internal/ratelimit"
	"github.com/noah-isme/stationery-pos/internal/reference"
	"github.com/noah-isme/stationery-pos/internal/reports"
	"github.com/noah-isme/stationery-pos/internal/security"
)

type routerOptions struct {
	Tracing     bool
	HTTPMetrics *obs.HTTPMetrics
	Pprof       bool
	PprofUser   string
	PprofPass   string
}

func newRouter(deps *app.Dependencies, opts routerOptions) (http.Handler, error) {
	cfg := deps.Config
	client := deps.Backend

	globalLimit, err := app.NewRateLimiter(deps.Redis, cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	apiLimit := stdlib.NewMiddleware(globalLimit,
		stdlib.WithKeyGetter(func(r *http.Request) string {
			if operator, ok := common.OperatorID(r.Context()); ok {
				return "op:" + operator
			}
			return "ip:" + common.ClientIP(r)
		}),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			obs.Count(obs.RateLimited, "api")
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("global rate limiter")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		}),
	)

	inspector := &auth.Inspector{
		Secret: []byte(cfg.JWTSecret),
		Validator: auth.TokenValidator{
			Issuer:    cfg.JWTIssuer,
			Audience:  cfg.JWTAudience,
			ClockSkew: cfg.JWTClockSkew,
		},
	}
	if cfg.JWTSecret != "" {
		inspector.Validator.Algorithm = jwa.HS256
	}
	authMiddleware := auth.Middleware{Inspector: inspector, AccessCookie: cfg.AccessCookieName}
	csrf := &security.CSRF{SessionCookie: cfg.AccessCookieName, Secure: cfg.CookieSecure}
	authHandler := &auth.Handler{
		Backend:        client,
		Inspector:      inspector,
		CookieName:     cfg.AccessCookieName,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
		CSRF:           csrf,
		Limit: &ratelimit.Handler{
			Limiter: ratelimit.Limiter{Client: deps.Redis, Prefix: "pos:ratelimit:"},
			Config: ratelimit.Config{
				Scope:  "login",
				Key:    ratelimit.ClientIPKey("login:"),
				Window: cfg.LoginRateWindow,
				Max:    cfg.LoginRateMax,
			},
		},
	}

	posService, err := pos.NewService(pos.ServiceConfig{
		Store:   pos.RedisStore{R: deps.Redis, TTL: cfg.SessionTTL},
		Locker:  lock.Locker{R: deps.Redis, Prefix: "pos:lock:", RetryBackoff: 25 * time.Millisecond},
		LockTTL: cfg.LockTTL,
		Loader:  deps.Reference,
		Backend: func(ctx context.Context) pos.Backend { return client.FromContext(ctx) },
		Events:  deps.Bus,
	})
	if err != nil {
		return nil, err
	}
	posHandler := pos.NewHandler(posService)
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}

	referenceHandler := reference.NewHandler(deps.Reference, client)
	invoiceHandler := invoice.NewHandler(deps.Reference, func(ctx context.Context) invoice.Source { return client.FromContext(ctx) })
	commissionHandler := commission.NewHandler(&commission.Service{Events: deps.Bus}, func(ctx context.Context) commission.Source { return client.FromContext(ctx) })
	inventoryHandler := inventory.NewHandler(deps.Reference, func(ctx context.Context) reference.Source { return client.FromContext(ctx) })
	purchaseHandler := purchase.NewHandler(&purchase.Service{Loader: deps.Reference, Events: deps.Bus}, func(ctx context.Context) purchase.Source { return client.FromContext(ctx) })
	catalogHandler := catalog.NewHandler(&catalog.Service{Loader: deps.Reference, Events: deps.Bus}, func(ctx context.Context) catalog.Source { return client.FromContext(ctx) })
	reportsHandler := &reports.Handler{Svc: deps.Reports, Source: func(ctx context.Context) reports.Source { return client.FromContext(ctx) }}
	healthHandler := health.Handler{Probes: deps.Probes()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: deps.Logger}.Middleware)
	r.Use(security.Headers{
		Enable:     cfg.SecureHeaders,
		EnableHSTS: cfg.HSTSEnabled,
		HSTSMaxAge: cfg.HSTSMaxAge,
		NoStore:    true,
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", security.DefaultCSRFHeader},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if opts.Pprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), opts.PprofUser, opts.PprofPass))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", authHandler.Routes)

		v.Group(func(p chi.Router) {
			p.Use(authMiddleware.RequireToken)
			p.Use(csrf.Middleware)
			p.Use(apiLimit.Handler)

			p.Get("/upstream/activity", deps.Loading.ServeHTTP)
			p.Get("/upstream/activity/stream", deps.Loading.Stream)

			p.Get("/reference", referenceHandler.All)
			p.Get("/reference/products", referenceHandler.Products)
			p.Get("/reference/students", referenceHandler.Students)
			p.Get("/students", catalogHandler.ListStudents)
			p.Post("/students", referenceHandler.CreateStudent)

			p.Route("/products", catalogHandler.ProductRoutes)
			p.Route("/categories", catalogHandler.CategoryRoutes)
			p.Route("/suppliers", catalogHandler.SupplierRoutes)
			p.Route("/schools", catalogHandler.SchoolRoutes)

			p.Route("/pos/sessions", posHandler.Routes(idem.Middleware))

			p.Get("/invoices", invoiceHandler.List)
			p.Get("/invoices/{invoiceID}", invoiceHandler.Get)

			p.Get("/commissions", commissionHandler.List)
			p.Post("/commissions/{commissionID}/settle", commissionHandler.Settle)

			p.Get("/inventory", inventoryHandler.List)

			p.Get("/purchases", purchaseHandler.List)
			p.Post("/purchases", purchaseHandler.Create)
			p.Patch("/purchases/{purchaseID}/status", purchaseHandler.UpdateStatus)

			p.Get("/reports/sales", reportsHandler.Sales)
			p.Get("/reports/school-performance", reportsHandler.SchoolPerformance)
			p.Get("/reports/inventory-valuation", reportsHandler.InventoryValuation)

			if deps.Queries != nil {
				p.Get("/events", events.Handler{Log: events.PGStore{Q: deps.Queries}}.List)
			}
		})
	})

	return r, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
