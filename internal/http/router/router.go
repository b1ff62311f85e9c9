package router

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/config"
	"github.com/vantage-media/quote-api/internal/database"
	"github.com/vantage-media/quote-api/internal/http/handler"
	"github.com/vantage-media/quote-api/internal/http/middleware"
	"github.com/vantage-media/quote-api/internal/ratesource"
	"github.com/vantage-media/quote-api/internal/repository"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/vantage-media/quote-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                  *config.Config
	logger               *zap.Logger
	db                   *gorm.DB
	rateSource           *ratesource.Client
	authMiddleware       *auth.Middleware
	rateLimiter          *middleware.RateLimiter
	quoteHandler         *handler.QuoteHandler
	vendorHandler        *handler.VendorHandler
	vendorSupportHandler *handler.VendorSupportHandler
	productHandler       *handler.ProductHandler
	purchaseHandler      *handler.PurchaseHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	rateSource *ratesource.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	quoteHandler *handler.QuoteHandler,
	vendorHandler *handler.VendorHandler,
	vendorSupportHandler *handler.VendorSupportHandler,
	productHandler *handler.ProductHandler,
	purchaseHandler *handler.PurchaseHandler,
) *Router {
	return &Router{
		cfg:                  cfg,
		logger:               logger,
		db:                   db,
		rateSource:           rateSource,
		authMiddleware:       authMiddleware,
		rateLimiter:          rateLimiter,
		quoteHandler:         quoteHandler,
		vendorHandler:        vendorHandler,
		vendorSupportHandler: vendorSupportHandler,
		productHandler:       productHandler,
		purchaseHandler:      purchaseHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		// The rate source is optional: disabled is healthy, unreachable is not
		rateStatus := rt.rateSource.HealthCheck(r.Context())
		checks["rate_source"] = rateStatus
		if rateStatus.Status == "unhealthy" {
			allHealthy = false
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": map[bool]string{true: "healthy", false: "unhealthy"}[allHealthy],
			"checks": checks,
		})
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Current user
			r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
				user := auth.MustFromContext(r.Context())
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{
					"userId":      user.UserID,
					"displayName": user.DisplayName,
					"email":       user.Email,
					"roles":       user.RolesAsStrings(),
				})
			})

			// Quotes
			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", rt.quoteHandler.List)
				r.Post("/", rt.quoteHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", rt.quoteHandler.Get)
					r.Put("/", rt.quoteHandler.Update)
					r.Delete("/", rt.quoteHandler.Delete)

					r.Post("/lines", rt.quoteHandler.AddLine)
					r.Put("/lines/{lineId}", rt.quoteHandler.UpdateLine)
					r.Delete("/lines/{lineId}", rt.quoteHandler.DeleteLine)

					r.Get("/min-buy-check", rt.quoteHandler.CheckMinimumBuy)
					r.Post("/mark-sent", rt.quoteHandler.MarkSent)
					r.Post("/request-approval", rt.quoteHandler.RequestApproval)
					r.Post("/approve", rt.quoteHandler.Approve)
					r.Post("/confirm", rt.quoteHandler.Confirm)
					r.Post("/set-to-draft", rt.quoteHandler.SetToDraft)
					r.Post("/cancel", rt.quoteHandler.Cancel)

					r.Get("/commitments", rt.quoteHandler.ListCommitments)
					r.Get("/activities", rt.quoteHandler.ListActivities)
					r.Post("/client-po", rt.quoteHandler.AttachClientPO)
				})
			})

			// Vendors
			r.Route("/vendors", func(r chi.Router) {
				r.Get("/", rt.vendorHandler.List)
				r.Post("/", rt.vendorHandler.Create)
				r.Get("/{id}", rt.vendorHandler.Get)
				r.Put("/{id}", rt.vendorHandler.Update)
				r.Delete("/{id}", rt.vendorHandler.Delete)
			})

			// Vendor supports
			r.Route("/vendor-supports", func(r chi.Router) {
				r.Get("/", rt.vendorSupportHandler.List)
				r.Post("/", rt.vendorSupportHandler.Create)
				r.Get("/{id}", rt.vendorSupportHandler.Get)
				r.Put("/{id}", rt.vendorSupportHandler.Update)
				r.Delete("/{id}", rt.vendorSupportHandler.Delete)
			})

			// Products and their purchasing terms
			r.Route("/products", func(r chi.Router) {
				r.Get("/", rt.productHandler.List)
				r.Post("/", rt.productHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", rt.productHandler.Get)
					r.Put("/", rt.productHandler.Update)
					r.Delete("/", rt.productHandler.Delete)
					r.Get("/suppliers", rt.productHandler.ListSupplierInfo)
					r.Post("/suppliers", rt.productHandler.AddSupplierInfo)
					r.Delete("/suppliers/{supplierId}", rt.productHandler.DeleteSupplierInfo)
				})
			})

			// Purchase commitments
			r.Route("/commitments", func(r chi.Router) {
				r.Get("/", rt.purchaseHandler.List)
				r.Get("/{id}", rt.purchaseHandler.Get)
			})

			// Stored exchange rates, read-only
			r.Get("/exchange-rates", rt.listExchangeRates)
		})
	})

	return r
}

// listExchangeRates exposes the locally synced rates for inspection. Filters:
// from, to (currency codes), limit (default 100).
func (rt *Router) listExchangeRates(w http.ResponseWriter, r *http.Request) {
	from := strings.ToUpper(r.URL.Query().Get("from"))
	to := strings.ToUpper(r.URL.Query().Get("to"))
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	rates, err := repository.NewExchangeRateRepository(rt.db).List(r.Context(), from, to, limit)
	if err != nil {
		rt.logger.Error("failed to list exchange rates", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to list exchange rates"})
		return
	}

	type rateView struct {
		FromCurrency string  `json:"fromCurrency"`
		ToCurrency   string  `json:"toCurrency"`
		Rate         float64 `json:"rate"`
		RateDate     string  `json:"rateDate"`
	}
	out := make([]rateView, 0, len(rates))
	for _, rate := range rates {
		out = append(out, rateView{
			FromCurrency: rate.FromCurrency,
			ToCurrency:   rate.ToCurrency,
			Rate:         rate.Rate,
			RateDate:     rate.RateDate.Format("2006-01-02"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": out, "count": len(out)})
}
