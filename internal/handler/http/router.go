package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roorq/storefront/internal/access"
	"github.com/roorq/storefront/internal/csrf"
	"github.com/roorq/storefront/internal/service"
	"github.com/roorq/storefront/pkg/health"
	"github.com/roorq/storefront/pkg/middleware"
)

// ObjectsPath is where development object storage serves presigned links.
const ObjectsPath = "/_objects"

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	ServiceName string

	Orders    *service.OrderService
	Vendors   *service.VendorService
	Products  *service.ProductService
	Payouts   *service.PayoutService
	Referrals *service.ReferralService
	Payments  *service.PaymentService
	Audit     AuditLister

	Guard  *access.Guard
	Gate   *csrf.Gate
	Health *health.Handler

	// Objects serves stored documents when the in-memory backend is used.
	Objects http.Handler

	// RateLimiter is optional; when set it throttles mutating API calls.
	RateLimiter *middleware.RateLimiter

	CORSOrigins      []string
	PprofCIDRs       []string
	MaxDocumentBytes int64
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Health check endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.LivenessHandler())
		r.Get("/health/ready", cfg.Health.ReadinessHandler())
	}
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if cfg.Objects != nil {
		r.Handle(ObjectsPath+"/*", http.StripPrefix(ObjectsPath, cfg.Objects))
	}

	// Pprof debug endpoints with IP allowlist.
	middleware.MountPprof(r, cfg.PprofCIDRs, logger)

	csrfHandler := NewCSRFHandler(cfg.Gate, logger)
	orderHandler := NewOrderHandler(cfg.Orders, cfg.Gate, logger)
	vendorHandler := NewVendorHandler(cfg.Vendors, cfg.Gate, cfg.MaxDocumentBytes, logger)
	productHandler := NewProductHandler(cfg.Products, cfg.Gate, logger)
	payoutHandler := NewPayoutHandler(cfg.Payouts, cfg.Gate, logger)
	accountHandler := NewAccountHandler(cfg.Referrals, cfg.Payments, cfg.Audit, logger)

	guard := cfg.Guard

	// Dashboard pages redirect instead of answering JSON errors.
	r.With(guard.Require(access.Admin, access.Page)).Get("/admin", accountHandler.Page("admin"))
	r.With(guard.Require(access.Vendor, access.Page)).Get("/vendor", accountHandler.Page("vendor"))

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}

		r.Get("/csrf", csrfHandler.Token)
		r.Post("/payments/razorpay/order", accountHandler.CreateRazorpayOrder)

		// Public catalog
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(60))
			r.Get("/drops", productHandler.ListDrops)
			r.Get("/drops/{slug}/products", productHandler.DropProducts)
			r.Get("/products/{id}", productHandler.GetProduct)
		})

		// Customer
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(guard.Require(access.Authenticated, access.API))
			r.Use(middleware.ContentTypeJSON)

			r.Post("/orders", orderHandler.PlaceOrder)
			r.Get("/orders", orderHandler.ListMyOrders)
			r.Get("/orders/{id}", orderHandler.GetOrder)
			r.Post("/orders/{id}/cancel", orderHandler.CancelOrder)
			r.Get("/referrals/me", accountHandler.Referrals)
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.NoStore)

			// Onboarding: reachable before approval.
			r.Group(func(r chi.Router) {
				r.Use(guard.Require(access.Vendor, access.API))

				r.Get("/profile", vendorHandler.GetProfile)
				r.With(middleware.ContentTypeJSON).Patch("/profile", vendorHandler.UpdateProfile)
				r.Post("/documents", vendorHandler.UploadDocument)
				r.Get("/documents", vendorHandler.ListDocuments)
			})

			// Selling: approved vendors only.
			r.Group(func(r chi.Router) {
				r.Use(guard.Require(access.VendorApproved, access.API))
				r.Use(middleware.ContentTypeJSON)

				r.Get("/orders", orderHandler.ListVendorOrders)
				r.Patch("/orders/{id}", orderHandler.UpdateVendorOrder)
				r.Get("/products", productHandler.ListVendorProducts)
				r.Post("/products", productHandler.CreateProduct)
				r.Patch("/products/{id}", productHandler.UpdateProduct)
				r.Get("/payouts", payoutHandler.ListVendorPayouts)
				r.Get("/payouts/pending", payoutHandler.PendingEarnings)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(guard.Require(access.Admin, access.API))
			r.Use(middleware.ContentTypeJSON)

			r.Get("/vendors", vendorHandler.ListVendors)
			r.Patch("/vendors/{id}", vendorHandler.SetVendorStatus)
			r.Get("/vendors/{id}/documents", vendorHandler.VendorDocuments)
			r.Get("/orders", orderHandler.ListAllOrders)
			r.Patch("/orders/{id}", orderHandler.UpdateOrder)
			r.Get("/payouts", payoutHandler.ListPayouts)
			r.Post("/payouts", payoutHandler.CreatePayout)
			r.Patch("/payouts/{id}", payoutHandler.SettlePayout)
			r.Get("/analytics", orderHandler.Analytics)
			r.Get("/audit", accountHandler.Audit)
		})
	})

	return r
}
