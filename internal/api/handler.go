package api

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/logging"
	"pharmapos/m/internal/metrics"
	"pharmapos/m/internal/repository"
	"pharmapos/m/internal/sales"
)

func init() {
	// Money is rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Options struct {
	Secret         string
	TokenTTL       time.Duration
	PhonePattern   *regexp.Regexp
	CORSOrigins    []string
	RateLimitRate  float64
	RateLimitBurst int64
	Logger         *slog.Logger
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	repo    *repository.Repository
	sales   *sales.Coordinator
	secret  []byte
	ttl     time.Duration
	phone   *regexp.Regexp
	origins []string
	limiter *RateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a Handler.
func New(repo *repository.Repository, coord *sales.Coordinator, opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.PhonePattern == nil {
		opts.PhonePattern = regexp.MustCompile(domain.DefaultPhonePattern)
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		repo:    repo,
		sales:   coord,
		secret:  []byte(opts.Secret),
		ttl:     opts.TokenTTL,
		phone:   opts.PhonePattern,
		origins: opts.CORSOrigins,
		limiter: NewRateLimiter(opts.RateLimitRate, opts.RateLimitBurst),
		logger:  opts.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(h.logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/register", h.register)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Delete("/{id}", h.deactivateUser)
		})

		pr.Route("/drugs", func(r chi.Router) {
			r.Post("/", h.createDrug)
			r.Get("/", h.searchDrugs)
			r.Get("/{id}", h.getDrug)
			r.Put("/{id}", h.updateDrug)
			r.Delete("/{id}", h.deleteDrug)
		})

		pr.Route("/stores", func(r chi.Router) {
			r.Post("/", h.createStore)
			r.Get("/", h.listStores)
			r.Get("/{id}", h.getStore)
			r.Put("/{id}", h.updateStore)
			r.Delete("/{id}", h.deactivateStore)
		})

		pr.Route("/customers", func(r chi.Router) {
			r.Post("/", h.createCustomer)
			r.Get("/", h.searchCustomers)
			r.Get("/{id}", h.getCustomer)
			r.Put("/{id}", h.updateCustomer)
			r.Delete("/{id}", h.deleteCustomer)
		})

		pr.Route("/inventory", func(r chi.Router) {
			r.Post("/", h.createInventory)
			r.Get("/", h.listInventory)
			r.Get("/{drugId}/{storeId}", h.getInventory)
			r.Put("/{drugId}/{storeId}", h.updateInventory)
			r.Post("/{drugId}/{storeId}/stock", h.restock)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Get("/", h.listSales)
			r.Get("/{id}", h.getSale)
			r.Group(func(limited chi.Router) {
				limited.Use(h.limiter.Middleware)
				limited.Post("/", h.createSale)
				limited.Put("/{id}/refund", h.refundSale)
				limited.Put("/{id}/cancel", h.cancelSale)
			})
		})

		pr.Route("/prescriptions", func(r chi.Router) {
			r.Post("/", h.createPrescription)
			r.Get("/", h.listPrescriptions)
			r.Get("/{id}", h.getPrescription)
			r.Put("/{id}/status", h.setPrescriptionStatus)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/sales/daily", h.dailySales)
			r.Get("/sales/monthly", h.monthlySales)
			r.Get("/sales", h.salesReport)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
