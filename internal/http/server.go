package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"propman/internal/auth"
	"propman/internal/dashboard"
	"propman/internal/log"
	"propman/internal/metrics"
	"propman/internal/middleware/ratelimit"
	"propman/internal/middleware/security"
	"propman/internal/middleware/trace"
	"propman/internal/reporting"
	"propman/internal/services"
	"propman/internal/store"
)

// Deps are the application services behind the API.
type Deps struct {
	Store     store.Store
	Auth      *auth.Service
	Invoices  *services.InvoiceService
	Expenses  *services.ExpenseService
	Reports   *reporting.Service
	Dashboard *dashboard.Service
}

func (d Deps) validate() error {
	var missing []string
	for name, ok := range map[string]bool{
		"store":     d.Store != nil,
		"auth":      d.Auth != nil,
		"invoices":  d.Invoices != nil,
		"expenses":  d.Expenses != nil,
		"reports":   d.Reports != nil,
		"dashboard": d.Dashboard != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.New("http server: missing dependencies: " + strings.Join(missing, ", "))
	}
	return nil
}

// Options tune the middleware stack.
type Options struct {
	CORSAllowedOrigins []string
	RateLimit          ratelimit.Config
	TrustedProxies     []string
	Logger             *log.Logger
}

type Server struct {
	http.Server
	store     store.Store
	auth      *auth.Service
	invoices  *services.InvoiceService
	expenses  *services.ExpenseService
	reports   *reporting.Service
	dashboard *dashboard.Service

	limiter  *ratelimit.Limiter
	validate *validator.Validate
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.RateLimit.RequestsPerSecond <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		store:     deps.Store,
		auth:      deps.Auth,
		invoices:  deps.Invoices,
		expenses:  deps.Expenses,
		reports:   deps.Reports,
		dashboard: deps.Dashboard,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		validate:  validator.New(),
		now:       time.Now,
	}

	s.validate.RegisterTagNameFunc(jsonFieldName)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	router.Use(
		trace.NewMiddleware(logger.WithComponent(log.ComponentHTTP), detector.ExtractClientIP).Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		detector.Middleware,
	)

	// Public
	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	limit := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})

	authRouter := router.PathPrefix("/auth").Subrouter()
	authRouter.Use(limit)
	authRouter.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	authRouter.HandleFunc("/signup/admin", s.handleAdminSignup).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRouter.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(limit, s.requireAuth)

	api.HandleFunc("/dashboard", s.adminOnly(s.handleDashboard)).Methods(http.MethodGet)

	api.HandleFunc("/properties", s.activeUser(s.handleListProperties)).Methods(http.MethodGet)
	api.HandleFunc("/properties", s.adminOnly(s.handleCreateProperty)).Methods(http.MethodPost)
	api.HandleFunc("/properties/{id}", s.activeUser(s.handleGetProperty)).Methods(http.MethodGet)
	api.HandleFunc("/properties/{id}", s.adminOnly(s.handleUpdateProperty)).Methods(http.MethodPut)
	api.HandleFunc("/properties/{id}", s.adminOnly(s.handleDeleteProperty)).Methods(http.MethodDelete)

	api.HandleFunc("/providers", s.adminOnly(s.handleListProviders)).Methods(http.MethodGet)
	api.HandleFunc("/providers/{id}", s.activeUser(s.handleGetProvider)).Methods(http.MethodGet)

	api.HandleFunc("/invoices", s.activeUser(s.handleListInvoices)).Methods(http.MethodGet)
	api.HandleFunc("/invoices", s.adminOnly(s.handleCreateInvoice)).Methods(http.MethodPost)
	api.HandleFunc("/invoices/{id}", s.activeUser(s.handleGetInvoice)).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}/status", s.adminOnly(s.handleChangeInvoiceStatus)).Methods(http.MethodPost)

	api.HandleFunc("/expenses", s.adminOnly(s.handleListExpenses)).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.adminOnly(s.handleCreateExpense)).Methods(http.MethodPost)

	api.HandleFunc("/reports/financial", s.adminOnly(s.handleFinancialReport)).Methods(http.MethodGet)
	api.HandleFunc("/reports/financial.csv", s.adminOnly(s.handleFinancialCSV)).Methods(http.MethodGet)

	var handler http.Handler = router
	if len(opts.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", trace.HeaderRequestID},
			ExposedHeaders: []string{trace.HeaderRequestID, "Retry-After", "Content-Disposition"},
			MaxAge:         600,
		}).Handler(router)
	}
	s.Handler = handler

	return s, nil
}

// Shutdown gracefully shuts down the server and the limiter cleanup routine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// jsonFieldName reports validation problems under their JSON names.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports ready once the store answers a cheap read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.store.InvoiceSetVersion(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
