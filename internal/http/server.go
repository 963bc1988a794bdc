package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finance/internal/auth"
	"finance/internal/cache"
	"finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	"finance/internal/services"
)

// Services groups the use cases the API exposes.
type Services struct {
	Auth         *services.AuthService
	Budgets      *services.BudgetService
	Pots         *services.PotService
	Transactions *services.TransactionService
	Bills        *services.BillService
	Overview     *services.OverviewService
}

type Config struct {
	Addr         string
	CookieSecure bool
	// CacheTTL bounds how long /budgets and /overview payloads are served from memory.
	// The overview's recurring bill summary is recomputed on every request.
	CacheTTL time.Duration
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc    Services
	issuer *auth.Issuer
	logger *log.Logger

	cookieSecure bool
	ready        func(ctx context.Context) error

	writeLimiter     *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	budgetsCache  *cache.LRUCache[services.BudgetsView]
	overviewCache *cache.LRUCache[services.Overview]
	cacheManager  *cache.Manager

	startedAt    time.Time
	shutdownOnce sync.Once
}

const (
	budgetsCacheKey  = "budgets"
	overviewCacheKey = "overview"
)

// NewServer configures routes and middleware, returning a ready-to-run server.
// writeLimiter may be nil to disable per-client write limiting.
func NewServer(cfg Config, svc Services, issuer *auth.Issuer, writeLimiter *ratelimit.Limiter, logger *log.Logger) *Server {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:              svc,
		issuer:           issuer,
		logger:           logger,
		cookieSecure:     cfg.CookieSecure,
		ready:            cfg.Ready,
		writeLimiter:     writeLimiter,
		securityDetector: security.NewDetector(),
		budgetsCache:     cache.NewLRUCache[services.BudgetsView](1, cfg.CacheTTL),
		overviewCache:    cache.NewLRUCache[services.Overview](1, cfg.CacheTTL),
		cacheManager:     cache.NewManager(logger),
		startedAt:        time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(s.budgetsCache)
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /financialData", s.handleFinancialData)
	mux.Handle("POST /auth/register", s.limitWrites(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /auth/login", s.limitWrites(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	// Authenticated endpoints
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireAuth(s.limitWrites(h)))
	}
	protected("GET /auth/me", s.handleMe)

	protected("GET /budgets", s.handleListBudgets)
	protected("POST /budgets", s.handleCreateBudget)
	protected("GET /budgets/{category}", s.handleGetBudget)
	protected("PUT /budgets/{category}", s.handleUpdateBudget)
	protected("DELETE /budgets/{category}", s.handleDeleteBudget)

	protected("GET /transactions", s.handleListTransactions)
	protected("POST /transactions", s.handleImportTransactions)
	protected("GET /bills", s.handleListBills)

	protected("GET /pots", s.handleListPots)
	protected("POST /pots", s.handleCreatePot)
	protected("GET /pots/{id}", s.handleGetPot)
	protected("PUT /pots/{id}", s.handleUpdatePot)
	protected("DELETE /pots/{id}", s.handleDeletePot)
	protected("POST /pots/{id}/add", s.handleAddMoney)
	protected("POST /pots/{id}/withdraw", s.handleWithdraw)

	protected("GET /overview", s.handleOverview)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// Outermost first: tracing sees every response, including rejections below it.
	s.Server = http.Server{
		Addr: cfg.Addr,
		Handler: s.traceMiddleware.Middleware(
			headers.Middleware(
				s.securityDetector.Middleware(mux))),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	return s
}

// requireAuth rejects requests without a valid session token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return s.issuer.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Unauthorized request",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		UnauthorizedError("unauthorized").Write(w)
	})(next)
}

// limitWrites applies the per-client write limit to mutating methods only.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	if s.writeLimiter == nil {
		return next
	}
	limited := s.writeLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError(ratelimit.RetryAfterSeconds(d.RetryAfter)).Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// invalidate drops derived views after any ledger write.
func (s *Server) invalidate() {
	s.budgetsCache.Clear()
	s.overviewCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
