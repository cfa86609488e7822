// Package http serves the ledger's JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

// Finance is the service surface the handlers use.
type Finance interface {
	AddTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	SetBudget(ctx context.Context, userID, category string, amount decimal.Decimal, month core.Month) (core.Budget, error)
	DeleteBudget(ctx context.Context, userID string, month core.Month, category string) error
	Snapshot(ctx context.Context, userID string) (*services.Snapshot, error)
	Categories(ctx context.Context) (income, expense []string, err error)
	Ping(ctx context.Context) error
}

// Options tunes the server's protection and caching.
type Options struct {
	Addr           string
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration
	CacheSize      int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For; empty means private networks.
	TrustedProxies []string
}

const userHeader = "X-User-ID"

type Server struct {
	http.Server
	finance Finance
	now     func() time.Time

	rateLimiter *rateLimiter
	clients     *clientResolver
	metrics     *securityMetrics

	// per-user snapshots, dropped on every mutation by that user
	snapshots    *cache.Loader[*services.Snapshot]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, finance Finance) *Server {
	if opts.CacheSize < 1 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		finance:      finance,
		now:          time.Now,
		rateLimiter:  newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		clients:      newClientResolver(opts.TrustedProxies),
		metrics:      &securityMetrics{},
		cacheManager: cache.NewManager(),
	}
	lru := cache.NewLRUCache[*services.Snapshot](opts.CacheSize, opts.CacheTTL)
	s.cacheManager.Register(lru)
	s.snapshots = cache.NewLoader(lru)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/transactions", s.withUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withUser(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withUser(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.withUser(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.withUser(s.handleSetBudget))
	mux.HandleFunc("DELETE /api/budgets/{month}/{category}", s.withUser(s.handleDeleteBudget))
	mux.HandleFunc("GET /api/budgets/progress", s.withUser(s.handleBudgetProgress))
	mux.HandleFunc("GET /api/budgets/alerts", s.withUser(s.handleBudgetAlerts))

	mux.HandleFunc("GET /api/reports/monthly", s.withUser(s.handleMonthlyReport))
	mux.HandleFunc("GET /api/reports/yearly", s.withUser(s.handleYearlyReport))
	mux.HandleFunc("GET /api/reports/compare", s.withUser(s.handleCompareReport))
	mux.HandleFunc("GET /api/reports/periods", s.withUser(s.handlePeriods))
	mux.HandleFunc("GET /api/reports/export", s.withUser(s.handleExportReport))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start launches the background cleanup loops. ListenAndServe does not call it.
func (s *Server) Start() {
	s.cacheManager.StartCleanup(10 * time.Minute)
	go s.rateLimiter.run(5*time.Minute, 10*time.Minute)
}

// Shutdown stops background loops and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		slog.InfoContext(ctx, "Security counters",
			log.FieldComponent, log.ComponentHTTP,
			"rate_limit_hits", atomic.LoadInt64(&s.metrics.rateLimitHits),
			"suspicious_requests", atomic.LoadInt64(&s.metrics.suspiciousRequests))
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// middleware wraps every request with an ID, security headers, rate limiting and logging.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := s.clients.clientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		logger := log.FromContext(r.Context()).
			WithComponent(log.ComponentHTTP).
			With(log.FieldRequestID, requestID)
		ctx := log.WithLogger(r.Context(), logger)
		r = r.WithContext(ctx)

		sl := log.NewStructuredLogger(logger)
		sl.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		applySecurityHeaders(w, r)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		allowed, retryAfter := true, time.Duration(0)
		if isMutating(r.Method) {
			allowed, retryAfter = s.rateLimiter.allow(clientIP, s.metrics)
		}
		if allowed {
			next.ServeHTTP(rw, r)
		} else {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"retry_after", retryAfter.String())
			TooManyRequestsError(retryAfter).Write(rw)
		}

		sl.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser rejects requests without the user header.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := sanitizeInput(r.Header.Get(userHeader))
		if userID == "" {
			UnauthorizedError("missing " + userHeader + " header").Write(w)
			return
		}
		next(w, r, userID)
	}
}

// snapshot returns the user's cached snapshot, loading it on a miss.
// The load outlives a cancelled request since other requests may share it.
func (s *Server) snapshot(ctx context.Context, userID string) (*services.Snapshot, error) {
	snap, hit, err := s.snapshots.Get(ctx, userID, func(ctx context.Context) (*services.Snapshot, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 7*time.Second)
		defer cancel()
		return s.finance.Snapshot(lctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		slog.DebugContext(ctx, "Snapshot cache hit",
			log.FieldComponent, log.ComponentCache,
			log.FieldUserID, userID)
	}
	return snap, nil
}

func (s *Server) invalidate(userID string) {
	s.snapshots.Invalidate(userID)
}
