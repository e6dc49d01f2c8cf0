package handler

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/service"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey string

const wizardKey contextKey = "wizard"

// WizardTokenMiddleware resolves the Bearer wizard token and injects the
// wizard into the request context.
func WizardTokenMiddleware(registry *service.Registry, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("wizard: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token do assistente não fornecido")
				return
			}

			wizard, err := registry.Resolve(r.Context(), token)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), wizardKey, wizard)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WizardFromContext returns the wizard injected by WizardTokenMiddleware.
func WizardFromContext(ctx context.Context) *service.Wizard {
	w, _ := ctx.Value(wizardKey).(*service.Wizard)
	return w
}

// ============================================================
// Rate limiting
// ============================================================

// maxTrackedIPs bounds the number of per-IP limiters kept in memory.
const maxTrackedIPs = 10000

// IPRateLimiter manages per-IP rate limiters. A limiter unused for longer
// than it takes to refill its whole burst is dropped, since a fresh one
// behaves the same.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	logger   *zap.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, logger *zap.Logger) *IPRateLimiter {
	idle := time.Minute
	if r > 0 {
		if refill := time.Duration(float64(burst) / float64(r) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return newIPRateLimiter(r, burst, idle, logger)
}

func newIPRateLimiter(r rate.Limit, burst int, idle time.Duration, logger *zap.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedIPs, nil, idle),
		rate:     r,
		burst:    burst,
		logger:   logger,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, ok := i.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(i.rate, i.burst)
	}
	// Add renews the expiry, so only idle clients are dropped.
	i.limiters.Add(ip, limiter)
	return limiter
}

// Len returns the number of client IPs currently tracked.
func (i *IPRateLimiter) Len() int {
	return i.limiters.Len()
}

// RateLimit returns a middleware that rate limits by client IP.
func (i *IPRateLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !i.getLimiter(ip).Allow() {
			i.logger.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
