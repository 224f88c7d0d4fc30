package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bizclone/internal/fault"
)

type ctxKey int

const ownerKey ctxKey = iota

const ownerCookieName = "bizclone_owner"

// ownerIdentity resolves the caller's owner ID from a cookie, minting one on
// first contact. Analyses are scoped to this identity.
func ownerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ownerID string
		if c, err := r.Cookie(ownerCookieName); err == nil && c.Value != "" {
			ownerID = c.Value
		} else {
			ownerID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ownerCookieName,
				Value:    ownerID,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, ownerID)))
	})
}

// ownerFrom returns the owner ID placed in the context by ownerIdentity.
func ownerFrom(ctx context.Context) string {
	id, _ := ctx.Value(ownerKey).(string)
	return id
}

// requestLogger logs one line per request via the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// rateLimiter applies a token bucket per client IP.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &rateLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (rl *rateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.clients[ip]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients[ip] = l
	}
	return l
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiterFor(r.RemoteAddr).Allow() {
			respondFault(w, fault.New(fault.KindRateLimited, "too many requests").
				WithRetryAfter(time.Second))
			return
		}
		next.ServeHTTP(w, r)
	})
}
