// middleware/rate_limiter.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// EndpointLimit is the token bucket of one route.
type EndpointLimit struct {
	Limit rate.Limit
	Burst int
}

// OTPLimit throttles the endpoints that send or check codes.
var OTPLimit = EndpointLimit{Limit: rate.Every(2 * time.Second), Burst: 3}

// RateLimiter keeps one token bucket per client IP and route. A client
// that runs out on a route is blocked from it for a while.
type RateLimiter struct {
	limiters       map[string]*rate.Limiter
	blocked        map[string]time.Time
	mu             sync.Mutex
	defaultLimit   EndpointLimit
	blockDuration  time.Duration
	endpointLimits map[string]EndpointLimit
	now            func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters:       make(map[string]*rate.Limiter),
		blocked:        make(map[string]time.Time),
		defaultLimit:   EndpointLimit{Limit: rate.Every(100 * time.Millisecond), Burst: 20},
		blockDuration:  time.Minute,
		endpointLimits: make(map[string]EndpointLimit),
		now:            time.Now,
	}
}

// Limit sets the bucket for the route path, as registered with echo.
func (r *RateLimiter) Limit(path string, l EndpointLimit) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpointLimits[path] = l
	return r
}

// Cleanup drops expired blocks and their buckets.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, until := range r.blocked {
		if now.After(until) {
			delete(r.blocked, key)
			delete(r.limiters, key)
		}
	}
}

func (r *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			key := c.RealIP() + " " + path

			r.mu.Lock()
			now := r.now()
			if until, ok := r.blocked[key]; ok {
				if now.Before(until) {
					r.mu.Unlock()
					return tooManyRequests(c, until)
				}
				delete(r.blocked, key)
				delete(r.limiters, key)
			}

			limiter, ok := r.limiters[key]
			if !ok {
				l, found := r.endpointLimits[path]
				if !found {
					l = r.defaultLimit
				}
				limiter = rate.NewLimiter(l.Limit, l.Burst)
				r.limiters[key] = limiter
			}

			if !limiter.AllowN(now, 1) {
				until := now.Add(r.blockDuration)
				r.blocked[key] = until
				r.mu.Unlock()
				return tooManyRequests(c, until)
			}
			r.mu.Unlock()

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, until time.Time) error {
	return c.JSON(http.StatusTooManyRequests, models.Response{
		Status:  http.StatusTooManyRequests,
		Message: "too many requests",
		Data:    map[string]string{"retryAfter": until.Format(time.RFC3339)},
	})
}
