package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token bucket per client. Requests tokens are
// available at once and refill evenly over Window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// KeyFunc identifies the client. Defaults to the real IP.
	KeyFunc func(c echo.Context) string
	// Message is returned with 429 responses
	Message string
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client key
type RateLimiter struct {
	config   RateLimitConfig
	limit    rate.Limit
	visitors map[string]*visitor
	mu       sync.Mutex
	stop     chan struct{}
	once     sync.Once
	now      func() time.Time
}

// NewRateLimiter creates a limiter and starts its idle-client sweeper
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Requests <= 0 {
		config.Requests = 1
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}

	rl := &RateLimiter{
		config:   config,
		limit:    rate.Every(config.Window / time.Duration(config.Requests)),
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	go rl.sweep(time.Minute)
	return rl
}

func (rl *RateLimiter) visitor(key string, now time.Time) *rate.Limiter {
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.config.Requests)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// Every response carries X-RateLimit-Limit and X-RateLimit-Remaining.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := rl.now()

			rl.mu.Lock()
			lim := rl.visitor(rl.config.KeyFunc(c), now)
			r := lim.ReserveN(now, 1)
			delay := r.DelayFrom(now)
			if delay > 0 {
				r.CancelAt(now)
			}
			remaining := int(math.Max(0, math.Floor(lim.TokensAt(now))))
			rl.mu.Unlock()

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if delay > 0 {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

// Stop ends the sweeper
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.purge(rl.now())
		}
	}
}

// purge forgets clients idle for a full window, whose buckets are full again
func (rl *RateLimiter) purge(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.config.Window {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// Pre-configured rate limiters for the expensive endpoints

// ExportRateLimiter limits PDF exports to 10 per minute per IP
var ExportRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 10,
	Window:   1 * time.Minute,
	Message:  "Too many exports. Please wait a minute before trying again.",
})

// SendRateLimiter limits export emails to 20 per hour per IP
var SendRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 20,
	Window:   1 * time.Hour,
	Message:  "Too many emails sent. Please try again later.",
})

// ImportRateLimiter limits spreadsheet imports to 5 per minute per IP
var ImportRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 5,
	Window:   1 * time.Minute,
	Message:  "Too many imports. Please wait before trying again.",
})

// APIRateLimiter limits general API requests to 120 per minute per IP
var APIRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 120,
	Window:   1 * time.Minute,
	Message:  "Rate limit exceeded. Please slow down your requests.",
})
