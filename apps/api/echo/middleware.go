package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
)

const contextViewerKey = "viewer"

// parishMiddleware resolves the parish of the route and the access.Viewer of the authenticated user in it.
func (s *Server) parishMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := s.auth.contextUser(ctx, s.deps.UserSvc)
			if err != nil {
				return err
			}

			parishID := ctx.Param("parishID")
			if _, err = s.deps.ParishSvc.GetByID(ctx.Request().Context(), parishID); err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding parish")
			}

			viewer, err := s.deps.ParishSvc.Viewer(ctx.Request().Context(), parishID, usr)
			if err != nil {
				return errors.Wrap(err, "resolving viewer")
			}
			ctx.Set(contextViewerKey, viewer)
			return next(ctx)
		}
	}
}

func contextViewer(ctx echo.Context) access.Viewer {
	if v, ok := ctx.Get(contextViewerKey).(access.Viewer); ok {
		return v
	}
	return access.Anonymous
}

// leaderMiddleware only lets parish admins and shepherds through.
func leaderMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextViewer(ctx).IsLeader() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// ipRateLimiter keeps a token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		lastGC:   time.Now(),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > l.idle {
		for key, entry := range l.limiters {
			if now.Sub(entry.lastAccess) > l.idle {
				delete(l.limiters, key)
			}
		}
		l.lastGC = now
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter.Allow()
}

func (l *ipRateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !l.allow(ctx.RealIP()) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
