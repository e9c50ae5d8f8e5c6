package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"cardportal/internal/platform/health"
	"cardportal/internal/portal/flash"
	"cardportal/internal/portal/handler"
	"cardportal/internal/portal/view"
	"cardportal/pkg/platform/middleware/clientip"
	"cardportal/pkg/platform/middleware/request"
)

// requestTimeout bounds a whole portal request, registry call included.
const requestTimeout = 30 * time.Second

// Deps are the pieces the portal router mounts.
type Deps struct {
	Portal *handler.Handler
	Health *health.Handler
	Logger *slog.Logger

	// RequestMetrics observes per-route latency; nil disables it.
	RequestMetrics *request.Metrics
	// MetricsHandler is mounted at /metrics when the metrics server is not separate.
	MetricsHandler http.Handler

	// RateLimitPerMinute caps state-changing requests per client IP; zero disables it.
	RateLimitPerMinute int
	// ClientIP keys the rate limit; nil trusts no proxy headers.
	ClientIP *clientip.Resolver
	// MaxUploadBytes caps request bodies of state-changing requests.
	MaxUploadBytes int64
}

// NewRouter wires the portal pages, operational endpoints and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(clientip.Middleware(d.ClientIP))
	r.Use(request.Logger(d.Logger))
	r.Use(request.Timeout(requestTimeout))
	if d.RequestMetrics != nil {
		r.Use(request.LatencyMiddleware(d.RequestMetrics))
	}

	d.Health.Register(r)
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", view.Static()))

	r.Group(func(r chi.Router) {
		r.Use(flash.Middleware)
		d.Portal.RegisterReads(r)

		r.Group(func(r chi.Router) {
			if d.RateLimitPerMinute > 0 {
				r.Use(httprate.Limit(d.RateLimitPerMinute, time.Minute, httprate.WithKeyFuncs(d.ClientIP.Key)))
			}
			if d.MaxUploadBytes > 0 {
				r.Use(request.BodyLimit(d.MaxUploadBytes))
			}
			d.Portal.RegisterWrites(r)
		})
	})

	return r
}
