package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dkyc/pkg/platform/middleware/cors"
	"dkyc/pkg/platform/middleware/metadata"
	"dkyc/pkg/platform/middleware/request"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// Config holds the transport-level settings shared by every route.
type Config struct {
	Logger         *slog.Logger
	Registry       *prometheus.Registry
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	TrustedProxies []netip.Prefix
	CORS           cors.Config
}

// NewRouter wires the public endpoints with middleware. Health and metrics
// sit outside the body limit and timeout applied to the KYC routes.
func NewRouter(cfg Config, health Registrar, kyc Registrar) http.Handler {
	if cfg.CORS.AllowedOrigin == "" {
		cfg.CORS = cors.DefaultConfig()
	}

	r := chi.NewRouter()

	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(metadata.Config{TrustedProxies: cfg.TrustedProxies}).Handler)
	r.Use(request.Logger(cfg.Logger))
	r.Use(cors.Handler(cfg.CORS))
	if cfg.Registry != nil {
		r.Use(request.LatencyMiddleware(request.NewMetrics(cfg.Registry)))
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{Registry: cfg.Registry}))
	}

	if health != nil {
		health.Register(r)
	}

	r.Group(func(r chi.Router) {
		if cfg.MaxBodyBytes > 0 {
			r.Use(request.BodyLimit(cfg.MaxBodyBytes))
		}
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		r.Use(request.ContentTypeJSON)
		kyc.Register(r)
	})

	return r
}
