package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"funnel-billing/internal/config"
	"funnel-billing/internal/infra/metrics"
	"funnel-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	router chi.Router
	srv    *http.Server
	checks map[string]HealthCheck
	log    *zerolog.Logger
}

func NewServer(
	cfg *config.HTTPConfig,
	webhook usecase.WebhookUseCase,
	limiter RateLimiter,
	opts WebhookOptions,
	checks map[string]HealthCheck,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}

	s := &Server{checks: checks, log: &l}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TraceID())
	r.Use(RequestLog(&l))
	r.Use(Recover(&l))

	var hook http.Handler = &webhookHandler{
		uc:      webhook,
		limiter: limiter,
		opts:    opts,
		log:     &l,
		now:     time.Now,
	}
	if limiter == nil && opts.RateLimit > 0 {
		hook = localRateLimit(opts)(hook)
	}
	r.Method(http.MethodPost, "/webhooks/payment", hook)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// localRateLimit keeps per-IP counters in process for single-instance deployments without redis.
func localRateLimit(opts WebhookOptions) func(http.Handler) http.Handler {
	return httprate.Limit(opts.RateLimit, opts.RateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			metrics.IncWebhook("rejected")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
		}),
	)
}

func (s *Server) Handler() http.Handler { return s.router }

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			out[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": out})
}
