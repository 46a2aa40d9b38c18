package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/infra/logging"
	"funnel-billing/internal/infra/metrics"
	red "funnel-billing/internal/infra/redis"
	"funnel-billing/internal/usecase"

	"github.com/rs/zerolog"
)

// RateLimiter is satisfied by redis.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// WebhookOptions configures the payment webhook endpoint.
type WebhookOptions struct {
	Secret       string
	MaxBodyBytes int64
	RateLimit    int
	RateWindow   time.Duration
}

type webhookHandler struct {
	uc      usecase.WebhookUseCase
	limiter RateLimiter
	opts    WebhookOptions
	log     *zerolog.Logger
	now     func() time.Time
}

type errorBody struct {
	Received bool   `json:"received"`
	Error    string `json:"error"`
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), h.log)

	if h.limiter != nil && h.opts.RateLimit > 0 {
		key := red.WebhookSourceKey(clientIP(r), h.opts.RateWindow, h.now())
		ok, err := h.limiter.Allow(r.Context(), key, h.opts.RateLimit, h.opts.RateWindow)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		case !ok:
			metrics.IncWebhook("rejected")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooBig) {
			status = http.StatusRequestEntityTooLarge
		}
		metrics.IncWebhook("rejected")
		writeJSON(w, status, errorBody{Error: "cannot read body"})
		return
	}

	if h.opts.Secret != "" && !VerifySignature(h.opts.Secret, body, r.Header.Get(SignatureHeader)) {
		metrics.IncWebhook("rejected")
		log.Warn().Str("remote", clientIP(r)).Msg("webhook signature mismatch")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid signature"})
		return
	}

	ack, err := h.uc.Handle(r.Context(), body)
	switch {
	case err == nil && ack.Ignored:
		metrics.IncWebhook("ignored")
		writeJSON(w, http.StatusOK, ack)
	case err == nil:
		metrics.IncWebhook("processed")
		recordPurchase(ack.Data)
		writeJSON(w, http.StatusOK, ack)
	case domain.IsPrecondition(err):
		metrics.IncWebhook("precondition")
		metrics.IncBusinessFailure(failureReason(err))
		if ack == nil {
			ack = &usecase.WebhookAck{Received: true, Reason: err.Error()}
		}
		writeJSON(w, http.StatusUnprocessableEntity, ack)
	case errors.Is(err, domain.ErrDeliveryInFlight):
		metrics.IncWebhook("in_flight")
		writeJSON(w, http.StatusConflict, errorBody{Received: true, Error: err.Error()})
	default:
		metrics.IncWebhook("error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Received: true, Error: "internal error"})
	}
}

func recordPurchase(res *usecase.PurchaseResult) {
	if res == nil {
		return
	}
	metrics.IncPurchase(string(res.Route))
	metrics.AddPaymentRevenue(res.Currency, res.Amount)
	if c := res.Commission; c != nil {
		metrics.AddCommissionHeld(c.Amount)
		if c.Promotion.Promoted {
			metrics.IncPartnerPromotion(c.Promotion.Level)
		}
	}
}

var failureReasons = []struct {
	err  error
	code string
}{
	{domain.ErrAccountNotFound, "account_not_found"},
	{domain.ErrAccountNotVerified, "account_not_verified"},
	{domain.ErrAccountEmailMismatch, "account_email_mismatch"},
	{domain.ErrAffiliateLinkMissing, "affiliate_link_missing"},
	{domain.ErrAffiliateLinkNotFound, "affiliate_link_not_found"},
	{domain.ErrWorkspaceRequired, "workspace_required"},
	{domain.ErrWorkspaceNotFound, "workspace_not_found"},
	{domain.ErrSignupMisconfigured, "signup_misconfigured"},
	{domain.ErrMissingField, "missing_field"},
}

func failureReason(err error) string {
	for _, r := range failureReasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return "other"
}

// clientIP prefers the address middleware.RealIP wrote into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
