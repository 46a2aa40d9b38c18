package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain/ports/adapter"
)

var _ adapter.SubscriberRegistry = (*HTTPSubscriberRegistry)(nil)

// HTTPSubscriberRegistry reads subscription details from the payment gateway REST API.
type HTTPSubscriberRegistry struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPSubscriberRegistry(cfg *config.GatewayConfig) (*HTTPSubscriberRegistry, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, errors.New("gateway base url empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway url: %w", err)
	}
	return &HTTPSubscriberRegistry{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (g *HTTPSubscriberRegistry) Name() string { return "gateway" }

// LookupSubscriber calls GET /subscriptions/{id}. A 404 or an empty subscriber id maps to
// adapter.ErrSubscriberUnknown so the backfill retries later.
func (g *HTTPSubscriberRegistry) LookupSubscriber(ctx context.Context, externalSubscriptionID string) (string, error) {
	endpoint := g.baseURL + "/subscriptions/" + url.PathEscape(externalSubscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", adapter.ErrSubscriberUnknown
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("gateway http %d", resp.StatusCode)
	}

	var out struct {
		ID           string `json:"id"`
		SubscriberID string `json:"subscriber_id"`
		Subscriber   *struct {
			ID string `json:"id"`
		} `json:"subscriber"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}
	id := out.SubscriberID
	if id == "" && out.Subscriber != nil {
		id = out.Subscriber.ID
	}
	if id == "" {
		return "", adapter.ErrSubscriberUnknown
	}
	return id, nil
}
