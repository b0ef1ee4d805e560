// Package revalidate dispatches cache invalidation to the storefront
// frontend when catalog webhook topics arrive.
package revalidate

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/webhook"
)

// Config holds the frontend revalidation endpoint settings.
type Config struct {
	// URL is the frontend's revalidation endpoint. Empty disables dispatch.
	URL string
	// Token authenticates this service to the frontend.
	Token   string
	Timeout time.Duration
}

// Dispatcher POSTs revalidation requests to the frontend. With no URL
// configured it logs and succeeds, so catalog webhooks remain ack'able in
// environments without a frontend.
type Dispatcher struct {
	http  *http.Client
	url   string
	token string
}

var _ webhook.Revalidator = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		url:   cfg.URL,
		token: cfg.Token,
	}
}

// Revalidate asks the frontend to refresh caches for the given tag.
func (d *Dispatcher) Revalidate(ctx context.Context, tag string) error {
	if d.url == "" {
		zctx.From(ctx).Debug("revalidation skipped, no frontend URL configured",
			zap.String("tag", tag))
		return nil
	}

	form := url.Values{"tag": {tag}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build revalidation request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "revalidation request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("frontend returned status %d", resp.StatusCode)
	}
	return nil
}
