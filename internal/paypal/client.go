// Package paypal implements the payment.PayPalOrders interface against the
// PayPal REST API (v2 Checkout Orders).
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/storefront-checkout/internal/domain/money"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// DefaultTimeout bounds every PayPal call.
const DefaultTimeout = 8 * time.Second

// Config holds PayPal REST credentials. BaseURL selects the environment
// (sandbox vs live).
type Config struct {
	BaseURL  string
	ClientID string
	Secret   string
	Timeout  time.Duration
}

// Client talks to the PayPal REST API. OAuth tokens are fetched per call and
// never persisted: token TTLs are short and re-fetching is acceptable
// overhead at checkout frequency.
type Client struct {
	http     *http.Client
	baseURL  string
	clientID string
	secret   string
}

var _ payment.PayPalOrders = (*Client)(nil)

// NewClient creates a PayPal client. Credentials may be empty at
// construction time; calls fail with payment.ErrCredentialsMissing instead,
// so the server can boot without PayPal configured.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type amountWire struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitWire struct {
	ReferenceID string     `json:"reference_id,omitempty"`
	CustomID    string     `json:"custom_id,omitempty"`
	Amount      amountWire `json:"amount"`
}

type orderRequest struct {
	Intent        string             `json:"intent"`
	PurchaseUnits []purchaseUnitWire `json:"purchase_units"`
}

type orderResponse struct {
	ID            string             `json:"id"`
	Status        string             `json:"status"`
	PurchaseUnits []purchaseUnitWire `json:"purchase_units"`
}

// token obtains an OAuth2 client-credentials access token.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.secret == "" {
		return "", payment.ErrCredentialsMissing
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build token request")
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request token")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &payment.RemoteAuthError{
			Gateway:    payment.GatewayPayPal,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", errors.Wrap(err, "decode token response")
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}
	return tok.AccessToken, nil
}

// CreateOrder creates a CAPTURE-intent PayPal order for the amount,
// embedding referenceID as the purchase unit's custom id so the PayPal order
// can be traced back to the draft order.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, referenceID string) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitWire{{
			ReferenceID: referenceID,
			CustomID:    referenceID,
			Amount: amountWire{
				CurrencyCode: currency,
				Value:        amount.StringFixed(money.MinorUnits(currency)),
			},
		}},
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", token, body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("order response missing id")
	}
	return resp.ID, nil
}

// GetOrder returns the order's amount and currency as PayPal reports them.
func (c *Client) GetOrder(ctx context.Context, orderID string) (decimal.Decimal, string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return decimal.Decimal{}, "", err
	}

	var resp orderResponse
	err = c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), token, nil, &resp)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	if len(resp.PurchaseUnits) == 0 {
		return decimal.Decimal{}, "", errors.New("order response missing purchase units")
	}

	unit := resp.PurchaseUnits[0]
	amount, err := money.Parse(unit.Amount.Value)
	if err != nil {
		return decimal.Decimal{}, "", errors.Wrap(err, "order amount")
	}
	return amount, unit.Amount.CurrencyCode, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &payment.RemoteAuthError{
			Gateway:    payment.GatewayPayPal,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.Errorf("paypal returned status %d: %s", resp.StatusCode, readDetail(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func readDetail(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 2048))
	return strings.TrimSpace(string(raw))
}
