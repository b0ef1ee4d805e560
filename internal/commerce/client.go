// Package commerce implements the checkout.Gateway interface over the
// remote commerce platform's Admin HTTP API. All commerce state (carts,
// draft orders, orders, customers) lives on the platform; this client only
// moves it across the wire.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/money"
)

// DefaultTimeout bounds every platform call so a slow remote cannot exhaust
// request-handling capacity. On timeout the call fails closed; it is never
// assumed to have succeeded.
const DefaultTimeout = 8 * time.Second

// Config holds the connection settings for the platform Admin API.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client talks to the commerce platform. It is safe for concurrent use and
// constructed once at process start (no implicit global instance).
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

var _ checkout.Gateway = (*Client)(nil)

// NewClient creates a Client for the given platform endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("commerce base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
	}, nil
}

// CreateCart creates a platform cart from the requested lines. Line-level
// user errors (sold out, unknown merchandise) come back as a
// GatewayRejectionError carrying the platform's message.
func (c *Client) CreateCart(ctx context.Context, lines []checkout.CartLine) (*checkout.Cart, error) {
	var req cartRequest
	req.Cart.Lines = make([]cartLineWire, len(lines))
	for i, l := range lines {
		req.Cart.Lines[i] = cartLineWire{MerchandiseID: l.MerchandiseID, Quantity: l.Quantity}
	}

	var resp cartResponse
	if err := c.do(ctx, http.MethodPost, "/carts.json", nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Cart.UserErrors) > 0 {
		return nil, &checkout.GatewayRejectionError{Message: resp.Cart.UserErrors[0].Message}
	}

	subtotal, err := money.Parse(resp.Cart.SubtotalPrice)
	if err != nil {
		return nil, errors.Wrap(err, "cart subtotal")
	}
	return &checkout.Cart{
		ID:       resp.Cart.ID,
		Subtotal: subtotal,
		Currency: resp.Cart.Currency,
	}, nil
}

// CreateDraftOrder creates a provisional order. The idempotency key rides in
// the Idempotency-Key header so a double-submitted checkout cannot produce
// two draft orders.
func (c *Client) CreateDraftOrder(ctx context.Context, in checkout.DraftOrderInput) (*checkout.DraftOrder, error) {
	var req draftOrderRequest
	req.DraftOrder.LineItems = make([]lineItemWire, len(in.Lines))
	for i, l := range in.Lines {
		req.DraftOrder.LineItems[i] = lineItemWire{VariantID: l.VariantID, Quantity: l.Quantity}
	}
	req.DraftOrder.ShippingLine = &shippingLineWire{
		Title: in.Shipping.Title,
		Price: in.Shipping.Price.StringFixed(money.MinorUnits(in.Currency)),
	}
	req.DraftOrder.Note = in.Note
	req.DraftOrder.Currency = in.Currency

	switch {
	case in.CustomerID != "":
		id, err := strconv.ParseInt(in.CustomerID, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "customer id")
		}
		req.DraftOrder.Customer = &customerWire{ID: id}
	case in.Customer != nil:
		req.DraftOrder.Customer = inlineCustomer(*in.Customer)
	}

	headers := http.Header{}
	if in.IdempotencyKey != "" {
		headers.Set("Idempotency-Key", in.IdempotencyKey)
	}

	var resp draftOrderResponse
	if err := c.do(ctx, http.MethodPost, "/draft_orders.json", headers, req, &resp); err != nil {
		return nil, err
	}
	return draftFromWire(resp.DraftOrder)
}

// GetDraftOrder fetches a draft order by id.
func (c *Client) GetDraftOrder(ctx context.Context, id string) (*checkout.DraftOrder, error) {
	var resp draftOrderResponse
	err := c.do(ctx, http.MethodGet, "/draft_orders/"+url.PathEscape(id)+".json", nil, nil, &resp)
	if err != nil {
		return nil, err
	}
	return draftFromWire(resp.DraftOrder)
}

// CompleteDraftOrder asks the platform to promote the draft order. A
// platform report that the draft is already completed is surfaced as
// checkout.ErrAlreadyCompleted so the caller can treat it as success.
func (c *Client) CompleteDraftOrder(ctx context.Context, id, gateway, transactionID, status string) (*checkout.OrderRef, error) {
	var req completeRequest
	req.Payment.Gateway = gateway
	req.Payment.TransactionID = transactionID
	req.Payment.Status = status

	var resp draftOrderResponse
	err := c.do(ctx, http.MethodPut, "/draft_orders/"+url.PathEscape(id)+"/complete.json", nil, req, &resp)
	if err != nil {
		return nil, err
	}

	total, err := money.Parse(resp.DraftOrder.TotalPrice)
	if err != nil {
		return nil, errors.Wrap(err, "draft order total")
	}
	orderID := ""
	if resp.DraftOrder.OrderID != 0 {
		orderID = strconv.FormatInt(resp.DraftOrder.OrderID, 10)
	}
	return &checkout.OrderRef{
		OrderID:  orderID,
		Status:   resp.DraftOrder.Status,
		Total:    total,
		Currency: resp.DraftOrder.Currency,
	}, nil
}

// GetOrder fetches a final order for display enrichment.
func (c *Client) GetOrder(ctx context.Context, id string) (*checkout.OrderRef, error) {
	var resp orderResponse
	err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id)+".json", nil, nil, &resp)
	if err != nil {
		return nil, err
	}

	total, err := money.Parse(resp.Order.TotalPrice)
	if err != nil {
		return nil, errors.Wrap(err, "order total")
	}
	return &checkout.OrderRef{
		OrderID:     strconv.FormatInt(resp.Order.ID, 10),
		OrderNumber: resp.Order.Name,
		Status:      resp.Order.FinancialStatus,
		Total:       total,
		Currency:    resp.Order.Currency,
	}, nil
}

// FindCustomerByEmail searches customers by email, case-insensitively.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*checkout.Customer, error) {
	q := url.Values{"query": {"email:" + strings.ToLower(email)}}

	var resp customerSearchResponse
	err := c.do(ctx, http.MethodGet, "/customers/search.json?"+q.Encode(), nil, nil, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Customers) == 0 {
		return nil, checkout.ErrCustomerNotFound
	}
	found := resp.Customers[0]
	return &checkout.Customer{
		ID:    strconv.FormatInt(found.ID, 10),
		Email: found.Email,
	}, nil
}

// CreateCustomer stores a new platform customer.
func (c *Client) CreateCustomer(ctx context.Context, info checkout.CustomerInfo) (*checkout.Customer, error) {
	req := customerRequest{Customer: *inlineCustomer(info)}

	var resp customerResponse
	if err := c.do(ctx, http.MethodPost, "/customers.json", nil, req, &resp); err != nil {
		return nil, err
	}
	return &checkout.Customer{
		ID:    strconv.FormatInt(resp.Customer.ID, 10),
		Email: resp.Customer.Email,
	}, nil
}

// UpdateCustomer refreshes contact and address fields of a stored customer.
func (c *Client) UpdateCustomer(ctx context.Context, id string, info checkout.CustomerInfo) (*checkout.Customer, error) {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "customer id")
	}
	req := customerRequest{Customer: *inlineCustomer(info)}
	req.Customer.ID = numericID

	var resp customerResponse
	err = c.do(ctx, http.MethodPut, "/customers/"+url.PathEscape(id)+".json", nil, req, &resp)
	if err != nil {
		return nil, err
	}
	return &checkout.Customer{
		ID:    strconv.FormatInt(resp.Customer.ID, 10),
		Email: resp.Customer.Email,
	}, nil
}

// do executes one API call: marshal body, set auth, send, map errors, and
// decode the response into out.
func (c *Client) do(ctx context.Context, method, path string, headers http.Header, in, out any) error {
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
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Access-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &checkout.GatewayRejectionError{
			Message: "commerce platform unavailable",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
		return nil
	}

	return c.mapError(resp)
}

// mapError converts a non-2xx platform response into a typed domain error.
func (c *Client) mapError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp errorResponse
	_ = json.Unmarshal(raw, &errResp)
	detail := errResp.Errors
	if detail == "" {
		detail = strings.TrimSpace(string(raw))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return checkout.ErrOrderNotFound
	case resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(detail), "already"):
		return checkout.ErrAlreadyCompleted
	default:
		return &checkout.GatewayRejectionError{
			Message: translateDetail(detail),
			Cause:   fmt.Errorf("platform returned status %d: %s", resp.StatusCode, detail),
		}
	}
}

// translateDetail turns platform error text into a user-presentable message.
// The raw detail stays in the wrapped cause for logs only.
func translateDetail(detail string) string {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "sold out"), strings.Contains(lower, "inventory"):
		return "One of the items in your cart is no longer available."
	case strings.Contains(lower, "merchandise"), strings.Contains(lower, "variant"):
		return "One of the items in your cart could not be found."
	default:
		return "The order could not be processed. Please try again."
	}
}

func inlineCustomer(info checkout.CustomerInfo) *customerWire {
	addr := &addressWire{
		Address1: info.Address.Address1,
		Address2: info.Address.Address2,
		City:     info.Address.City,
		Zip:      info.Address.PostalCode,
		Country:  info.Address.Country,
		Phone:    info.Phone,
	}
	return &customerWire{
		FirstName:       info.FirstName,
		LastName:        info.LastName,
		Email:           strings.ToLower(info.Email),
		Phone:           info.Phone,
		DefaultAddress:  addr,
		ShippingAddress: addr,
	}
}

func draftFromWire(w draftOrderWire) (*checkout.DraftOrder, error) {
	subtotal, err := money.Parse(w.SubtotalPrice)
	if err != nil {
		return nil, errors.Wrap(err, "draft order subtotal")
	}
	total, err := money.Parse(w.TotalPrice)
	if err != nil {
		return nil, errors.Wrap(err, "draft order total")
	}

	variantIDs := make([]int64, len(w.LineItems))
	for i, li := range w.LineItems {
		variantIDs[i] = li.VariantID
	}

	orderID := ""
	if w.OrderID != 0 {
		orderID = strconv.FormatInt(w.OrderID, 10)
	}

	return &checkout.DraftOrder{
		ID:         strconv.FormatInt(w.ID, 10),
		Subtotal:   subtotal,
		Total:      total,
		Currency:   w.Currency,
		InvoiceURL: w.InvoiceURL,
		OrderID:    orderID,
		VariantIDs: variantIDs,
	}, nil
}
