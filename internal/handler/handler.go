// Package handler is the HTTP boundary: request decoding, response
// encoding, and the only place where typed domain errors become HTTP
// status codes. Upstream details (platform error bodies, payment network
// responses, secrets) are logged here but never written to clients.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/money"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/webhook"
)

// CheckoutService is the checkout orchestration surface the handler needs.
type CheckoutService interface {
	BeginCheckout(ctx context.Context, req checkout.BeginCheckoutRequest) (*checkout.Session, error)
	Promote(ctx context.Context, req checkout.PromoteRequest) (*checkout.OrderRef, error)
}

// PayPalFlow is the two-step PayPal authorization surface.
type PayPalFlow interface {
	CreateRemoteOrder(ctx context.Context, draftOrderID string, claimed decimal.Decimal, claimedCurrency string) (string, error)
	ValidateAndComplete(ctx context.Context, draftOrderID, paypalOrderID string, payer payment.PayerInfo, claimed *decimal.Decimal, claimedCurrency string) (*checkout.OrderRef, error)
}

// WebhookIngester processes signature-verified webhook deliveries.
type WebhookIngester interface {
	Ingest(ctx context.Context, topic, sourceID string, payload []byte) (*webhook.Result, error)
}

// Handler implements the service's public HTTP endpoints, delegating
// business logic to the checkout, payment, and webhook services.
type Handler struct {
	checkouts CheckoutService
	paypal    PayPalFlow
	webhooks  WebhookIngester
	verifier  *WebhookVerifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	checkouts CheckoutService,
	paypal PayPalFlow,
	webhooks WebhookIngester,
	verifier *WebhookVerifier,
) *Handler {
	return &Handler{
		checkouts: checkouts,
		paypal:    paypal,
		webhooks:  webhooks,
		verifier:  verifier,
	}
}

// Routes returns the handler's route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/checkout", h.BeginCheckout)
	mux.HandleFunc("POST /api/payment/complete", h.CompletePayment)
	mux.HandleFunc("POST /api/payment/paypal/create-order", h.CreatePayPalOrder)
	mux.HandleFunc("POST /api/webhooks", h.IngestWebhook)
	return mux
}

// errorBody is the JSON error envelope shared by all endpoints.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a typed domain error onto an HTTP status and a redacted
// message. The full error goes to the request-scoped logger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	lg := zctx.From(r.Context())

	var (
		vErr    *checkout.ValidationError
		mmErr   *money.MismatchError
		rejErr  *checkout.GatewayRejectionError
		authErr *payment.RemoteAuthError
	)
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + vErr.Field})
	case errors.As(err, &mmErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "payment amount does not match the order total"})
	case errors.Is(err, checkout.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "order not found"})
	case errors.As(err, &rejErr):
		lg.Warn("gateway rejected request", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: rejErr.Message})
	case errors.Is(err, payment.ErrCredentialsMissing):
		lg.Error("payment credentials missing", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "payment processing is unavailable"})
	case errors.As(err, &authErr):
		lg.Error("payment network rejected credentials", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "payment processing is unavailable"})
	default:
		lg.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// maxBodyBytes caps request bodies on every endpoint.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &checkout.ValidationError{Field: "body"}
	}
	return nil
}
