package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/money"
)

// PayPalOrders is the subset of the PayPal API the adapter needs.
type PayPalOrders interface {
	// CreateOrder creates a CAPTURE-intent order and returns PayPal's order id.
	// referenceID is embedded as the order's custom id for traceability.
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, referenceID string) (string, error)
	// GetOrder returns the order's authoritative amount and currency.
	GetOrder(ctx context.Context, orderID string) (decimal.Decimal, string, error)
}

// DraftOrders fetches draft orders from the commerce platform.
type DraftOrders interface {
	GetDraftOrder(ctx context.Context, id string) (*checkout.DraftOrder, error)
}

// Promoter promotes a draft order into a final order.
type Promoter interface {
	Promote(ctx context.Context, req checkout.PromoteRequest) (*checkout.OrderRef, error)
}

// PayerInfo identifies the PayPal payer on completion.
type PayerInfo struct {
	PayerID string
	Email   string
}

// PayPalAdapter drives the two-step PayPal flow: create a remote PayPal
// order for the draft order's total, then — after client-side approval —
// validate and promote. The client-claimed amount is reconciled against the
// stored draft order total in both steps before anything irreversible runs.
type PayPalAdapter struct {
	orders   PayPalOrders
	drafts   DraftOrders
	promoter Promoter
}

// NewPayPalAdapter creates a PayPalAdapter.
func NewPayPalAdapter(orders PayPalOrders, drafts DraftOrders, promoter Promoter) *PayPalAdapter {
	return &PayPalAdapter{orders: orders, drafts: drafts, promoter: promoter}
}

// CreateRemoteOrder reconciles the claimed amount against the stored draft
// order total, then creates a PayPal order for the trusted total. No PayPal
// order is created when reconciliation fails.
func (a *PayPalAdapter) CreateRemoteOrder(ctx context.Context, checkoutID string, claimed decimal.Decimal, currency string) (string, error) {
	draft, err := a.drafts.GetDraftOrder(ctx, checkoutID)
	if err != nil {
		return "", fmt.Errorf("fetch draft order: %w", err)
	}

	if currency == "" {
		currency = draft.Currency
	}
	if err := money.Reconcile(draft.Total, claimed, currency, money.DefaultTolerance); err != nil {
		return "", err
	}

	orderID, err := a.orders.CreateOrder(ctx, draft.Total, currency, draft.ID)
	if err != nil {
		return "", fmt.Errorf("create paypal order: %w", err)
	}
	return orderID, nil
}

// ValidateAndComplete promotes the draft order after the payer approved the
// PayPal order. When the caller supplies no claimed amount, PayPal's own
// order amount is fetched and used for reconciliation instead.
func (a *PayPalAdapter) ValidateAndComplete(ctx context.Context, draftOrderID, paypalOrderID string, _ PayerInfo, claimed *decimal.Decimal, claimedCurrency string) (*checkout.OrderRef, error) {
	if paypalOrderID == "" {
		return nil, &checkout.ValidationError{Field: "paypalOrderID"}
	}

	if claimed == nil {
		amount, currency, err := a.orders.GetOrder(ctx, paypalOrderID)
		if err != nil {
			return nil, fmt.Errorf("fetch paypal order: %w", err)
		}
		claimed = &amount
		claimedCurrency = currency
	}

	return a.promoter.Promote(ctx, checkout.PromoteRequest{
		DraftOrderID:    draftOrderID,
		Gateway:         GatewayPayPal,
		TransactionID:   paypalOrderID,
		Status:          "paid",
		ClaimedAmount:   claimed,
		ClaimedCurrency: claimedCurrency,
	})
}
