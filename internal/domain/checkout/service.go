package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service sequences cart creation, shipping resolution, customer upsert, and
// draft order creation against the remote commerce platform.
type Service struct {
	gateway  Gateway
	shipping ShippingConfig
	currency string

	// newIdempotencyKey is swappable in tests.
	newIdempotencyKey func() string
}

// NewService creates a checkout Service. currency is the store default,
// used when a request carries no explicit override.
func NewService(gateway Gateway, shipping ShippingConfig, currency string) *Service {
	return &Service{
		gateway:           gateway,
		shipping:          shipping,
		currency:          currency,
		newIdempotencyKey: func() string { return uuid.New().String() },
	}
}

// BeginCheckoutRequest holds the validated-to-be input for a checkout attempt.
type BeginCheckoutRequest struct {
	Items    []CartLine
	Customer CustomerInfo
	Method   ShippingMethod
	Currency string
}

// BeginCheckout validates the request, creates a platform cart, resolves the
// shipping cost, upserts the customer (best-effort), and creates a draft
// order. Each step fails independently; no partial rollback is attempted.
func (s *Service) BeginCheckout(ctx context.Context, req BeginCheckoutRequest) (*Session, error) {
	variantIDs, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	cart, err := s.gateway.CreateCart(ctx, req.Items)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	shippingCost, err := s.shipping.Cost(cart.Subtotal, req.Method)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	if cart.Currency != "" {
		currency = cart.Currency
	}

	// Customer upsert is best-effort: a platform failure here must not abort
	// checkout. The draft order falls back to inline customer details.
	customerID := s.upsertCustomer(ctx, req.Customer)

	lines := make([]DraftOrderLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = DraftOrderLine{VariantID: variantIDs[i], Quantity: item.Quantity}
	}

	input := DraftOrderInput{
		Lines: lines,
		Shipping: ShippingLine{
			Title: req.Method.Label(),
			Price: shippingCost,
		},
		CustomerID:     customerID,
		Note:           fmt.Sprintf("Checkout via storefront, shipping: %s", req.Method.Label()),
		Currency:       currency,
		IdempotencyKey: s.newIdempotencyKey(),
	}
	if customerID == "" {
		info := req.Customer
		input.Customer = &info
	}

	draft, err := s.gateway.CreateDraftOrder(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create draft order: %w", err)
	}

	return &Session{
		CheckoutID:     draft.ID,
		CartID:         cart.ID,
		CustomerID:     customerID,
		Subtotal:       cart.Subtotal,
		ShippingCost:   shippingCost,
		Total:          cart.Subtotal.Add(shippingCost),
		Currency:       currency,
		MerchandiseIDs: variantIDs,
		InvoiceURL:     draft.InvoiceURL,
	}, nil
}

// upsertCustomer searches the platform for an existing customer by email and
// updates it, or creates a new one. Returns the customer id, or "" when the
// upsert failed (logged, never surfaced to the shopper).
func (s *Service) upsertCustomer(ctx context.Context, info CustomerInfo) string {
	lg := zctx.From(ctx)

	existing, err := s.gateway.FindCustomerByEmail(ctx, strings.ToLower(info.Email))
	switch {
	case err == nil:
		updated, err := s.gateway.UpdateCustomer(ctx, existing.ID, info)
		if err != nil {
			lg.Warn("customer update failed, continuing with inline customer",
				zap.String("customer_id", existing.ID), zap.Error(err))
			return ""
		}
		return updated.ID
	case errors.Is(err, ErrCustomerNotFound):
		created, err := s.gateway.CreateCustomer(ctx, info)
		if err != nil {
			lg.Warn("customer create failed, continuing with inline customer", zap.Error(err))
			return ""
		}
		return created.ID
	default:
		lg.Warn("customer lookup failed, continuing with inline customer", zap.Error(err))
		return ""
	}
}

// validateRequest checks the request per field order and resolves merchandise
// references to numeric variant ids. It issues no remote calls.
func validateRequest(req BeginCheckoutRequest) ([]int64, error) {
	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items"}
	}
	variantIDs := make([]int64, len(req.Items))
	for i, item := range req.Items {
		if item.MerchandiseID == "" {
			return nil, &ValidationError{Field: "items"}
		}
		if item.Quantity <= 0 {
			return nil, &ValidationError{Field: "items"}
		}
		id, err := variantID(item.MerchandiseID)
		if err != nil {
			return nil, &ValidationError{Field: "items"}
		}
		variantIDs[i] = id
	}

	c := req.Customer
	switch {
	case c.Email == "":
		return nil, &ValidationError{Field: "email"}
	case c.FirstName == "":
		return nil, &ValidationError{Field: "firstName"}
	case c.LastName == "":
		return nil, &ValidationError{Field: "lastName"}
	case c.Address.Address1 == "":
		return nil, &ValidationError{Field: "address"}
	case c.Address.City == "":
		return nil, &ValidationError{Field: "city"}
	case c.Address.PostalCode == "":
		return nil, &ValidationError{Field: "postalCode"}
	}

	return variantIDs, nil
}

// variantID extracts the numeric variant id from a merchandise reference.
// References arrive either as plain numbers or as platform GIDs of the form
// "gid://platform/ProductVariant/123".
func variantID(merchandiseID string) (int64, error) {
	s := merchandiseID
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return strconv.ParseInt(s, 10, 64)
}
