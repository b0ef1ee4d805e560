// Package checkout implements the checkout orchestration core: turning a set
// of cart items into a provisional (draft) order on the remote commerce
// platform, and promoting a paid draft order into a final order.
package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartLine is a single requested line item, referencing a merchandise
// (product variant) by its opaque platform identifier.
type CartLine struct {
	MerchandiseID string
	Quantity      int
}

// Address is a postal address as collected at checkout.
type Address struct {
	Address1   string
	Address2   string
	City       string
	PostalCode string
	Country    string
}

// CustomerInfo holds the contact and shipping details collected at checkout.
type CustomerInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   Address
}

// Cart is the denormalized snapshot of a platform-owned cart: its opaque id
// plus the subtotal and currency reported at creation time. Carts are never
// persisted locally.
type Cart struct {
	ID       string
	Subtotal decimal.Decimal
	Currency string
}

// Customer references a stored platform customer.
type Customer struct {
	ID    string
	Email string
}

// DraftOrderLine is one line of a draft order, addressed by the platform's
// numeric variant id.
type DraftOrderLine struct {
	VariantID int64
	Quantity  int
}

// ShippingLine is the shipping method label and cost attached to a draft order.
type ShippingLine struct {
	Title string
	Price decimal.Decimal
}

// DraftOrderInput is the request to create a provisional order.
// Either CustomerID or Customer must be set; CustomerID wins when both are.
type DraftOrderInput struct {
	Lines      []DraftOrderLine
	Shipping   ShippingLine
	CustomerID string
	Customer   *CustomerInfo
	Note       string
	Currency   string

	// IdempotencyKey is a client-generated key forwarded to the platform so a
	// double-submitted checkout cannot create two draft orders.
	IdempotencyKey string
}

// DraftOrder is a provisional, not-yet-paid order held by the platform.
// OrderID is non-empty once the draft has been promoted.
type DraftOrder struct {
	ID         string
	Subtotal   decimal.Decimal
	Total      decimal.Decimal
	Currency   string
	InvoiceURL string
	OrderID    string
	VariantIDs []int64
}

// OrderRef references a final, paid order.
type OrderRef struct {
	OrderID     string
	OrderNumber string
	Status      string
	Total       decimal.Decimal
	Currency    string
}

// Session is the result of a successful checkout creation, carrying
// everything the payment step needs.
type Session struct {
	CheckoutID     string
	CartID         string
	CustomerID     string
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	Total          decimal.Decimal
	Currency       string
	MerchandiseIDs []int64
	InvoiceURL     string
}

// Gateway is the remote commerce platform as seen by the orchestrator.
// Implementations must bound every call with a timeout and fail closed.
type Gateway interface {
	CreateCart(ctx context.Context, lines []CartLine) (*Cart, error)
	CreateDraftOrder(ctx context.Context, in DraftOrderInput) (*DraftOrder, error)
	GetDraftOrder(ctx context.Context, id string) (*DraftOrder, error)
	CompleteDraftOrder(ctx context.Context, id, gateway, transactionID, status string) (*OrderRef, error)
	GetOrder(ctx context.Context, id string) (*OrderRef, error)
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, info CustomerInfo) (*Customer, error)
	UpdateCustomer(ctx context.Context, id string, info CustomerInfo) (*Customer, error)
}
