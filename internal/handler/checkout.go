package handler

import (
	"net/http"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

type checkoutItemRequest struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

type shippingInfoRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Address2   string `json:"address2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type checkoutRequest struct {
	Items          []checkoutItemRequest `json:"items"`
	ShippingInfo   shippingInfoRequest   `json:"shippingInfo"`
	ShippingMethod struct {
		Type string `json:"type"`
	} `json:"shippingMethod"`
}

type checkoutResponse struct {
	CheckoutID   string  `json:"checkoutId"`
	CartID       string  `json:"cartId"`
	CustomerID   *string `json:"customerId"`
	Total        string  `json:"total"`
	Subtotal     string  `json:"subtotal"`
	ShippingCost string  `json:"shippingCost"`
	Currency     string  `json:"currency"`
	InvoiceURL   string  `json:"invoiceUrl"`
}

// BeginCheckout handles POST /api/checkout: cart creation, shipping
// resolution, and draft order creation in one step.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]checkout.CartLine, len(req.Items))
	for i, it := range req.Items {
		items[i] = checkout.CartLine{MerchandiseID: it.MerchandiseID, Quantity: it.Quantity}
	}

	session, err := h.checkouts.BeginCheckout(r.Context(), checkout.BeginCheckoutRequest{
		Items: items,
		Customer: checkout.CustomerInfo{
			FirstName: req.ShippingInfo.FirstName,
			LastName:  req.ShippingInfo.LastName,
			Email:     req.ShippingInfo.Email,
			Phone:     req.ShippingInfo.Phone,
			Address: checkout.Address{
				Address1:   req.ShippingInfo.Address,
				Address2:   req.ShippingInfo.Address2,
				City:       req.ShippingInfo.City,
				PostalCode: req.ShippingInfo.PostalCode,
				Country:    req.ShippingInfo.Country,
			},
		},
		Method: checkout.ShippingMethod(req.ShippingMethod.Type),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := checkoutResponse{
		CheckoutID:   session.CheckoutID,
		CartID:       session.CartID,
		Total:        session.Total.String(),
		Subtotal:     session.Subtotal.String(),
		ShippingCost: session.ShippingCost.String(),
		Currency:     session.Currency,
		InvoiceURL:   session.InvoiceURL,
	}
	if session.CustomerID != "" {
		id := session.CustomerID
		resp.CustomerID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}
