package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

type paypalAmountRequest struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

type completePaymentRequest struct {
	DraftOrderID   string               `json:"draftOrderId"`
	PaymentGateway string               `json:"paymentGateway"`
	TransactionID  string               `json:"transactionId"`
	PayPalOrderID  string               `json:"paypalOrderID"`
	PayPalAmount   *paypalAmountRequest `json:"paypalAmount"`
	PayerID        string               `json:"payerId"`
	PayerEmail     string               `json:"payerEmail"`
}

type completePaymentResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
}

// CompletePayment handles POST /api/payment/complete: it promotes a paid
// draft order into a final order, routing PayPal completions through the
// PayPal adapter so the claimed amount is reconciled first.
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var req completePaymentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DraftOrderID == "" {
		writeError(w, r, &checkout.ValidationError{Field: "draftOrderId"})
		return
	}

	var (
		ref *checkout.OrderRef
		err error
	)
	switch req.PaymentGateway {
	case payment.GatewayPayPal:
		ref, err = h.completePayPal(r, req)
	default:
		ref, err = h.completeManual(r, req)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, completePaymentResponse{
		Success:     true,
		OrderID:     ref.OrderID,
		OrderNumber: ref.OrderNumber,
		Status:      ref.Status,
		Total:       ref.Total.String(),
		Currency:    ref.Currency,
	})
}

func (h *Handler) completePayPal(r *http.Request, req completePaymentRequest) (*checkout.OrderRef, error) {
	paypalOrderID := req.PayPalOrderID
	if paypalOrderID == "" {
		paypalOrderID = req.TransactionID
	}
	if paypalOrderID == "" {
		return nil, &checkout.ValidationError{Field: "paypalOrderID"}
	}

	var (
		claimed  *decimal.Decimal
		currency string
	)
	if req.PayPalAmount != nil {
		amount, err := decimal.NewFromString(req.PayPalAmount.Value)
		if err != nil {
			return nil, &checkout.ValidationError{Field: "paypalAmount"}
		}
		claimed = &amount
		currency = req.PayPalAmount.CurrencyCode
	}

	return h.paypal.ValidateAndComplete(r.Context(), req.DraftOrderID, paypalOrderID,
		payment.PayerInfo{PayerID: req.PayerID, Email: req.PayerEmail}, claimed, currency)
}

func (h *Handler) completeManual(r *http.Request, req completePaymentRequest) (*checkout.OrderRef, error) {
	promoteReq, err := payment.NewManualAdapter(req.PaymentGateway).
		PromotionRequest(req.DraftOrderID, payment.Input{
			TransactionID: req.TransactionID,
			PayerID:       req.PayerID,
		})
	if err != nil {
		return nil, err
	}
	return h.checkouts.Promote(r.Context(), promoteReq)
}

type createPayPalOrderRequest struct {
	CheckoutID string `json:"checkoutId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

type createPayPalOrderResponse struct {
	OrderID    string `json:"orderID"`
	CheckoutID string `json:"checkoutId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// CreatePayPalOrder handles POST /api/payment/paypal/create-order. The
// claimed amount is reconciled against the stored draft order total before
// any PayPal order is created.
func (h *Handler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req createPayPalOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CheckoutID == "" {
		writeError(w, r, &checkout.ValidationError{Field: "checkoutId"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, r, &checkout.ValidationError{Field: "amount"})
		return
	}

	orderID, err := h.paypal.CreateRemoteOrder(r.Context(), req.CheckoutID, amount, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, createPayPalOrderResponse{
		OrderID:    orderID,
		CheckoutID: req.CheckoutID,
		Amount:     req.Amount,
		Currency:   req.Currency,
	})
}
