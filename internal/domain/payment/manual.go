package payment

import (
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

// ManualAdapter serves gateways whose authorization happens entirely
// client-side (a platform wallet button, a manual capture flow). It accepts
// the pre-obtained transaction id and builds the promotion request; the
// amount is still reconciled downstream before the draft order is promoted.
type ManualAdapter struct {
	gateway string
}

// NewManualAdapter creates an adapter reporting the given gateway name
// (GatewayManual or GatewayWallet).
func NewManualAdapter(gateway string) *ManualAdapter {
	if gateway == "" {
		gateway = GatewayManual
	}
	return &ManualAdapter{gateway: gateway}
}

// PromotionRequest validates the client-reported transaction and builds the
// promotion request for it.
func (a *ManualAdapter) PromotionRequest(draftOrderID string, in Input) (checkout.PromoteRequest, error) {
	if in.TransactionID == "" {
		return checkout.PromoteRequest{}, &checkout.ValidationError{Field: "transactionId"}
	}
	status := in.Status
	if status == "" {
		status = "paid"
	}
	return checkout.PromoteRequest{
		DraftOrderID:  draftOrderID,
		Gateway:       a.gateway,
		TransactionID: in.TransactionID,
		Status:        status,
	}, nil
}
