// Package payment implements the adapters for the supported payment
// networks. Adapters turn gateway-specific inputs into promotion requests;
// they never promote a draft order without amount reconciliation having
// passed first.
package payment

import "fmt"

// Gateway names as reported to the commerce platform on promotion.
const (
	GatewayManual = "manual"
	GatewayPayPal = "paypal"
	GatewayWallet = "platform-wallet"
)

// Input carries the gateway-specific fields of a completion request.
type Input struct {
	TransactionID string
	Status        string
	PayerID       string
}

// ErrCredentialsMissing indicates the adapter's own credentials are not
// configured. Operator-actionable; surfaced as an internal error, never as
// user-facing detail.
var ErrCredentialsMissing = fmt.Errorf("payment gateway credentials missing")

// RemoteAuthError indicates the payment network rejected the adapter's own
// credentials or request. Not retried automatically.
type RemoteAuthError struct {
	Gateway    string
	StatusCode int
	Detail     string
}

func (e *RemoteAuthError) Error() string {
	return fmt.Sprintf("%s authentication failed (status %d): %s", e.Gateway, e.StatusCode, e.Detail)
}
