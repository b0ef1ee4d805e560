package checkout

import "fmt"

// Sentinel errors shared with Gateway implementations.
var (
	// ErrOrderNotFound indicates the referenced draft or final order does not
	// exist on the platform.
	ErrOrderNotFound = fmt.Errorf("order not found")

	// ErrCustomerNotFound indicates no customer matched a lookup.
	ErrCustomerNotFound = fmt.Errorf("customer not found")

	// ErrAlreadyCompleted is returned by Gateway.CompleteDraftOrder when the
	// platform reports the draft order has already been promoted. Promotion
	// treats it as success, not failure.
	ErrAlreadyCompleted = fmt.Errorf("draft order already completed")
)

// ValidationError indicates the caller's input is malformed. Field names the
// first offending input field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q", e.Field)
}

// GatewayRejectionError indicates the remote commerce platform refused a
// request. Message is safe to show to the end user; the wrapped cause is not.
type GatewayRejectionError struct {
	Message string
	Cause   error
}

func (e *GatewayRejectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gateway rejected request: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("gateway rejected request: %s", e.Message)
}

func (e *GatewayRejectionError) Unwrap() error { return e.Cause }
