package checkout

import (
	"github.com/shopspring/decimal"
)

// ShippingMethod enumerates the supported delivery options.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// ShippingConfig holds the flat-rate shipping table. Cost resolution is a
// pure lookup; no remote call is involved.
type ShippingConfig struct {
	// FreeThreshold is the cart subtotal at or above which standard shipping
	// is free.
	FreeThreshold decimal.Decimal
	StandardRate  decimal.Decimal
	ExpressRate   decimal.Decimal
}

// DefaultShippingConfig returns the store's default shipping table:
// free standard shipping from 50, otherwise 5.99; express always 12.99.
func DefaultShippingConfig() ShippingConfig {
	return ShippingConfig{
		FreeThreshold: decimal.NewFromInt(50),
		StandardRate:  decimal.RequireFromString("5.99"),
		ExpressRate:   decimal.RequireFromString("12.99"),
	}
}

// Cost resolves the shipping cost for a cart subtotal and requested method.
func (c ShippingConfig) Cost(subtotal decimal.Decimal, method ShippingMethod) (decimal.Decimal, error) {
	switch method {
	case ShippingStandard:
		if subtotal.GreaterThanOrEqual(c.FreeThreshold) {
			return decimal.Zero, nil
		}
		return c.StandardRate, nil
	case ShippingExpress:
		return c.ExpressRate, nil
	default:
		return decimal.Decimal{}, &ValidationError{Field: "shippingMethod"}
	}
}

// Label returns the human-readable shipping line title for the method.
func (m ShippingMethod) Label() string {
	switch m {
	case ShippingExpress:
		return "Express Shipping"
	default:
		return "Standard Shipping"
	}
}
