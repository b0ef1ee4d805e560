package webhook

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ErrBadPayload marks a delivery whose body cannot be decoded into the shape
// its topic requires. Redelivery of the same payload cannot succeed, so such
// deliveries are acknowledged after being recorded as FAILED.
var ErrBadPayload = errors.New("malformed webhook payload")

// OrderPaidEvent is the payload shape of order/payment topics. Only the
// fields the promotion path needs are decoded; everything else in the body
// is ignored rather than trusted.
type OrderPaidEvent struct {
	OrderID       string
	DraftOrderID  string
	Gateway       string
	TransactionID string
	Total         decimal.Decimal
	Currency      string
}

// CatalogEvent is the payload shape of product/collection topics.
type CatalogEvent struct {
	ID     string
	Handle string
}

// parseOrderPaid decodes an order-paid payload from the raw delivery bytes.
// Decoding works directly on the received bytes; the payload is never
// re-serialized.
func parseOrderPaid(raw []byte) (*OrderPaidEvent, error) {
	var ev OrderPaidEvent

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return decodeStringOrNumber(d, &ev.OrderID)
		case "draft_order_id":
			return decodeStringOrNumber(d, &ev.DraftOrderID)
		case "gateway":
			s, err := d.Str()
			ev.Gateway = s
			return err
		case "transaction_id", "checkout_token":
			if ev.TransactionID != "" {
				return d.Skip()
			}
			return decodeStringOrNumber(d, &ev.TransactionID)
		case "total_price":
			s, err := d.Str()
			if err != nil {
				return err
			}
			total, err := decimal.NewFromString(s)
			if err != nil {
				return errors.Wrap(err, "total_price")
			}
			ev.Total = total
			return nil
		case "currency":
			s, err := d.Str()
			ev.Currency = s
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: decode order payload: %v", ErrBadPayload, err)
	}

	if ev.DraftOrderID == "" {
		return nil, fmt.Errorf("%w: order payload missing draft_order_id", ErrBadPayload)
	}
	return &ev, nil
}

// parseCatalog decodes a product/collection payload.
func parseCatalog(raw []byte) (*CatalogEvent, error) {
	var ev CatalogEvent

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return decodeStringOrNumber(d, &ev.ID)
		case "handle":
			s, err := d.Str()
			ev.Handle = s
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: decode catalog payload: %v", ErrBadPayload, err)
	}
	return &ev, nil
}

// decodeStringOrNumber tolerates platform payloads that send ids as either
// JSON strings or numbers.
func decodeStringOrNumber(d *jx.Decoder, dst *string) error {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		*dst = s
		return nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		*dst = n.String()
		return nil
	default:
		return d.Skip()
	}
}
