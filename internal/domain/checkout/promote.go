package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/money"
)

// PromoteRequest asks for a draft order to be promoted into a paid order.
// ClaimedAmount is set only for client-reported flows; webhook-driven flows
// pass nil because the platform's own total is authoritative there.
type PromoteRequest struct {
	DraftOrderID    string
	Gateway         string
	TransactionID   string
	Status          string
	ClaimedAmount   *decimal.Decimal
	ClaimedCurrency string
}

// Promote converts a draft order into a final order. It is idempotent: a
// draft that has already been promoted yields the existing order reference,
// whether that is observed up front or reported by the platform when two
// promotion attempts race.
func (s *Service) Promote(ctx context.Context, req PromoteRequest) (*OrderRef, error) {
	if req.DraftOrderID == "" {
		return nil, &ValidationError{Field: "draftOrderId"}
	}

	draft, err := s.gateway.GetDraftOrder(ctx, req.DraftOrderID)
	if err != nil {
		return nil, fmt.Errorf("fetch draft order: %w", err)
	}

	// Already promoted: return the existing order, do not complete twice.
	if draft.OrderID != "" {
		return s.enrich(ctx, &OrderRef{
			OrderID:  draft.OrderID,
			Total:    draft.Total,
			Currency: draft.Currency,
		}), nil
	}

	// Client-supplied amounts are never trusted without reconciliation
	// against the stored draft order total.
	if req.ClaimedAmount != nil {
		currency := req.ClaimedCurrency
		if currency == "" {
			currency = draft.Currency
		}
		if err := money.Reconcile(draft.Total, *req.ClaimedAmount, currency, money.DefaultTolerance); err != nil {
			return nil, err
		}
	}

	ref, err := s.gateway.CompleteDraftOrder(ctx, req.DraftOrderID, req.Gateway, req.TransactionID, req.Status)
	if errors.Is(err, ErrAlreadyCompleted) {
		// Lost a race against a concurrent promotion (e.g. the synchronous
		// completion call vs a webhook). Re-fetch to find the winner's order.
		refetched, ferr := s.gateway.GetDraftOrder(ctx, req.DraftOrderID)
		if ferr != nil || refetched.OrderID == "" {
			zctx.From(ctx).Warn("draft already completed but order ref unavailable",
				zap.String("draft_order_id", req.DraftOrderID), zap.Error(ferr))
			return &OrderRef{Total: draft.Total, Currency: draft.Currency, Status: "completed"}, nil
		}
		return s.enrich(ctx, &OrderRef{
			OrderID:  refetched.OrderID,
			Total:    refetched.Total,
			Currency: refetched.Currency,
		}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete draft order: %w", err)
	}

	return s.enrich(ctx, ref), nil
}

// enrich fetches display fields (order number, currency) for the order.
// Failure is non-fatal; the minimal reference is returned as-is.
func (s *Service) enrich(ctx context.Context, ref *OrderRef) *OrderRef {
	if ref.OrderID == "" {
		return ref
	}
	full, err := s.gateway.GetOrder(ctx, ref.OrderID)
	if err != nil {
		zctx.From(ctx).Debug("order enrichment fetch failed",
			zap.String("order_id", ref.OrderID), zap.Error(err))
		return ref
	}
	if ref.Status != "" && full.Status == "" {
		full.Status = ref.Status
	}
	return full
}
