package webhook

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/money"
)

// Promoter promotes a draft order into a final order.
type Promoter interface {
	Promote(ctx context.Context, req checkout.PromoteRequest) (*checkout.OrderRef, error)
}

// Result describes the outcome of one ingested delivery for the HTTP layer.
type Result struct {
	Topic       string
	Duplicate   bool
	Handled     bool
	Revalidated bool
	Tag         string
	OrderRef    *checkout.OrderRef
}

// Service records deliveries in the ledger and dispatches them by topic.
// Signature verification has already happened by the time Ingest runs.
type Service struct {
	ledger      Ledger
	promoter    Promoter
	revalidator Revalidator
}

// NewService creates a webhook Service.
func NewService(ledger Ledger, promoter Promoter, revalidator Revalidator) *Service {
	return &Service{ledger: ledger, promoter: promoter, revalidator: revalidator}
}

// Ingest processes one signature-verified delivery. Deliveries are
// deduplicated on (topic, source id): an already-processed delivery
// short-circuits with success and no side effects. A returned error means
// the backend is genuinely unavailable and the caller should signal
// "retry later"; handler-level failures are recorded in the ledger and
// acknowledged so the platform does not retry forever.
func (s *Service) Ingest(ctx context.Context, topic, sourceID string, payload []byte) (*Result, error) {
	lg := zctx.From(ctx)
	res := &Result{Topic: topic}

	rec, created, err := s.ledger.Insert(ctx, topic, sourceID, payload)
	if err != nil {
		return nil, errors.Wrap(err, "record delivery")
	}
	if !created && rec.Status == StatusProcessed {
		lg.Info("duplicate delivery short-circuited",
			zap.String("topic", topic), zap.String("source_id", sourceID))
		res.Duplicate = true
		return res, nil
	}

	claimed, err := s.ledger.Claim(ctx, rec.ID)
	if err != nil {
		return nil, errors.Wrap(err, "claim delivery")
	}
	if !claimed {
		// A concurrent worker holds this delivery; ack and let it finish.
		res.Duplicate = true
		return res, nil
	}

	if err := s.dispatch(ctx, res, topic, payload); err != nil {
		if markErr := s.ledger.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			lg.Error("mark delivery failed", zap.Int64("delivery_id", rec.ID), zap.Error(markErr))
		}
		if isPermanent(err) {
			// Not the platform's fault and retrying cannot help; ack so the
			// delivery is not redelivered forever. The FAILED ledger row is
			// the operator's signal.
			lg.Warn("delivery processing failed permanently",
				zap.String("topic", topic), zap.String("source_id", sourceID), zap.Error(err))
			return res, nil
		}
		return nil, err
	}

	if err := s.ledger.MarkProcessed(ctx, rec.ID); err != nil {
		return nil, errors.Wrap(err, "mark delivery processed")
	}
	return res, nil
}

// dispatch routes the delivery by topic. Unknown topics are acknowledged and
// ignored so they can never cause a retry storm.
func (s *Service) dispatch(ctx context.Context, res *Result, topic string, payload []byte) error {
	switch topic {
	case TopicOrderPaid, TopicDraftOrderUpdate:
		ev, err := parseOrderPaid(payload)
		if err != nil {
			return err
		}
		// The platform's own report is authoritative here; no client-claimed
		// amount exists to reconcile against.
		ref, err := s.promoter.Promote(ctx, checkout.PromoteRequest{
			DraftOrderID:  ev.DraftOrderID,
			Gateway:       ev.Gateway,
			TransactionID: ev.TransactionID,
			Status:        "paid",
		})
		if err != nil {
			return fmt.Errorf("promote draft order %s: %w", ev.DraftOrderID, err)
		}
		res.Handled = true
		res.OrderRef = ref
		return nil

	case TopicProductCreate, TopicProductUpdate, TopicProductDelete:
		s.logCatalogChange(ctx, payload)
		return s.revalidate(ctx, res, "products")

	case TopicCollectionUpdate:
		s.logCatalogChange(ctx, payload)
		return s.revalidate(ctx, res, "collections")

	default:
		zctx.From(ctx).Info("ignoring unknown webhook topic", zap.String("topic", topic))
		return nil
	}
}

// logCatalogChange records which catalog entity changed. Revalidation does
// not depend on the payload, so a malformed body is logged, not fatal.
func (s *Service) logCatalogChange(ctx context.Context, payload []byte) {
	ev, err := parseCatalog(payload)
	if err != nil {
		zctx.From(ctx).Warn("undecodable catalog payload", zap.Error(err))
		return
	}
	if ev.ID != "" || ev.Handle != "" {
		zctx.From(ctx).Info("catalog change",
			zap.String("id", ev.ID), zap.String("handle", ev.Handle))
	}
}

func (s *Service) revalidate(ctx context.Context, res *Result, tag string) error {
	if err := s.revalidator.Revalidate(ctx, tag); err != nil {
		return fmt.Errorf("revalidate %s: %w", tag, err)
	}
	res.Handled = true
	res.Revalidated = true
	res.Tag = tag
	return nil
}

// isPermanent reports whether the processing error cannot be fixed by the
// platform redelivering the same payload. Malformed payloads, unknown
// orders, and amount mismatches stay broken on retry.
func isPermanent(err error) bool {
	var (
		vErr *checkout.ValidationError
		mm   *money.MismatchError
	)
	switch {
	case errors.Is(err, ErrBadPayload):
		return true
	case errors.Is(err, checkout.ErrOrderNotFound):
		return true
	case errors.As(err, &vErr), errors.As(err, &mm):
		return true
	}
	return false
}
