package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/webhook"
)

var _ webhook.Ledger = (*WebhookLedger)(nil)

// WebhookLedger implements webhook.Ledger backed by PostgreSQL. Dedup is
// enforced by the UNIQUE (topic, source_id) constraint, not by
// read-then-write: concurrent inserts of the same delivery collapse into
// one row, and the claim UPDATE decides a single processor.
type WebhookLedger struct {
	pool *pgxpool.Pool
}

// NewWebhookLedger returns a WebhookLedger that uses the given pool.
func NewWebhookLedger(pool *pgxpool.Pool) *WebhookLedger {
	return &WebhookLedger{pool: pool}
}

const insertDeliverySQL = `INSERT INTO webhook_deliveries (topic, source_id, payload, status)
	VALUES ($1, $2, $3, 'RECEIVED')
	ON CONFLICT (topic, source_id) DO NOTHING
	RETURNING id, received_at`

const selectDeliverySQL = `SELECT id, status, error, received_at, processed_at
	FROM webhook_deliveries
	WHERE topic = $1 AND source_id = $2`

// Insert records a delivery, or returns the existing record when the
// (topic, source_id) pair has been seen before.
func (l *WebhookLedger) Insert(ctx context.Context, topic, sourceID string, payload []byte) (*webhook.DeliveryRecord, bool, error) {
	rec := &webhook.DeliveryRecord{
		Topic:    topic,
		SourceID: sourceID,
		Payload:  payload,
		Status:   webhook.StatusReceived,
	}

	err := l.pool.QueryRow(ctx, insertDeliverySQL, topic, sourceID, payload).
		Scan(&rec.ID, &rec.ReceivedAt)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("inserting delivery (%s, %s): %w", topic, sourceID, err)
	}

	// Conflict: another delivery of the same notification won the insert.
	var status string
	err = l.pool.QueryRow(ctx, selectDeliverySQL, topic, sourceID).
		Scan(&rec.ID, &status, &rec.Error, &rec.ReceivedAt, &rec.ProcessedAt)
	if err != nil {
		return nil, false, fmt.Errorf("fetching existing delivery (%s, %s): %w", topic, sourceID, err)
	}
	rec.Status = webhook.Status(status)
	return rec, false, nil
}

const claimDeliverySQL = `UPDATE webhook_deliveries
	SET status = 'PROCESSING'
	WHERE id = $1 AND status IN ('RECEIVED', 'FAILED')
	RETURNING id`

// Claim atomically moves the record into PROCESSING. Returns false when a
// concurrent processor already holds it or it has been processed.
func (l *WebhookLedger) Claim(ctx context.Context, id int64) (bool, error) {
	var claimed int64
	err := l.pool.QueryRow(ctx, claimDeliverySQL, id).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claiming delivery %d: %w", id, err)
	}
	return true, nil
}

const markProcessedSQL = `UPDATE webhook_deliveries
	SET status = 'PROCESSED', error = '', processed_at = now()
	WHERE id = $1`

// MarkProcessed finalizes a successfully handled delivery.
func (l *WebhookLedger) MarkProcessed(ctx context.Context, id int64) error {
	if _, err := l.pool.Exec(ctx, markProcessedSQL, id); err != nil {
		return fmt.Errorf("marking delivery %d processed: %w", id, err)
	}
	return nil
}

const markFailedSQL = `UPDATE webhook_deliveries
	SET status = 'FAILED', error = $2, processed_at = now()
	WHERE id = $1`

// MarkFailed records a processing failure. The delivery stays claimable so a
// later redelivery can retry it.
func (l *WebhookLedger) MarkFailed(ctx context.Context, id int64, reason string) error {
	if _, err := l.pool.Exec(ctx, markFailedSQL, id, reason); err != nil {
		return fmt.Errorf("marking delivery %d failed: %w", id, err)
	}
	return nil
}
