// Package webhook implements inbound webhook ingestion: authenticity is
// checked at the HTTP boundary, then each delivery is recorded in a
// deduplicating ledger and dispatched by topic.
package webhook

import (
	"context"
	"time"
)

// Topics delivered by the commerce platform.
const (
	TopicOrderPaid        = "orders/paid"
	TopicDraftOrderUpdate = "draft_orders/update"
	TopicProductCreate    = "products/create"
	TopicProductUpdate    = "products/update"
	TopicProductDelete    = "products/delete"
	TopicCollectionUpdate = "collections/update"
)

// Status is the processing state of one delivery.
type Status string

const (
	StatusReceived   Status = "RECEIVED"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusFailed     Status = "FAILED"
)

// DeliveryRecord is one inbound notification as stored in the ledger.
// (topic, source id) is the idempotency key.
type DeliveryRecord struct {
	ID          int64
	Topic       string
	SourceID    string
	Payload     []byte
	Status      Status
	Error       string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// Ledger is the dedup/audit store for deliveries. Implementations must
// enforce uniqueness of (topic, source id) at the storage layer; the
// application never relies on read-then-write.
type Ledger interface {
	// Insert records a new delivery. When a record for (topic, sourceID)
	// already exists, the existing record is returned with created=false.
	Insert(ctx context.Context, topic, sourceID string, payload []byte) (rec *DeliveryRecord, created bool, err error)

	// Claim transitions RECEIVED or FAILED to PROCESSING. It returns false
	// when another worker holds the claim or the record is already processed.
	Claim(ctx context.Context, id int64) (bool, error)

	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// Revalidator invalidates downstream caches for a catalog tag.
type Revalidator interface {
	Revalidate(ctx context.Context, tag string) error
}
