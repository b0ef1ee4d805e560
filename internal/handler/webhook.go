package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/webhook"
)

// Webhook request headers, matching the commerce platform's delivery format.
const (
	headerWebhookSignature = "X-Webhook-Hmac-Sha256"
	headerWebhookTopic     = "X-Webhook-Topic"
	headerWebhookID        = "X-Webhook-Id"
)

type webhookResponse struct {
	Status      string `json:"status"`
	Topic       string `json:"topic"`
	Revalidated bool   `json:"revalidated,omitempty"`
	Tag         string `json:"tag,omitempty"`
}

// IngestWebhook handles POST /api/webhooks. The signature is verified over
// the exact raw body bytes before any parsing or ledger write; an invalid
// signature leaves no trace beyond a log line. Only genuinely transient
// backend failures produce a retryable status.
func (h *Handler) IngestWebhook(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body"})
		return
	}

	topic := r.Header.Get(headerWebhookTopic)

	if !h.verifier.VerifySignature(body, r.Header.Get(headerWebhookSignature)) {
		// The bypass token admits operator-triggered catalog revalidation
		// only. Payment topics always require the platform signature.
		if !h.verifier.VerifyBypass(bearerToken(r)) || isPaymentTopic(topic) {
			lg.Warn("webhook signature verification failed", zap.String("topic", topic))
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid signature"})
			return
		}
	}

	sourceID := r.Header.Get(headerWebhookID)
	if sourceID == "" {
		// Deliveries without an id header still deduplicate on content.
		sum := sha256.Sum256(body)
		sourceID = hex.EncodeToString(sum[:])
	}

	res, err := h.webhooks.Ingest(r.Context(), topic, sourceID, body)
	if err != nil {
		lg.Error("webhook ingestion unavailable", zap.String("topic", topic), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "temporarily unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Status:      "ok",
		Topic:       res.Topic,
		Revalidated: res.Revalidated,
		Tag:         res.Tag,
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return auth[len(prefix):]
}

func isPaymentTopic(topic string) bool {
	switch topic {
	case webhook.TopicOrderPaid, webhook.TopicDraftOrderUpdate:
		return true
	}
	return false
}
