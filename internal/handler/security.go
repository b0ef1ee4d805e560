package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// WebhookVerifier authenticates inbound webhook deliveries. The signature is
// an HMAC-SHA256 over the exact raw request body; the bypass token admits
// operator-triggered revalidation calls that carry no platform signature.
type WebhookVerifier struct {
	secret      []byte
	bypassToken string
}

// NewWebhookVerifier creates a verifier with the shared webhook secret and
// the optional revalidation bypass token. An empty bypass token disables the
// bypass entirely.
func NewWebhookVerifier(secret []byte, bypassToken string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, bypassToken: bypassToken}
}

// VerifySignature checks the provided signature against the HMAC-SHA256 of
// the raw body bytes. The body is hashed exactly as received; signatures are
// accepted in base64 (the platform's convention) or hex. Comparison is
// constant-time to prevent timing side-channels.
func (v *WebhookVerifier) VerifySignature(body []byte, signature string) bool {
	if len(v.secret) == 0 || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil {
		if subtle.ConstantTimeCompare(expected, decoded) == 1 {
			return true
		}
	}
	if decoded, err := hex.DecodeString(signature); err == nil {
		if subtle.ConstantTimeCompare(expected, decoded) == 1 {
			return true
		}
	}
	return false
}

// VerifyBypass checks the operator revalidation token. Exact match,
// constant-time. Callers must restrict bypassed requests to catalog topics.
func (v *WebhookVerifier) VerifyBypass(token string) bool {
	if v.bypassToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.bypassToken), []byte(token)) == 1
}
