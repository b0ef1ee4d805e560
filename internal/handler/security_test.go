package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	v := NewWebhookVerifier([]byte("secret"), "")
	body := []byte(`{"id": 1}`)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	sum := mac.Sum(nil)

	assert.True(t, v.VerifySignature(body, base64.StdEncoding.EncodeToString(sum)))
	assert.True(t, v.VerifySignature(body, hex.EncodeToString(sum)))
	assert.False(t, v.VerifySignature(body, base64.StdEncoding.EncodeToString([]byte("forged"))))
	assert.False(t, v.VerifySignature(body, "not-a-signature"))
	assert.False(t, v.VerifySignature(body, ""))
	assert.False(t, v.VerifySignature([]byte(`{"id": 2}`), base64.StdEncoding.EncodeToString(sum)))
}

func TestVerifySignature_NoSecretConfigured(t *testing.T) {
	v := NewWebhookVerifier(nil, "")
	body := []byte(`{"id": 1}`)

	mac := hmac.New(sha256.New, nil)
	mac.Write(body)

	assert.False(t, v.VerifySignature(body, base64.StdEncoding.EncodeToString(mac.Sum(nil))),
		"missing secret must fail closed, not verify against an empty key")
}

func TestVerifyBypass(t *testing.T) {
	v := NewWebhookVerifier([]byte("secret"), "op-token")

	assert.True(t, v.VerifyBypass("op-token"))
	assert.False(t, v.VerifyBypass("wrong"))
	assert.False(t, v.VerifyBypass(""))
}

func TestVerifyBypass_Disabled(t *testing.T) {
	v := NewWebhookVerifier([]byte("secret"), "")

	assert.False(t, v.VerifyBypass(""))
	assert.False(t, v.VerifyBypass("anything"))
}
