package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/personahub/persona-backend/internal/types"
)

// EventSubscriptionCharged is the webhook event that upgrades a user.
const EventSubscriptionCharged = "subscription.charged"

// SignatureHeader carries the webhook payload signature.
const SignatureHeader = "X-Razorpay-Signature"

// WebhookEvent is a parsed webhook payload.
type WebhookEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity struct {
				ID    string            `json:"id"`
				Notes map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

// UserID returns the user id carried in the subscription notes, if any.
func (e *WebhookEvent) UserID() string {
	return e.Payload.Subscription.Entity.Notes["user_id"]
}

// VerifySignature checks the hex HMAC-SHA256 signature of the raw payload
// against the shared webhook secret, in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook verifies the signature and decodes the event. Payloads with a
// missing or wrong signature are rejected before any parsing of the body is
// trusted.
func ParseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature", types.ErrInvalidSignature)
	}
	if !VerifySignature(payload, signature, secret) {
		return nil, types.ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload", types.ErrValidation)
	}
	return &event, nil
}
