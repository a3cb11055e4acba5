package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns lowercase hex of HMAC-SHA256 over payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(secret string, payload []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, b)
}

// VerifyPaymentSignature checks the checkout signature, an HMAC of "order_id|payment_id" keyed with the API secret.
func VerifyPaymentSignature(keySecret, gatewayOrderID, gatewayPaymentID, signature string) error {
	if keySecret == "" || signature == "" {
		return ErrInvalidSignature
	}
	if !verifyHMAC(keySecret, []byte(gatewayOrderID+"|"+gatewayPaymentID), signature) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the raw request body.
func VerifyWebhookSignature(webhookSecret string, body []byte, signature string) error {
	if webhookSecret == "" || signature == "" {
		return ErrInvalidSignature
	}
	if !verifyHMAC(webhookSecret, body, signature) {
		return ErrInvalidSignature
	}
	return nil
}
