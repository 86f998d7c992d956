package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signPair computes the checkout-callback signature: hex HMAC-SHA256
// over "externalOrderID|externalTxnID".
func signPair(secret, externalOrderID, externalTxnID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(externalOrderID + "|" + externalTxnID))
	return hex.EncodeToString(mac.Sum(nil))
}

// signPayload computes the webhook signature: hex HMAC-SHA256 over the
// raw request body.
func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// equalSignatures compares in constant time.
func equalSignatures(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
