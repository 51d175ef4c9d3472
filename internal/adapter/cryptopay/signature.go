package cryptopay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "crypto-pay-api-signature"

// Sign returns hex HMAC-SHA256 of body keyed by SHA-256 of the API token.
func Sign(token string, body []byte) string {
	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches body for the token.
func VerifySignature(token string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(token, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
