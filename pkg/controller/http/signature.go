package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/leoric/kbai/pkg/domain/types"
)

// SignatureHeader carries the HMAC-SHA256 of the request body as "sha256=<hex>"
const SignatureHeader = "X-Kbai-Signature-256"

// Sign returns the SignatureHeader value of payload
func Sign(secret types.Secret, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret.Unsafe()))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks signature against payload. An empty secret disables
// verification.
func verifySignature(secret types.Secret, payload []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}

	return hmac.Equal([]byte(signature), []byte(Sign(secret, payload)))
}
