package webhook

import (
	"encoding/hex"
	"fmt"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v72/webhook"
)

// SignatureHeader is the HTTP header carrying the payload signature.
const SignatureHeader = "Stripe-Signature"

// Sign computes the Stripe-Signature header value for payload at time t.
func Sign(payload []byte, secret string, t time.Time) string {
	sig := stripewebhook.ComputeSignature(t, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(sig))
}
