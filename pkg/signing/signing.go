// Package signing implements the request signature scheme used by the Tradernet API.
package signing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradernet/errs"
)

// Header names carrying the signed request credentials.
const (
	HeaderPublicKey = "X-NtApi-PublicKey"
	HeaderTimestamp = "X-NtApi-Timestamp"
	HeaderSignature = "X-NtApi-Sig"
)

// Sign returns the lowercase hex HMAC-SHA256 of message keyed by secret.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Stringify renders v as compact JSON with sorted map keys.
// The same bytes are signed and transmitted.
func Stringify(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errs.New("signing.stringify", errs.CodeSerialization,
			errs.WithMessage("encode payload"), errs.WithCause(err))
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Headers is the immutable credential set attached to a signed call.
type Headers struct {
	PublicKey string
	Timestamp string
	Signature string
}

// NewHeaders signs payload+timestamp with the private key.
// Pass an empty payload for timestamp-only signatures.
func NewHeaders(public, private, timestamp, payload string) Headers {
	return Headers{
		PublicKey: public,
		Timestamp: timestamp,
		Signature: Sign(private, payload+timestamp),
	}
}

// Apply writes the three credential headers into h.
func (s Headers) Apply(h http.Header) {
	h.Set(HeaderPublicKey, s.PublicKey)
	h.Set(HeaderTimestamp, s.Timestamp)
	h.Set(HeaderSignature, s.Signature)
}

// Query returns the credentials as websocket query parameters.
func (s Headers) Query() url.Values {
	q := url.Values{}
	q.Set(HeaderPublicKey, s.PublicKey)
	q.Set(HeaderTimestamp, s.Timestamp)
	q.Set(HeaderSignature, s.Signature)
	return q
}
