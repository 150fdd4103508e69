package magiclink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// LoginCodec signs and verifies the compact login token:
// base64url(header).base64url(payload).base64url(hmac-sha256), no padding.
// The codec is pure computation over the injected secret; it performs no I/O
// and keeps no state, so one value can be shared across goroutines.
type LoginCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewLoginCodec creates a codec for the given signing secret and token
// time-to-live. Every verifier instance must be constructed with the same
// secret that signed the tokens it will see.
func NewLoginCodec(secret []byte, ttl time.Duration) *LoginCodec {
	return &LoginCodec{secret: secret, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (c *LoginCodec) TTL() time.Duration {
	return c.ttl
}

// Encode builds a signed login token for the subject email. Encoding is
// total: any subject string yields a token.
func (c *LoginCodec) Encode(subject string, now time.Time) string {
	claims := LoginClaims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
		Scope:     LoginTokenScope,
	}
	return c.EncodeClaims(claims)
}

// EncodeClaims signs an explicit claims value. Callers outside tests should
// prefer Encode, which fills the timestamps and scope.
func (c *LoginCodec) EncodeClaims(claims LoginClaims) string {
	header, _ := json.Marshal(tokenHeader{Alg: "HS256", Typ: "JWT"})
	payload, _ := json.Marshal(claims)

	headerB64 := b64urlEncode(header)
	payloadB64 := b64urlEncode(payload)

	sig := c.sign(headerB64 + "." + payloadB64)

	return headerB64 + "." + payloadB64 + "." + b64urlEncode(sig)
}

// Verify checks a raw token and returns the authenticated subject email.
// Checks run in a fixed order and the signature is verified, in constant
// time, before any byte of the payload is interpreted; every failure maps to
// one of the ErrToken* values.
func (c *LoginCodec) Verify(token string, now time.Time) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", ErrTokenMalformed
	}

	actualSig, err := b64urlDecode(parts[2])
	if err != nil {
		return "", ErrTokenBadSignature
	}
	expectedSig := c.sign(parts[0] + "." + parts[1])
	if !hmac.Equal(expectedSig, actualSig) {
		return "", ErrTokenBadSignature
	}

	// Signature holds; the payload is now trusted input.
	payload, err := b64urlDecode(parts[1])
	if err != nil {
		return "", ErrTokenBadPayload
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", ErrTokenBadPayload
	}

	var scope string
	if raw, ok := fields["scope"]; !ok || json.Unmarshal(raw, &scope) != nil || scope != LoginTokenScope {
		return "", ErrTokenBadScope
	}

	var exp int64
	if raw, ok := fields["exp"]; !ok || !isJSONInteger(raw) || json.Unmarshal(raw, &exp) != nil || exp < now.Unix() {
		return "", ErrTokenExpired
	}

	var subject string
	if raw, ok := fields["sub"]; !ok || json.Unmarshal(raw, &subject) != nil {
		return "", ErrTokenBadSubject
	}

	return subject, nil
}

func (c *LoginCodec) sign(signingInput string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return mac.Sum(nil)
}

func b64urlEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func b64urlDecode(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(data)
}

// isJSONInteger reports whether raw is a bare JSON number with no fractional
// or exponent part. `"exp": 12.5` and `"exp": "12"` both fail verification.
func isJSONInteger(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != "-"
}
