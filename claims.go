package magiclink

import "time"

// LoginTokenScope marks a token as an email login token. Tokens carrying any
// other scope are rejected even when the signature checks out, so a signing
// key shared with other token types cannot be cross-purposed.
const LoginTokenScope = "email_login"

// tokenHeader is the fixed JOSE-style header for login tokens.
type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// LoginClaims is the payload embedded in a login token. Field order matters:
// json.Marshal emits struct fields in declaration order and the wire format
// pins {"sub","iat","exp","scope"}.
type LoginClaims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Scope     string `json:"scope"`
	// TokenID is a reserved slot for a future revocation denylist. It is
	// never populated today and stays off the wire while empty.
	TokenID string `json:"jti,omitempty"`
}

// Expired reports whether the claims are past their expiry at the given
// instant. A token expiring exactly now is still good.
func (c LoginClaims) Expired(now time.Time) bool {
	return c.ExpiresAt < now.Unix()
}
