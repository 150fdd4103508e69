package magiclink

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// NormalizeEmail applies the canonical form used everywhere in this package:
// trimmed and lowercased. Account lookups, the domain gate, and token
// subjects all operate on the normalized address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAllowedEmail reports whether the (normalized) address belongs to the
// organizational domain.
func IsAllowedEmail(email, domain string) bool {
	if domain == "" {
		return false
	}
	return strings.HasSuffix(email, "@"+domain)
}

// ValidateLoginEmail runs the full request-time check: present, shaped like
// an email, and inside the allowed domain.
func ValidateLoginEmail(email, domain string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return ErrDomainNotAllowed.WithMetadata(map[string]any{
			"validation": err.Error(),
		})
	}
	if !IsAllowedEmail(email, domain) {
		return ErrDomainNotAllowed
	}
	return nil
}

// ValidateDomainSuffix builds an ozzo rule enforcing the organizational
// domain, for use inside payload Validate methods.
func ValidateDomainSuffix(domain string) validation.RuleFunc {
	return func(value interface{}) error {
		email, _ := value.(string)
		if !IsAllowedEmail(NormalizeEmail(email), domain) {
			return ErrDomainNotAllowed
		}
		return nil
	}
}
