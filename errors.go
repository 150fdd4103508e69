package magiclink

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeTokenMalformed    = "LOGIN_TOKEN_MALFORMED"
	textCodeTokenBadSignature = "LOGIN_TOKEN_BAD_SIGNATURE"
	textCodeTokenBadPayload   = "LOGIN_TOKEN_BAD_PAYLOAD"
	textCodeTokenBadScope     = "LOGIN_TOKEN_BAD_SCOPE"
	textCodeTokenExpired      = "LOGIN_TOKEN_EXPIRED"
	textCodeTokenBadSubject   = "LOGIN_TOKEN_BAD_SUBJECT"
	textCodeInvalidLoginLink  = "INVALID_LOGIN_LINK"
	textCodeDomainNotAllowed  = "EMAIL_DOMAIN_NOT_ALLOWED"
	textCodeNoAccount         = "ACCOUNT_UNAVAILABLE"
)

// Token verification failures. These sub-reasons exist for abuse monitoring;
// they must never reach an end user. The orchestrator collapses all of them
// into ErrInvalidLoginLink.
var (
	ErrTokenMalformed = goerrors.New("login token is malformed", goerrors.CategoryAuth).
				WithTextCode(textCodeTokenMalformed).
				WithCode(goerrors.CodeUnauthorized)

	ErrTokenBadSignature = goerrors.New("login token signature mismatch", goerrors.CategoryAuth).
				WithTextCode(textCodeTokenBadSignature).
				WithCode(goerrors.CodeUnauthorized)

	ErrTokenBadPayload = goerrors.New("login token payload is not decodable", goerrors.CategoryAuth).
				WithTextCode(textCodeTokenBadPayload).
				WithCode(goerrors.CodeUnauthorized)

	ErrTokenBadScope = goerrors.New("login token scope mismatch", goerrors.CategoryAuth).
				WithTextCode(textCodeTokenBadScope).
				WithCode(goerrors.CodeUnauthorized)

	ErrTokenExpired = goerrors.New("login token is expired", goerrors.CategoryAuth).
			WithTextCode(textCodeTokenExpired).
			WithCode(goerrors.CodeUnauthorized)

	ErrTokenBadSubject = goerrors.New("login token subject is missing or not a string", goerrors.CategoryAuth).
				WithTextCode(textCodeTokenBadSubject).
				WithCode(goerrors.CodeUnauthorized)
)

// ErrInvalidLoginLink is the single user-facing rejection for every token
// verification failure. Keeping one message avoids telling an attacker which
// check tripped.
var ErrInvalidLoginLink = goerrors.New("Invalid or expired login link.", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidLoginLink).
	WithCode(goerrors.CodeUnauthorized)

// ErrDomainNotAllowed rejects emails outside the configured council domain.
// This one is user-correctable, so the message names the problem.
var ErrDomainNotAllowed = goerrors.New("Invalid email domain.", goerrors.CategoryValidation).
	WithTextCode(textCodeDomainNotAllowed).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountUnavailable is returned when a verified identity has no matching
// account, or the account is inactive.
var ErrAccountUnavailable = goerrors.New("User account is not available.", goerrors.CategoryAuth).
	WithTextCode(textCodeNoAccount).
	WithCode(goerrors.CodeUnauthorized)

var tokenErrors = []*goerrors.Error{
	ErrTokenMalformed,
	ErrTokenBadSignature,
	ErrTokenBadPayload,
	ErrTokenBadScope,
	ErrTokenExpired,
	ErrTokenBadSubject,
}

// IsInvalidToken reports whether err is one of the codec's verification
// failures (or the collapsed user-facing rejection).
func IsInvalidToken(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrInvalidLoginLink) {
		return true
	}
	for _, te := range tokenErrors {
		if goerrors.Is(err, te) {
			return true
		}
	}
	return false
}
