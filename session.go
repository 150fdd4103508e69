package magiclink

import (
	"time"

	"github.com/google/uuid"
)

// Session holds the attributes of an established auth session.
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

var _ Session = (*SessionObject)(nil)

// SessionObject is the concrete session representation rebuilt from a
// validated session token.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() *time.Time {
	return s.ExpirationDate
}

// sessionFromClaims converts validated session claims into a SessionObject.
func sessionFromClaims(claims *SessionClaims) *SessionObject {
	session := &SessionObject{
		UserID: claims.UID,
		Email:  claims.Email,
		Issuer: claims.Issuer,
	}

	if session.UserID == "" {
		session.UserID = claims.Subject
	}
	if claims.IssuedAt != nil {
		iat := claims.IssuedAt.Time
		session.IssuedAt = &iat
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		session.ExpirationDate = &exp
	}

	return session
}
