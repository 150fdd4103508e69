package magiclink

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the staff account model. The email address doubles as the
// username: the directory is keyed by the address the token authenticates.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	IsActive      bool       `bun:"is_active,notnull,default:true" json:"is_active,omitempty"`
	LoggedInAt    *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Identity accessors so a *User can travel through the session layer.

// IdentityID returns the account id as a string.
func (u *User) IdentityID() string {
	return u.ID.String()
}

// HasCompleteName reports whether both name fields carry something beyond
// whitespace.
func (u *User) HasCompleteName() bool {
	return strings.TrimSpace(u.FirstName) != "" && strings.TrimSpace(u.LastName) != ""
}

// UserProfile carries the workplace details staff fill in on first login.
// Fresh profiles start with RequireProfileUpdate set so the first session is
// routed to the completion form.
type UserProfile struct {
	bun.BaseModel        `bun:"table:user_profiles,alias:prf"`
	ID                   uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID               *uuid.UUID `bun:"user_id,notnull,unique" json:"user_id,omitempty"`
	User                 *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	JobTitle             string     `bun:"job_title" json:"job_title,omitempty"`
	Department           string     `bun:"department" json:"department,omitempty"`
	PhoneNumber          string     `bun:"phone_number" json:"phone_number,omitempty"`
	Location             string     `bun:"location" json:"location,omitempty"`
	RequireProfileUpdate bool       `bun:"require_profile_update,notnull,default:true" json:"require_profile_update,omitempty"`
	CreatedAt            *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt            *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewProfileForUser builds the default profile created alongside a fresh
// account.
func NewProfileForUser(userID uuid.UUID) *UserProfile {
	return &UserProfile{
		UserID:               &userID,
		RequireProfileUpdate: true,
	}
}

// NeedsProfileCompletion decides whether a freshly established session must
// be routed to the profile form instead of the landing page: the profile is
// missing, still flagged for update, or the account has no full name.
func NeedsProfileCompletion(user *User, profile *UserProfile) bool {
	if user == nil {
		return true
	}
	if profile == nil || profile.RequireProfileUpdate {
		return true
	}
	return !user.HasCompleteName()
}
