package magiclink

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Rejection reason tags, surfaced on terminal attempts and in logs. The end
// user only ever sees the generic messages from errors.go.
const (
	RejectDomain         = "domain_rejected"
	RejectInvalidLink    = "invalid_or_expired_link"
	RejectNoAccount      = "no_account"
	RejectDeliveryFailed = "delivery_failed"
)

// StartOutcome distinguishes the two success shapes of StartLogin.
type StartOutcome string

const (
	// OutcomeTokenIssued means a signed link went to the mail channel.
	OutcomeTokenIssued StartOutcome = "token_issued"
	// OutcomeBypassSession means the development bypass established a
	// session with no email involved.
	OutcomeBypassSession StartOutcome = "bypass_session"
)

// StartLoginResult reports what StartLogin did.
type StartLoginResult struct {
	Outcome StartOutcome
	State   AttemptState
	Email   string
	User    *User
	Created bool

	// Token and LinkURL are set for OutcomeTokenIssued.
	Token   string
	LinkURL string

	// SessionToken and NeedsProfileCompletion are set for
	// OutcomeBypassSession.
	SessionToken           string
	NeedsProfileCompletion bool
}

// VerifyLoginResult reports an established session.
type VerifyLoginResult struct {
	State                  AttemptState
	Email                  string
	User                   *User
	SessionToken           string
	NeedsProfileCompletion bool
}

// Authenticator is the login orchestrator surface.
type Authenticator interface {
	StartLogin(ctx context.Context, email string) (*StartLoginResult, error)
	VerifyLogin(ctx context.Context, token string) (*VerifyLoginResult, error)
	SessionFromToken(raw string) (Session, error)
}

// UserStore is the narrow account-store surface the orchestrator needs.
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetOrRegister(ctx context.Context, email string) (*User, bool, error)
	TrackLogin(ctx context.Context, user *User) error
}

// ProfileStore is the narrow profile-store surface the orchestrator needs.
type ProfileStore interface {
	GetOrCreateForUser(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
}

// Auther orchestrates passwordless logins: domain gate, account
// find-or-create, token issuance, verification, and session establishment.
type Auther struct {
	users    UserStore
	profiles ProfileStore
	mailer   Mailer
	codec    *LoginCodec
	sessions TokenService

	domain     string
	baseURL    string
	bypass     bool
	expiryDays int

	logger Logger
	clock  func() time.Time
}

var _ Authenticator = (*Auther)(nil)

// NewAuther wires the orchestrator from a repository manager and config.
func NewAuther(repo RepositoryManager, cfg Config, mailer Mailer) *Auther {
	expiryDays := cfg.GetTokenExpiryDays()

	return &Auther{
		users:      userStoreAdapter{repo.Users()},
		profiles:   profileStoreAdapter{repo.Profiles()},
		mailer:     mailer,
		codec:      NewLoginCodec([]byte(cfg.GetSigningKey()), time.Duration(expiryDays)*24*time.Hour),
		sessions:   NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetSessionExpiration(), cfg.GetIssuer(), cfg.GetAudience(), nil),
		domain:     cfg.GetAllowedDomain(),
		baseURL:    cfg.GetBaseURL(),
		bypass:     cfg.GetBypassLogin(),
		expiryDays: expiryDays,
		logger:     defLogger{},
		clock:      time.Now,
	}
}

// WithLogger overrides the default logger.
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock injects a time source, for tests.
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// WithStores replaces the account and profile stores, for tests or custom
// directory backends.
func (s *Auther) WithStores(users UserStore, profiles ProfileStore) *Auther {
	if users != nil {
		s.users = users
	}
	if profiles != nil {
		s.profiles = profiles
	}
	return s
}

// Codec exposes the login token codec, mostly so applications can mint
// tokens for integration tests.
func (s *Auther) Codec() *LoginCodec {
	return s.codec
}

// StartLogin validates the address against the organizational domain, finds
// or creates the account, and either issues a signed link through the mail
// channel or, in bypass mode, establishes a session on the spot.
func (s *Auther) StartLogin(ctx context.Context, email string) (*StartLoginResult, error) {
	now := s.clock()
	attempt := NewLoginAttempt(now)

	email = NormalizeEmail(email)

	if err := ValidateLoginEmail(email, s.domain); err != nil {
		attempt.Reject(RejectDomain)
		s.logger.Info("login rejected by domain gate", "email", email)
		return nil, err
	}

	user, created, err := s.users.GetOrRegister(ctx, email)
	if err != nil {
		attempt.Reject(RejectNoAccount)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find or create account")
	}

	if created {
		if _, err := s.profiles.GetOrCreateForUser(ctx, user.ID); err != nil {
			s.logger.Warn("failed to create profile for new account", "user_id", user.ID, "error", err)
		}
	}

	result := &StartLoginResult{
		Email:   email,
		User:    user,
		Created: created,
	}

	if s.bypass {
		return s.establishBypassSession(ctx, attempt, result)
	}

	token := s.codec.Encode(email, now)
	url := s.baseURL + "/magic/" + token

	if err := s.mailer.SendLoginLink(ctx, email, url, s.expiryDays); err != nil {
		attempt.Reject(RejectDeliveryFailed)
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to hand login link to mail channel")
	}

	if err := attempt.Transition(StateTokenIssued); err != nil {
		return nil, err
	}

	s.logger.Info("login link issued", "email", email, "created", created)

	result.Outcome = OutcomeTokenIssued
	result.State = attempt.State()
	result.Token = token
	result.LinkURL = url
	return result, nil
}

// VerifyLogin checks a presented token and establishes a session. Every
// token failure collapses to ErrInvalidLoginLink for the caller; the
// sub-reason goes to the log for abuse monitoring.
func (s *Auther) VerifyLogin(ctx context.Context, token string) (*VerifyLoginResult, error) {
	now := s.clock()
	attempt := NewLoginAttempt(now)
	if err := attempt.Transition(StateTokenIssued); err != nil {
		return nil, err
	}

	subject, err := s.codec.Verify(token, now)
	if err != nil {
		attempt.Reject(RejectInvalidLink)
		s.logger.Warn("login token rejected", "reason", tokenRejectionReason(err))
		return nil, ErrInvalidLoginLink
	}

	email := NormalizeEmail(subject)

	// A token signed under an older, looser domain policy must not slip
	// past the current one.
	if !IsAllowedEmail(email, s.domain) {
		attempt.Reject(RejectDomain)
		s.logger.Warn("verified token subject outside allowed domain", "email", email)
		return nil, ErrDomainNotAllowed
	}

	user, err := s.users.GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			attempt.Reject(RejectNoAccount)
			return nil, ErrAccountUnavailable
		}
		attempt.Reject(RejectNoAccount)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	if user == nil || !user.IsActive {
		attempt.Reject(RejectNoAccount)
		return nil, ErrAccountUnavailable
	}

	if err := attempt.Transition(StateVerified); err != nil {
		return nil, err
	}

	sessionToken, err := s.sessions.Generate(user)
	if err != nil {
		attempt.Reject(RejectNoAccount)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint session token")
	}

	if err := s.users.TrackLogin(ctx, user); err != nil {
		s.logger.Warn("failed to track login", "user_id", user.ID, "error", err)
	}

	profile, err := s.profiles.GetOrCreateForUser(ctx, user.ID)
	if err != nil {
		s.logger.Warn("failed to load profile", "user_id", user.ID, "error", err)
	}

	if err := attempt.Transition(StateSessionEstablished); err != nil {
		return nil, err
	}

	s.logger.Info("login verified", "email", email)

	return &VerifyLoginResult{
		State:                  attempt.State(),
		Email:                  email,
		User:                   user,
		SessionToken:           sessionToken,
		NeedsProfileCompletion: NeedsProfileCompletion(user, profile),
	}, nil
}

// SessionFromToken rebuilds a Session from a raw session token.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.sessions.Validate(raw)
	if err != nil {
		s.logger.Error("session token validation failed", "error", err)
		return nil, err
	}
	return sessionFromClaims(claims), nil
}

func (s *Auther) establishBypassSession(ctx context.Context, attempt *LoginAttempt, result *StartLoginResult) (*StartLoginResult, error) {
	sessionToken, err := s.sessions.Generate(result.User)
	if err != nil {
		attempt.Reject(RejectNoAccount)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint bypass session token")
	}

	if err := s.users.TrackLogin(ctx, result.User); err != nil {
		s.logger.Warn("failed to track bypass login", "user_id", result.User.ID, "error", err)
	}

	profile, err := s.profiles.GetOrCreateForUser(ctx, result.User.ID)
	if err != nil {
		s.logger.Warn("failed to load profile", "user_id", result.User.ID, "error", err)
	}

	if err := attempt.Transition(StateSessionEstablished); err != nil {
		return nil, err
	}

	s.logger.Info("bypass session established", "email", result.Email)

	result.Outcome = OutcomeBypassSession
	result.State = attempt.State()
	result.SessionToken = sessionToken
	result.NeedsProfileCompletion = NeedsProfileCompletion(result.User, profile)
	return result, nil
}

// tokenRejectionReason maps a codec failure to its text code for logging.
func tokenRejectionReason(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return "unknown"
}

// userStoreAdapter narrows the Users repository to the orchestrator surface.
type userStoreAdapter struct {
	users Users
}

func (a userStoreAdapter) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userStoreAdapter) GetOrRegister(ctx context.Context, email string) (*User, bool, error) {
	return a.users.GetOrRegister(ctx, email)
}

func (a userStoreAdapter) TrackLogin(ctx context.Context, user *User) error {
	return a.users.TrackLogin(ctx, user)
}

// profileStoreAdapter narrows the Profiles repository likewise.
type profileStoreAdapter struct {
	profiles Profiles
}

func (a profileStoreAdapter) GetOrCreateForUser(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	return a.profiles.GetOrCreateForUser(ctx, userID)
}
