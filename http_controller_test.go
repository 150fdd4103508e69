package magiclink_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	magiclink "github.com/murweh-lga/go-magiclink"
)

// stubHTTPAuth records session operations without touching cookies.
type stubHTTPAuth struct {
	established []string
	cleared     int
}

func (s *stubHTTPAuth) EstablishSession(c router.Context, sessionToken string) {
	s.established = append(s.established, sessionToken)
}

func (s *stubHTTPAuth) ClearSession(c router.Context) {
	s.cleared++
}

func (s *stubHTTPAuth) SessionFromRequest(c router.Context) (magiclink.Session, error) {
	return nil, errors.New("no session")
}

func (s *stubHTTPAuth) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return hf
	}
}

func (s *stubHTTPAuth) MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error {
	return func(c router.Context, err error) error {
		return err
	}
}

func newTestLoginController(auther magiclink.Authenticator, httpAuth magiclink.HTTPAuthenticator) *magiclink.LoginController {
	return magiclink.NewLoginController(
		magiclink.WithControllerRepo(stubRepoManager{}),
		magiclink.WithControllerAuther(auther),
		magiclink.WithControllerHTTP(httpAuth),
		magiclink.WithControllerConfig(&magiclink.EnvConfig{
			SigningKey:        "test-signing-key",
			TokenExpiryDays:   7,
			SessionExpiration: 24,
			AllowedDomain:     "murweh.qld.gov.au",
			BaseURL:           "https://tools.murweh.qld.gov.au",
			Issuer:            "murweh-lga",
			ContextKey:        "magiclink_session",
		}),
	)
}

func TestNewLoginControllerDefaults(t *testing.T) {
	ctrl := newTestLoginController(new(MockAuthenticator), &stubHTTPAuth{})

	assert.Equal(t, "/login", ctrl.Routes.Login)
	assert.Equal(t, "/login/sent", ctrl.Routes.LinkSent)
	assert.Equal(t, "/magic", ctrl.Routes.Magic)
	assert.Equal(t, "/profile", ctrl.Routes.Profile)
	assert.Equal(t, "login", ctrl.Views.Login)
}

func TestNewLoginControllerRequiresDependencies(t *testing.T) {
	assert.Panics(t, func() {
		magiclink.NewLoginController()
	})

	assert.Panics(t, func() {
		magiclink.NewLoginController(
			magiclink.WithControllerRepo(stubRepoManager{}),
		)
	})
}

func TestLoginShow(t *testing.T) {
	ctrl := newTestLoginController(new(MockAuthenticator), &stubHTTPAuth{})

	ctx := new(MockContext)
	ctx.On("Render", "login", mock.Anything).Return(nil)

	require.NoError(t, ctrl.LoginShow(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostValidation(t *testing.T) {
	t.Run("empty form re-renders with validation errors", func(t *testing.T) {
		ctrl := newTestLoginController(new(MockAuthenticator), &stubHTTPAuth{})

		ctx := new(MockContext)
		ctx.On("Bind", mock.Anything).Return(nil)
		ctx.On("Render", "login", mock.MatchedBy(func(vc router.ViewContext) bool {
			_, ok := vc["validation"]
			return ok
		})).Return(nil)

		require.NoError(t, ctrl.LoginPost(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("address outside the domain re-renders", func(t *testing.T) {
		auther := new(MockAuthenticator)
		ctrl := newTestLoginController(auther, &stubHTTPAuth{})

		ctx := new(MockContext)
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*magiclink.EmailLoginPayload)
			payload.Email = "jane@example.com"
		})
		ctx.On("Render", "login", mock.Anything).Return(nil)

		require.NoError(t, ctrl.LoginPost(ctx))

		auther.AssertNotCalled(t, "StartLogin", mock.Anything, mock.Anything)
	})

	t.Run("orchestrator rejection renders a generic message", func(t *testing.T) {
		auther := new(MockAuthenticator)
		auther.On("StartLogin", mock.Anything, "jane.citizen@murweh.qld.gov.au").
			Return(nil, errors.New("smtp unreachable"))

		ctrl := newTestLoginController(auther, &stubHTTPAuth{})

		ctx := new(MockContext)
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*magiclink.EmailLoginPayload)
			payload.Email = "jane.citizen@murweh.qld.gov.au"
		})
		ctx.On("Render", "login", mock.MatchedBy(func(vc router.ViewContext) bool {
			errs, ok := vc["errors"].(map[string]string)
			return ok && errs["authentication"] == "Invalid or expired login link."
		})).Return(nil)

		require.NoError(t, ctrl.LoginPost(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestMagicLogin(t *testing.T) {
	t.Run("valid link establishes the session and redirects", func(t *testing.T) {
		auther := new(MockAuthenticator)
		auther.On("VerifyLogin", mock.Anything, "good.login.token").
			Return(&magiclink.VerifyLoginResult{
				State:        magiclink.StateSessionEstablished,
				Email:        "jane.citizen@murweh.qld.gov.au",
				SessionToken: "signed.session.token",
			}, nil)

		httpAuth := &stubHTTPAuth{}
		ctrl := newTestLoginController(auther, httpAuth)

		ctx := new(MockContext)
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "token", "").Return("good.login.token")
		ctx.On("Redirect", "/", []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.MagicLogin(ctx))

		require.Len(t, httpAuth.established, 1)
		assert.Equal(t, "signed.session.token", httpAuth.established[0])
		ctx.AssertExpectations(t)
	})

	t.Run("incomplete profile is routed to the profile form", func(t *testing.T) {
		auther := new(MockAuthenticator)
		auther.On("VerifyLogin", mock.Anything, "good.login.token").
			Return(&magiclink.VerifyLoginResult{
				State:                  magiclink.StateSessionEstablished,
				Email:                  "jane.citizen@murweh.qld.gov.au",
				SessionToken:           "signed.session.token",
				NeedsProfileCompletion: true,
			}, nil)

		ctrl := newTestLoginController(auther, &stubHTTPAuth{})

		ctx := new(MockContext)
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "token", "").Return("good.login.token")
		ctx.On("Redirect", "/profile", []int{http.StatusSeeOther}).Return(nil)

		require.NoError(t, ctrl.MagicLogin(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("invalid link renders the login form with the generic message", func(t *testing.T) {
		auther := new(MockAuthenticator)
		auther.On("VerifyLogin", mock.Anything, "bad.login.token").
			Return(nil, magiclink.ErrInvalidLoginLink)

		httpAuth := &stubHTTPAuth{}
		ctrl := newTestLoginController(auther, httpAuth)

		ctx := new(MockContext)
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "token", "").Return("bad.login.token")
		ctx.On("Status", http.StatusBadRequest).Return(ctx)
		ctx.On("Render", "login", mock.MatchedBy(func(vc router.ViewContext) bool {
			errs, ok := vc["errors"].(map[string]string)
			return ok && errs["login"] == "Invalid or expired login link."
		})).Return(nil)

		require.NoError(t, ctrl.MagicLogin(ctx))
		assert.Empty(t, httpAuth.established)
		ctx.AssertExpectations(t)
	})

	t.Run("domain rejection keeps its specific message", func(t *testing.T) {
		auther := new(MockAuthenticator)
		auther.On("VerifyLogin", mock.Anything, "offsite.login.token").
			Return(nil, magiclink.ErrDomainNotAllowed)

		ctrl := newTestLoginController(auther, &stubHTTPAuth{})

		ctx := new(MockContext)
		ctx.On("Context").Return(context.Background())
		ctx.On("Param", "token", "").Return("offsite.login.token")
		ctx.On("Status", http.StatusBadRequest).Return(ctx)
		ctx.On("Render", "login", mock.MatchedBy(func(vc router.ViewContext) bool {
			errs, ok := vc["errors"].(map[string]string)
			return ok && errs["login"] == "Invalid email domain."
		})).Return(nil)

		require.NoError(t, ctrl.MagicLogin(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestLogOut(t *testing.T) {
	httpAuth := &stubHTTPAuth{}
	ctrl := newTestLoginController(new(MockAuthenticator), httpAuth)

	ctx := new(MockContext)
	ctx.On("Redirect", "/", []int{http.StatusTemporaryRedirect}).Return(nil)

	require.NoError(t, ctrl.LogOut(ctx))
	assert.Equal(t, 1, httpAuth.cleared)
	ctx.AssertExpectations(t)
}

func TestProfileShow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := magiclink.NewRepositoryManager(db)

	user, _, err := repo.Users().GetOrRegister(ctx, "jane.citizen@murweh.qld.gov.au")
	require.NoError(t, err)

	ctrl := magiclink.NewLoginController(
		magiclink.WithControllerRepo(repo),
		magiclink.WithControllerAuther(new(MockAuthenticator)),
		magiclink.WithControllerHTTP(&stubHTTPAuth{}),
	)

	session := &magiclink.SessionObject{
		UserID: user.ID.String(),
		Email:  user.Email,
	}

	mockCtx := new(MockContext)
	mockCtx.On("Context").Return(ctx)
	mockCtx.On("Locals", "magiclink_session").Return(session)
	mockCtx.On("Render", "profile", mock.MatchedBy(func(vc router.ViewContext) bool {
		u, ok := vc["user"].(*magiclink.User)
		return ok && u.ID == user.ID && vc["profile"] != nil
	})).Return(nil)

	require.NoError(t, ctrl.ProfileShow(mockCtx))
	mockCtx.AssertExpectations(t)
}
