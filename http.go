package magiclink

import (
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// HTTPAuthenticator is the HTTP-facing session surface used by the login
// controller.
type HTTPAuthenticator interface {
	EstablishSession(c router.Context, sessionToken string)
	ClearSession(c router.Context)
	SessionFromRequest(c router.Context) (Session, error)
	ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc
	MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error
}

// RouteAuthenticator implements HTTPAuthenticator over the session cookie.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

// NewHTTPAuthenticator builds the cookie-session layer.
func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetSessionExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetSessionExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// EstablishSession sets the session cookie.
func (a *RouteAuthenticator) EstablishSession(c router.Context, sessionToken string) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    sessionToken,
		Expires:  time.Now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ClearSession expires the session cookie.
func (a *RouteAuthenticator) ClearSession(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// SessionFromRequest validates the session cookie and rebuilds the session.
func (a *RouteAuthenticator) SessionFromRequest(c router.Context) (Session, error) {
	raw := c.Cookies(a.cfg.GetContextKey())
	if raw == "" {
		return nil, goerrors.New("no session cookie", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}
	return a.auth.SessionFromToken(raw)
}

// ProtectedRoute guards a route behind a valid session cookie. The session
// lands in Locals under the configured context key.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.ErrorHandler
	}
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			session, err := a.SessionFromRequest(ctx)
			if err != nil {
				return errorHandler(ctx, err)
			}

			ctx.Locals(a.cfg.GetContextKey(), session)

			return hf(ctx)
		}
	}
}

// MakeClientRouteAuthErrorHandler builds the error handler for client-facing
// routes: optional auth proceeds, mandatory auth redirects to login.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error {
	return func(ctx router.Context, err error) error {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "invalid session").
				WithCode(goerrors.CodeUnauthorized)
		}

		if optionalAuth {
			a.Logger.Info("optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"auth error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		statusCode := http.StatusSeeOther
		if c.Method() == string(router.GET) {
			statusCode = http.StatusFound
		}
		return c.Redirect("/login", statusCode)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

// GetRouterSession retrieves the session a ProtectedRoute stored in Locals.
func GetRouterSession(c router.Context, key string) (Session, error) {
	value := c.Locals(key)
	if value == nil {
		return nil, goerrors.New("unable to find session", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	session, ok := value.(Session)
	if !ok {
		return nil, goerrors.New("unable to decode session", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	return session, nil
}
