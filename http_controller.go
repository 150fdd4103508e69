package magiclink

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterLoginRoutes mounts the passwordless login surface on a router.
func RegisterLoginRoutes[T any](app router.Router[T], opts ...LoginControllerOption) {
	controller := NewLoginController(opts...)

	app.
		Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.
		Get(controller.Routes.LinkSent, controller.LinkSentShow).
		SetName("sign-in.sent")

	app.
		Get(fmt.Sprintf("%s/:token", controller.Routes.Magic), controller.MagicLogin).
		SetName("sign-in.magic")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	guard := controller.HTTP.ProtectedRoute(
		controller.HTTP.MakeClientRouteAuthErrorHandler(false),
	)

	app.Get(controller.Routes.Profile, guard(controller.ProfileShow)).
		SetName("profile.get")
	app.Post(controller.Routes.Profile, guard(controller.ProfilePost)).
		SetName("profile.post")
}

// LoginControllerRoutes are the mounted paths.
type LoginControllerRoutes struct {
	Login    string
	LinkSent string
	Magic    string
	Logout   string
	Profile  string
	Landing  string
}

// LoginControllerViews are the template names handed to Render.
type LoginControllerViews struct {
	Login    string
	LinkSent string
	Profile  string
}

// LoginController serves the login form, the magic-link verification
// endpoint, and the profile-completion gate.
type LoginController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       Authenticator
	HTTP         HTTPAuthenticator
	Config       Config
	Routes       *LoginControllerRoutes
	Views        *LoginControllerViews
	ErrorHandler router.ErrorHandler
}

// LoginControllerOption configures the controller.
type LoginControllerOption func(*LoginController) *LoginController

// NewLoginController builds a controller; Repo, Auther, and HTTP are
// mandatory.
func NewLoginController(opts ...LoginControllerOption) *LoginController {
	c := &LoginController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &LoginControllerRoutes{
			Login:    "/login",
			LinkSent: "/login/sent",
			Magic:    "/magic",
			Logout:   "/logout",
			Profile:  "/profile",
			Landing:  "/",
		},
		Views: &LoginControllerViews{
			Login:    "login",
			LinkSent: "link_sent",
			Profile:  "profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in login controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in login controller...")
	}

	if c.HTTP == nil {
		panic("Missing HTTPAuthenticator in login controller...")
	}

	return c
}

// WithController options

func WithControllerRepo(repo RepositoryManager) LoginControllerOption {
	return func(c *LoginController) *LoginController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) LoginControllerOption {
	return func(c *LoginController) *LoginController {
		c.Auther = auther
		return c
	}
}

func WithControllerHTTP(http HTTPAuthenticator) LoginControllerOption {
	return func(c *LoginController) *LoginController {
		c.HTTP = http
		return c
	}
}

func WithControllerConfig(cfg Config) LoginControllerOption {
	return func(c *LoginController) *LoginController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(logger Logger) LoginControllerOption {
	return func(c *LoginController) *LoginController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) LoginControllerOption {
	return func(c *LoginController) *LoginController {
		c.Debug = debug
		return c
	}
}

// LoginShow renders the email form.
func (a *LoginController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// EmailLoginPayload is the login form body.
type EmailLoginPayload struct {
	Email  string `form:"email" json:"email"`
	domain string
}

// Validate runs validation rules, including the organizational domain gate.
func (r EmailLoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
			validation.By(ValidateDomainSuffix(r.domain)),
		),
	)
}

// LoginPost accepts the email form and starts the login flow.
func (a *LoginController) LoginPost(ctx router.Context) error {
	payload := new(EmailLoginPayload)
	errors := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login form parse error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	payload.domain = a.allowedDomain()

	if err := payload.Validate(); err != nil {
		a.Logger.Info("login form rejected", "error", err)
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= LOGIN LINK REQUEST ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=================================")
	}

	var res *RequestLoginLinkResponse

	req := RequestLoginLinkMessage{
		Email: payload.Email,
		OnResponse: func(resp *RequestLoginLinkResponse) {
			res = resp
		},
	}

	requestLink := RequestLoginLinkHandler{Auther: a.Auther}
	if err := requestLink.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("login link request error", "error", err)
		errors["authentication"] = userFacingMessage(err)
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errors,
			"record": payload,
		})
	}

	if res != nil && res.Outcome == OutcomeBypassSession {
		a.HTTP.EstablishSession(ctx, res.Result.SessionToken)

		redirect := a.Routes.Landing
		if res.Result.NeedsProfileCompletion {
			redirect = a.Routes.Profile
		}

		return flash.WithSuccess(ctx, router.ViewContext{
			"system_message": "Logged in automatically (BYPASS_LOGIN is enabled).",
		}).Redirect(redirect, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "We've sent a sign-in link to your email.",
	}).Redirect(a.Routes.LinkSent, fiber.StatusSeeOther)
}

// LinkSentShow renders the confirmation page.
func (a *LoginController) LinkSentShow(ctx router.Context) error {
	return ctx.Render(a.Views.LinkSent, router.ViewContext{})
}

// MagicLogin verifies a presented link token and establishes the session.
func (a *LoginController) MagicLogin(ctx router.Context) error {
	token := ctx.Param("token", "")

	result, err := a.Auther.VerifyLogin(ctx.Context(), token)
	if err != nil {
		a.Logger.Info("magic link rejected", "error", err)
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"login": userFacingMessage(err),
			},
		})
	}

	a.HTTP.EstablishSession(ctx, result.SessionToken)

	redirect := a.Routes.Landing
	if result.NeedsProfileCompletion {
		redirect = a.Routes.Profile
	}

	return ctx.Redirect(redirect, fiber.StatusSeeOther)
}

// LogOut clears the session cookie.
func (a *LoginController) LogOut(ctx router.Context) error {
	a.HTTP.ClearSession(ctx)
	return ctx.Redirect(a.Routes.Landing, fiber.StatusTemporaryRedirect)
}

// ProfileShow renders the profile-completion form for the session account.
func (a *LoginController) ProfileShow(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.contextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), session.GetEmail())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	profile, err := a.Repo.Profiles().GetOrCreateForUser(ctx.Context(), userID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Profile, router.ViewContext{
		"errors":  nil,
		"user":    user,
		"profile": profile,
	})
}

// ProfilePayload is the profile-completion form body.
type ProfilePayload struct {
	FirstName   string `form:"first_name" json:"first_name"`
	LastName    string `form:"last_name" json:"last_name"`
	JobTitle    string `form:"job_title" json:"job_title"`
	Department  string `form:"department" json:"department"`
	PhoneNumber string `form:"phone_number" json:"phone_number"`
	Location    string `form:"location" json:"location"`
}

// ProfilePost saves the profile form and clears the completion gate.
func (a *LoginController) ProfilePost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.contextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(ProfilePayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("profile form parse error", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Profile, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	msg := CompleteProfileMessage{
		UserID:      session.GetUserID(),
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		JobTitle:    payload.JobTitle,
		Department:  payload.Department,
		PhoneNumber: payload.PhoneNumber,
		Location:    payload.Location,
	}

	completeProfile := CompleteProfileHandler{Repo: a.Repo}
	if err := completeProfile.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("profile completion error", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error saving profile",
		}).Render(a.Views.Profile, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Your profile has been updated.",
	}).Redirect(a.Routes.Landing, fiber.StatusSeeOther)
}

func (a *LoginController) allowedDomain() string {
	if a.Config != nil {
		return a.Config.GetAllowedDomain()
	}
	return ""
}

func (a *LoginController) contextKey() string {
	if a.Config != nil {
		return a.Config.GetContextKey()
	}
	return "magiclink_session"
}

// userFacingMessage keeps rejection output generic: rich errors carry their
// already-sanitized message, everything else collapses to the invalid-link
// text.
func userFacingMessage(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case textCodeDomainNotAllowed, textCodeNoAccount, textCodeInvalidLoginLink:
			return richErr.Message
		}
	}
	return ErrInvalidLoginLink.Message
}

func defaultErrHandler(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	return ctx.Status(richErr.Code).Render("errors/500", router.ViewContext{
		"error": richErr,
	})
}
