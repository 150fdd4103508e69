package magiclink

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RequestLoginLinkMessage asks for a sign-in link (or a bypass session) for
// an email address.
type RequestLoginLinkMessage struct {
	Email      string `json:"email" example:"jane.citizen@murweh.qld.gov.au" doc:"Staff work email."`
	OnResponse func(resp *RequestLoginLinkResponse)
}

func (m RequestLoginLinkMessage) Type() string { return "auth.login_link_request" }

// RequestLoginLinkResponse reports the start-login outcome.
type RequestLoginLinkResponse struct {
	Outcome StartOutcome
	Result  *StartLoginResult
	Success bool
}

// RequestLoginLinkHandler executes login-link requests against the
// orchestrator.
type RequestLoginLinkHandler struct {
	Auther Authenticator
}

func (h *RequestLoginLinkHandler) Execute(ctx context.Context, event RequestLoginLinkMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login link request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestLoginLinkHandler) execute(ctx context.Context, event RequestLoginLinkMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	result, err := h.Auther.StartLogin(ctx, event.Email)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to start login")
	}

	if event.OnResponse != nil {
		event.OnResponse(&RequestLoginLinkResponse{
			Outcome: result.Outcome,
			Result:  result,
			Success: true,
		})
	}

	return nil
}
