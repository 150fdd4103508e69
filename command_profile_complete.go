package magiclink

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// defaultPhoneRegion is the region used to parse bare local numbers.
const defaultPhoneRegion = "AU"

// CompleteProfileMessage carries the profile-completion form. Saving it
// clears the require_profile_update flag, which is what lets the account
// land on its normal destination on the next login.
type CompleteProfileMessage struct {
	UserID      string `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	JobTitle    string `json:"job_title"`
	Department  string `json:"department"`
	PhoneNumber string `json:"phone_number"`
	Location    string `json:"location"`
	OnResponse  func(resp *CompleteProfileResponse)
}

func (m CompleteProfileMessage) Type() string { return "auth.profile_complete" }

// Validate checks the form fields. Names are mandatory; the phone number,
// when present, must parse as a valid number.
func (m CompleteProfileMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.UserID, validation.Required, is.UUID),
		validation.Field(&m.FirstName, validation.Required, validation.Length(1, 150)),
		validation.Field(&m.LastName, validation.Required, validation.Length(1, 150)),
		validation.Field(&m.JobTitle, validation.Length(0, 100)),
		validation.Field(&m.Department, validation.Length(0, 100)),
		validation.Field(&m.PhoneNumber, validation.Length(0, 50), validation.By(validatePhoneNumber)),
		validation.Field(&m.Location, validation.Length(0, 100)),
	)
}

// CompleteProfileResponse reports the updated records.
type CompleteProfileResponse struct {
	User    *User
	Profile *UserProfile
	Success bool
}

// CompleteProfileHandler persists the profile-completion form.
type CompleteProfileHandler struct {
	Repo RepositoryManager
}

func (h *CompleteProfileHandler) Execute(ctx context.Context, event CompleteProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile completion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CompleteProfileHandler) execute(ctx context.Context, event CompleteProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile form")
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user id")
	}

	resp := &CompleteProfileResponse{}

	err = h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{}
		if err := tx.NewSelect().
			Model(user).
			Where("?TableAlias.id = ?", userID).
			Limit(1).
			Scan(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryNotFound, "account not found")
		}

		user.FirstName = event.FirstName
		user.LastName = event.LastName

		updated, err := h.Repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(userID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account names")
		}
		user = updated

		profile, err := h.Repo.Profiles().GetOrCreateForUserTx(ctx, tx, userID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile")
		}

		profile.JobTitle = event.JobTitle
		profile.Department = event.Department
		profile.PhoneNumber = event.PhoneNumber
		profile.Location = event.Location

		if err := h.Repo.Profiles().MarkCompleteTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save profile")
		}

		profile.RequireProfileUpdate = false
		resp.User = user
		resp.Profile = profile
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile completion transaction failed")
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// validatePhoneNumber accepts empty values and otherwise requires a number
// phonenumbers considers valid for the default region.
func validatePhoneNumber(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}
	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}
	return nil
}
