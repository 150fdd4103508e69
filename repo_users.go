package magiclink

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account store. The email address is the account identifier;
// lookups and the find-or-create path both key on it.
type Users interface {
	repository.Repository[*User]

	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error)

	GetOrRegister(ctx context.Context, email string) (*User, bool, error)
	GetOrRegisterTx(ctx context.Context, tx bun.IDB, email string) (*User, bool, error)

	TrackLogin(ctx context.Context, user *User) error
	TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the bun-backed account store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

// GetByIdentifierTx looks an account up by email, falling back to username
// for legacy rows where the two ever diverged.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	email := NormalizeEmail(identifier)

	for _, column := range []string{"email", "username"} {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where("?TableAlias."+column+" = ?", email).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) GetOrRegister(ctx context.Context, email string) (*User, bool, error) {
	return a.GetOrRegisterTx(ctx, a.db, email)
}

// GetOrRegisterTx finds the account for an email or creates it. Creation
// races are settled by the unique email constraint: when the insert fails we
// refetch, and only surface the insert error if the refetch also misses.
// New accounts get a deterministic UUID derived from the address.
func (a *users) GetOrRegisterTx(ctx context.Context, tx bun.IDB, email string) (*User, bool, error) {
	email = NormalizeEmail(email)

	user, err := a.GetByIdentifierTx(ctx, tx, email)
	if err == nil {
		return user, false, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	record := &User{
		Email:    email,
		Username: email,
		IsActive: true,
	}
	if id, err := hashid.NewUUID(email); err == nil {
		record.ID = id
	}

	created, createErr := a.Repository.CreateTx(ctx, tx, record)
	if createErr == nil {
		return created, true, nil
	}

	// Lost a concurrent first-login race; the row exists now.
	if user, err := a.GetByIdentifierTx(ctx, tx, email); err == nil {
		return user, false, nil
	}

	return nil, false, createErr
}

func (a *users) TrackLogin(ctx context.Context, user *User) error {
	return a.TrackLoginTx(ctx, a.db, user)
}

// TrackLoginTx stamps the successful-login time.
func (a *users) TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}
