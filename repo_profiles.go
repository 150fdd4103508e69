package magiclink

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles stores the workplace details attached to each account.
type Profiles interface {
	repository.Repository[*UserProfile]

	GetByUser(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error)

	GetOrCreateForUser(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	GetOrCreateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error)

	MarkComplete(ctx context.Context, profile *UserProfile) error
	MarkCompleteTx(ctx context.Context, tx bun.IDB, profile *UserProfile) error
}

type profiles struct {
	repository.Repository[*UserProfile]
	db *bun.DB
}

var (
	_ Profiles                            = (*profiles)(nil)
	_ repository.Repository[*UserProfile] = (*profiles)(nil)
)

// NewProfilesRepository builds the bun-backed profile store.
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*UserProfile](db, repository.ModelHandlers[*UserProfile]{
		NewRecord: func() *UserProfile { return &UserProfile{} },
		GetID: func(p *UserProfile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *UserProfile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) GetByUser(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	return a.GetByUserTx(ctx, a.db, userID)
}

func (a *profiles) GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error) {
	record := &UserProfile{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) GetOrCreateForUser(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	return a.GetOrCreateForUserTx(ctx, a.db, userID)
}

// GetOrCreateForUserTx returns the existing profile or creates the default
// incomplete one. The unique user_id constraint settles concurrent creates
// the same way the account store does.
func (a *profiles) GetOrCreateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*UserProfile, error) {
	profile, err := a.GetByUserTx(ctx, tx, userID)
	if err == nil {
		return profile, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	created, createErr := a.Repository.CreateTx(ctx, tx, NewProfileForUser(userID))
	if createErr == nil {
		return created, nil
	}

	if profile, err := a.GetByUserTx(ctx, tx, userID); err == nil {
		return profile, nil
	}

	return nil, createErr
}

func (a *profiles) MarkComplete(ctx context.Context, profile *UserProfile) error {
	return a.MarkCompleteTx(ctx, a.db, profile)
}

// MarkCompleteTx persists the profile fields and clears the
// require_profile_update flag in one statement.
func (a *profiles) MarkCompleteTx(ctx context.Context, tx bun.IDB, profile *UserProfile) error {
	_, err := tx.NewRaw(`
		UPDATE "user_profiles" AS "prf"
		SET
			"job_title" = ?,
			"department" = ?,
			"phone_number" = ?,
			"location" = ?,
			"require_profile_update" = ?
		WHERE
			("prf".id = ?);
	`, profile.JobTitle, profile.Department, profile.PhoneNumber, profile.Location, false, profile.ID).Exec(ctx)

	return err
}
