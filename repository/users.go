package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRepository stores identity service accounts. Generic CRUD comes from
// the embedded repository; login bookkeeping is bespoke.
type UserRepository struct {
	repository.Repository[*User]
	db *bun.DB
}

// NewUserRepository creates a new repository.
func NewUserRepository(db *bun.DB) *UserRepository {
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

	return &UserRepository{
		Repository: repo,
		db:         db,
	}
}

// Create inserts record, assigning an id when missing
func (r *UserRepository) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *UserRepository) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if record == nil {
		return nil, errors.New("user record is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	prepareUserDefaults(record)

	user, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unable to create user")
	}
	return user, nil
}

// GetByID returns the user with id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return user, nil
}

// GetByIdentifier matches identifier against email, then username
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return r.GetByIdentifierTx(ctx, r.db, identifier, criteria...)
}

func (r *UserRepository) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrUserNotFound
	}

	options := []identifierOption{
		{column: "email", value: normalizeIdentifier(identifier)},
		{column: "username", value: identifier},
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, errors.Wrap(err, errors.CategoryInternal, "repository query failed")
		}

		return record, nil
	}

	return nil, ErrUserNotFound
}

// TrackLogin stamps the last successful login
func (r *UserRepository) TrackLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.TrackLoginTx(ctx, r.db, id, at)
}

func (r *UserRepository) TrackLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("loggedin_at = ?", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to track login")
	}
	return nil
}

type identifierOption struct {
	column string
	value  string
}

func prepareUserDefaults(record *User) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = normalizeIdentifier(record.Email)
	record.Username = strings.TrimSpace(record.Username)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func notFoundOr(err error, notFound *errors.Error) error {
	if isNotFound(err) {
		return notFound
	}
	return errors.Wrap(err, errors.CategoryInternal, "repository query failed")
}
