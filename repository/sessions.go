package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionRepository stores session records. Revocation and sweeping are
// conditional updates written against bun directly.
type SessionRepository struct {
	repository.Repository[*Session]
	db *bun.DB
}

// NewSessionRepository creates a new repository.
func NewSessionRepository(db *bun.DB) *SessionRepository {
	repo := repository.NewRepository[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(s *Session) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Session, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &SessionRepository{
		Repository: repo,
		db:         db,
	}
}

// Create inserts record, assigning an id when missing
func (r *SessionRepository) Create(ctx context.Context, record *Session, criteria ...repository.InsertCriteria) (*Session, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *SessionRepository) CreateTx(ctx context.Context, tx bun.IDB, record *Session, criteria ...repository.InsertCriteria) (*Session, error) {
	if record == nil || record.UserID == uuid.Nil {
		return nil, errors.New("session requires a user", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.ExpiresAt = record.ExpiresAt.UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	session, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unable to create session")
	}
	return session, nil
}

// GetByID returns the session with id, revoked or not
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err, ErrSessionNotFound)
	}
	return session, nil
}

// Revoke marks the session revoked. It reports false when the session was
// unknown or already revoked.
func (r *SessionRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Session)(nil)).
		Set("revoked_at = ?", at.UTC()).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "unable to revoke session")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "unable to revoke session")
	}
	return n > 0, nil
}

// RevokeUser revokes every live session of userID and returns their ids
func (r *SessionRepository) RevokeUser(ctx context.Context, userID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.NewSelect().
		Model((*Session)(nil)).
		Column("id").
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unable to list user sessions")
	}

	if len(ids) == 0 {
		return ids, nil
	}

	_, err = r.db.NewUpdate().
		Model((*Session)(nil)).
		Set("revoked_at = ?", at.UTC()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unable to revoke user sessions")
	}

	return ids, nil
}

// DeleteExpired removes sessions that expired or were revoked before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	res, err := r.db.NewDelete().
		Model((*Session)(nil)).
		Where("expires_at < ?", now).
		WhereOr("revoked_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "unable to delete expired sessions")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "unable to delete expired sessions")
	}
	return int(n), nil
}
