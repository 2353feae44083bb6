package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Manager groups the identity service repositories over one DB
type Manager interface {
	repository.Validator
	repository.TransactionManager
	Users() *UserRepository
	Sessions() *SessionRepository
	DB() *bun.DB
}

type mngr struct {
	db       *bun.DB
	users    *UserRepository
	sessions *SessionRepository
}

func NewRepositoryManager(db *bun.DB) Manager {
	return &mngr{
		db:       db,
		users:    NewUserRepository(db),
		sessions: NewSessionRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() *UserRepository {
	return m.users
}

func (m mngr) Sessions() *SessionRepository {
	return m.sessions
}

func (m mngr) DB() *bun.DB {
	return m.db
}
