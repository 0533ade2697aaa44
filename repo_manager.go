package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
}

func NewRepositoryManager(db *bun.DB, opts ...AccountsOption) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db, opts...),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
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

func (m mngr) Accounts() Accounts {
	return m.accounts
}

// MustConnect verifies the store is reachable before the subsystem starts
// serving requests. The enforcement core must never run against an
// unreachable store, so an exhausted retry budget here is fatal.
func MustConnect(ctx context.Context, db *bun.DB) {
	if err := Connect(ctx, db); err != nil {
		log.Panicf("accounts: storage unreachable at startup: %v", err)
	}
}

// Connect pings the store with the standard retry budget.
func Connect(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return goerrors.New("database handle is required", goerrors.CategoryInternal)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return withStorageRetry(ctx, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
}
