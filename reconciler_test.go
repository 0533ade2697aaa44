package accounts_test

import (
	"context"
	"errors"
	"testing"

	accounts "github.com/mairena/go-accounts"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReconcilerConfig() *MockConfig {
	cfg := &MockConfig{}
	cfg.On("GetContextKey").Return("user").Maybe()
	cfg.On("GetLoginRoute").Return("/login").Maybe()
	return cfg
}

func sessionForAccount(id uuid.UUID, status accounts.AccountStatus) *accounts.SessionObject {
	return &accounts.SessionObject{
		UserID:        id.String(),
		Email:         "session@example.com",
		StatusAtIssue: status,
	}
}

func TestReconcilerDecisions(t *testing.T) {
	t.Run("active account continues with refreshed record", func(t *testing.T) {
		account := &accounts.Account{ID: uuid.New(), Status: accounts.StatusActive}

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, account.ID.String()).Return(account, nil)

		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig())

		decision := r.Reconcile(context.Background(), sessionForAccount(account.ID, accounts.StatusActive))
		assert.False(t, decision.Terminate)
		assert.Equal(t, account, decision.Refreshed)
	})

	t.Run("stale active claim loses to blocked record", func(t *testing.T) {
		account := &accounts.Account{ID: uuid.New(), Status: accounts.StatusBlocked}

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, account.ID.String()).Return(account, nil)

		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig())

		// the credential still says active; storage wins
		decision := r.Reconcile(context.Background(), sessionForAccount(account.ID, accounts.StatusActive))
		assert.True(t, decision.Terminate)
		assert.Equal(t, accounts.ErrAccountBlocked.Message, decision.Reason)
	})

	t.Run("deleted account is purged then terminated", func(t *testing.T) {
		account := &accounts.Account{ID: uuid.New(), Status: accounts.StatusDeleted}

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, account.ID.String()).Return(account, nil)
		store.On("Purge", mock.Anything, account.ID).Return(nil)

		sink := &capturingSink{}
		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig(),
			accounts.WithReconcilerActivitySink(sink),
		)

		decision := r.Reconcile(context.Background(), sessionForAccount(account.ID, accounts.StatusActive))
		assert.True(t, decision.Terminate)
		assert.Equal(t, accounts.ErrAccountDeleted.Message, decision.Reason)

		purges := sink.byType(accounts.ActivityEventAccountPurged)
		require.Len(t, purges, 1)
		assert.Equal(t, account.ID.String(), purges[0].AccountID)

		store.AssertExpectations(t)
	})

	t.Run("missing account terminates as gone", func(t *testing.T) {
		id := uuid.New()

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, id.String()).
			Return(nil, repository.NewRecordNotFound())

		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig())

		decision := r.Reconcile(context.Background(), sessionForAccount(id, accounts.StatusActive))
		assert.True(t, decision.Terminate)
		assert.Equal(t, accounts.ErrAccountGone.Message, decision.Reason)
	})

	t.Run("storage fault fails open", func(t *testing.T) {
		id := uuid.New()

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, id.String()).
			Return(nil, errors.New("connection refused"))

		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig())

		decision := r.Reconcile(context.Background(), sessionForAccount(id, accounts.StatusActive))
		assert.False(t, decision.Terminate)
		assert.Nil(t, decision.Refreshed)
	})

	t.Run("unknown persisted status terminates", func(t *testing.T) {
		account := &accounts.Account{ID: uuid.New(), Status: accounts.AccountStatus("suspended")}

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, account.ID.String()).Return(account, nil)

		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig())

		decision := r.Reconcile(context.Background(), sessionForAccount(account.ID, accounts.StatusActive))
		assert.True(t, decision.Terminate)
		assert.Equal(t, accounts.ErrInvalidAccountStatus.Message, decision.Reason)
	})

	t.Run("anonymous session continues without storage access", func(t *testing.T) {
		store := &MockAccounts{}

		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig())

		decision := r.Reconcile(context.Background(), nil)
		assert.False(t, decision.Terminate)

		decision = r.Reconcile(context.Background(), &accounts.SessionObject{})
		assert.False(t, decision.Terminate)

		store.AssertNotCalled(t, "GetByIdentifier", mock.Anything, mock.Anything)
	})

	t.Run("purge failure still terminates", func(t *testing.T) {
		account := &accounts.Account{ID: uuid.New(), Status: accounts.StatusDeleted}

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, account.ID.String()).Return(account, nil)
		store.On("Purge", mock.Anything, account.ID).Return(errors.New("delete failed"))

		r := accounts.NewReconciler(store, &MockAuthenticator{}, newReconcilerConfig())

		decision := r.Reconcile(context.Background(), sessionForAccount(account.ID, accounts.StatusActive))
		assert.True(t, decision.Terminate)
		assert.Equal(t, accounts.ErrAccountDeleted.Message, decision.Reason)
	})
}

// reconcilerMockContext pins Path and Context so the middleware can run
// against the stock mock.
type reconcilerMockContext struct {
	*router.MockContext
	path string
}

func (m *reconcilerMockContext) Path() string { return m.path }

func (m *reconcilerMockContext) Context() context.Context { return context.Background() }

func TestReconcilerMiddlewarePassThrough(t *testing.T) {
	runMiddleware := func(t *testing.T, r *accounts.Reconciler, ctx router.Context) bool {
		t.Helper()
		nextCalled := false
		handler := r.Middleware()(func(c router.Context) error {
			nextCalled = true
			return nil
		})
		require.NoError(t, handler(ctx))
		return nextCalled
	}

	t.Run("bypass path skips reconciliation", func(t *testing.T) {
		store := &MockAccounts{}
		auther := &MockAuthenticator{}

		r := accounts.NewReconciler(store, auther, newReconcilerConfig())

		ctx := &reconcilerMockContext{MockContext: router.NewMockContext(), path: "/static/app.css"}

		assert.True(t, runMiddleware(t, r, ctx))
		store.AssertNotCalled(t, "GetByIdentifier", mock.Anything, mock.Anything)
	})

	t.Run("no session cookie passes through", func(t *testing.T) {
		store := &MockAccounts{}
		auther := &MockAuthenticator{}

		r := accounts.NewReconciler(store, auther, newReconcilerConfig())

		ctx := &reconcilerMockContext{MockContext: router.NewMockContext(), path: "/dashboard"}

		assert.True(t, runMiddleware(t, r, ctx))
		auther.AssertNotCalled(t, "SessionFromToken", mock.Anything)
	})

	t.Run("unparseable token left for auth middleware", func(t *testing.T) {
		store := &MockAccounts{}
		auther := &MockAuthenticator{}
		auther.On("SessionFromToken", "bad-token").Return(nil, accounts.ErrTokenMalformed)

		r := accounts.NewReconciler(store, auther, newReconcilerConfig())

		ctx := &reconcilerMockContext{MockContext: router.NewMockContext(), path: "/dashboard"}
		ctx.CookiesM["user"] = "bad-token"

		assert.True(t, runMiddleware(t, r, ctx))
		store.AssertNotCalled(t, "GetByIdentifier", mock.Anything, mock.Anything)
	})

	t.Run("active account continues and caches the record", func(t *testing.T) {
		account := &accounts.Account{ID: uuid.New(), Status: accounts.StatusActive}
		session := sessionForAccount(account.ID, accounts.StatusActive)

		store := &MockAccounts{}
		store.On("GetByIdentifier", mock.Anything, account.ID.String()).Return(account, nil)

		auther := &MockAuthenticator{}
		auther.On("SessionFromToken", "valid-token").Return(session, nil)

		r := accounts.NewReconciler(store, auther, newReconcilerConfig())

		ctx := &reconcilerMockContext{MockContext: router.NewMockContext(), path: "/dashboard"}
		ctx.CookiesM["user"] = "valid-token"
		ctx.On("Locals", "reconciled_account", mock.Anything).Return(account)

		assert.True(t, runMiddleware(t, r, ctx))
		ctx.AssertCalled(t, "Locals", "reconciled_account", mock.Anything)
	})
}
