package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// AccountTracker is the slice of the store the identity provider needs.
type AccountTracker interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	Purge(ctx context.Context, id uuid.UUID) error
}

// AccountProvider resolves identities against the account store and applies
// the status admission rules: blocked accounts are rejected, deleted accounts
// are purged and rejected with a re-registration hint.
type AccountProvider struct {
	store        AccountTracker
	logger       Logger
	activitySink ActivitySink
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountTracker) *AccountProvider {
	return &AccountProvider{
		store:        store,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// WithActivitySink configures an ActivitySink for purge events.
func (p *AccountProvider) WithActivitySink(sink ActivitySink) *AccountProvider {
	p.activitySink = normalizeActivitySink(sink)
	return p
}

// VerifyIdentity will find the account, enforce its lifecycle status,
// compare the password, and return the identity.
//
// The status check runs before the password comparison: observing a deleted
// account is what triggers its lazy purge, and that must happen whether or
// not the caller knew the password.
func (p AccountProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	var account *Account
	err := withStorageRetry(ctx, func(ctx context.Context) error {
		var lookupErr error
		account, lookupErr = p.store.GetByEmail(ctx, identifier)
		return lookupErr
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrNotRegistered
		}
		return nil, ErrStorageUnavailable.WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}

	if err := p.enforceStatus(ctx, account); err != nil {
		return nil, err
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := p.store.TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login: %v", err)
	}

	return accountIdentity{
		id:          account.ID.String(),
		email:       account.Email,
		displayName: account.DisplayName,
		status:      account.Status,
	}, nil
}

// FindIdentityByIdentifier resolves an identity without credential checks.
// Used to rehydrate identities from validated sessions.
func (p AccountProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := p.enforceStatus(ctx, account); err != nil {
		return nil, err
	}

	return accountIdentity{
		id:          account.ID.String(),
		email:       account.Email,
		displayName: account.DisplayName,
		status:      account.Status,
	}, nil
}

func (p AccountProvider) enforceStatus(ctx context.Context, account *Account) error {
	if account == nil {
		return ErrNotRegistered
	}

	account.EnsureStatus()

	if account.IsDeleted() {
		if err := p.store.Purge(ctx, account.ID); err != nil {
			p.logger.Error("failed to purge deleted account %s: %v", account.ID, err)
			return ErrStorageUnavailable.WithMetadata(map[string]any{
				"cause": err.Error(),
			})
		}

		p.recordPurge(ctx, account)
		return ErrAccountDeleted
	}

	return statusAuthError(account.Status)
}

func (p AccountProvider) recordPurge(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType:  ActivityEventAccountPurged,
		Actor:      ActorRef{Type: "system"},
		AccountID:  account.ID.String(),
		FromStatus: StatusDeleted,
	}

	if err := normalizeActivitySink(p.activitySink).Record(ctx, event); err != nil {
		p.logger.Warn("activity sink record error: %v", err)
	}
}

type accountIdentity struct {
	id          string
	email       string
	displayName string
	status      AccountStatus
}

func (a accountIdentity) ID() string {
	return a.id
}

func (a accountIdentity) DisplayName() string {
	return a.displayName
}

func (a accountIdentity) Email() string {
	return a.email
}

func (a accountIdentity) Status() AccountStatus {
	if a.status == "" {
		return StatusActive
	}
	return a.status
}

var _ Identity = accountIdentity{}
