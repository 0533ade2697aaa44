package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	UseHashid   bool
	OnResponse  func(*Account)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountHandler struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
}

// NewRegisterAccountHandler will create the registration command handler.
func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *RegisterAccountHandler) WithLogger(l Logger) *RegisterAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

// execute runs the registration in one transaction. An email held by a
// deleted account does not block registration: the stale row is purged and
// the email is reused. Active and blocked holders do block it.
func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		email := NormalizeEmail(event.Email)

		holder, err := h.repo.Accounts().GetByEmailTx(ctx, tx, email)
		if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check email availability")
		}

		if holder != nil {
			holder.EnsureStatus()
			if !holder.IsDeleted() {
				return ErrEmailTaken.WithMetadata(map[string]any{
					"email": email,
				})
			}

			if err := h.repo.Accounts().PurgeTx(ctx, tx, holder.ID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not purge deleted account")
			}
			h.recordPurge(ctx, holder)
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Email = email
		account.DisplayName = event.DisplayName
		account.Status = StatusActive
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	h.recordRegistered(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *RegisterAccountHandler) recordPurge(ctx context.Context, holder *Account) {
	event := ActivityEvent{
		EventType:  ActivityEventAccountPurged,
		Actor:      ActorRef{Type: "system"},
		AccountID:  holder.ID.String(),
		FromStatus: StatusDeleted,
		Metadata:   map[string]any{"trigger": "registration"},
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, event); err != nil {
		h.logger.Warn("registration activity sink error: %v", err)
	}
}

func (h *RegisterAccountHandler) recordRegistered(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     ActorRef{Type: "account", ID: account.ID.String()},
		AccountID: account.ID.String(),
		ToStatus:  StatusActive,
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, event); err != nil {
		h.logger.Warn("registration activity sink error: %v", err)
	}
}
