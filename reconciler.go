package accounts

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// Decision is the outcome of reconciling a session credential against the
// persisted account record.
type Decision struct {
	Terminate bool
	Reason    string
	Refreshed *Account
}

func decisionContinue(account *Account) Decision {
	return Decision{Refreshed: account}
}

func decisionTerminate(reason string) Decision {
	return Decision{Terminate: true, Reason: reason}
}

// Reconciler re-checks, on every guarded request, that the account behind a
// session credential still exists and is still active. The credential's own
// status claim is just a stale snapshot; storage always wins.
//
// Storage faults fail open: a transient database outage should degrade to
// "serve with the last known state", not log everyone out.
type Reconciler struct {
	store        AccountTracker
	auth         Authenticator
	cfg          Config
	bypass       *BypassRules
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// ReconcilerOption customizes a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerBypassRules replaces the default bypass rules.
func WithReconcilerBypassRules(rules *BypassRules) ReconcilerOption {
	return func(r *Reconciler) {
		if rules != nil {
			r.bypass = rules
		}
	}
}

// WithReconcilerLogger overrides the default logger.
func WithReconcilerLogger(logger Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReconcilerActivitySink sets the sink receiving termination events.
func WithReconcilerActivitySink(sink ActivitySink) ReconcilerOption {
	return func(r *Reconciler) {
		r.activitySink = normalizeActivitySink(sink)
	}
}

// WithReconcilerClock injects a custom clock.
func WithReconcilerClock(clock func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewReconciler will create a Reconciler for the given store and authenticator.
func NewReconciler(store AccountTracker, auth Authenticator, cfg Config, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:        store,
		auth:         auth,
		cfg:          cfg,
		bypass:       DefaultBypassRules(),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Reconcile compares the session snapshot against the persisted record and
// decides whether the request may proceed.
func (r *Reconciler) Reconcile(ctx context.Context, session Session) Decision {
	if session == nil || session.GetUserID() == "" {
		return decisionContinue(nil)
	}

	var account *Account
	err := withStorageRetry(ctx, func(ctx context.Context) error {
		var lookupErr error
		account, lookupErr = r.store.GetByIdentifier(ctx, session.GetUserID())
		return lookupErr
	})

	if err != nil {
		if errors.IsNotFound(err) {
			return decisionTerminate(ErrAccountGone.Message)
		}
		// fail open on storage faults
		r.logger.Warn("status reconciliation skipped, storage unavailable: %v", err)
		return decisionContinue(nil)
	}

	if account == nil {
		return decisionTerminate(ErrAccountGone.Message)
	}

	account.EnsureStatus()

	switch account.Status {
	case StatusActive:
		return decisionContinue(account)
	case StatusBlocked:
		return decisionTerminate(ErrAccountBlocked.Message)
	case StatusDeleted:
		r.purgeDeleted(ctx, account)
		return decisionTerminate(ErrAccountDeleted.Message)
	default:
		return decisionTerminate(ErrInvalidAccountStatus.Message)
	}
}

// Middleware wraps the decision core for router pipelines. Requests matching
// the bypass rules and anonymous requests pass through without touching
// storage.
func (r *Reconciler) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if r.bypass.Matches(c.Path()) {
				return next(c)
			}

			raw := c.Cookies(r.cfg.GetContextKey())
			if raw == "" {
				return next(c)
			}

			session, err := r.auth.SessionFromToken(raw)
			if err != nil {
				// expired or malformed credentials are the auth
				// middleware's problem, not ours
				return next(c)
			}

			decision := r.Reconcile(c.Context(), session)
			if !decision.Terminate {
				if decision.Refreshed != nil {
					c.Locals(reconciledAccountKey, decision.Refreshed)
				}
				return next(c)
			}

			return r.terminate(c, session, decision)
		}
	}
}

func (r *Reconciler) terminate(c router.Context, session Session, decision Decision) error {
	r.logger.Info("terminating session for account %s: %s", session.GetUserID(), decision.Reason)

	r.recordTermination(c.Context(), session, decision.Reason)

	c.Cookie(&router.Cookie{
		Name:     r.cfg.GetContextKey(),
		Value:    "",
		Expires:  r.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}

	return flash.WithError(c, router.ViewContext{
		"error_message": decision.Reason,
	}).Redirect(r.cfg.GetLoginRoute(), statusCode)
}

func (r *Reconciler) purgeDeleted(ctx context.Context, account *Account) {
	if err := r.store.Purge(ctx, account.ID); err != nil {
		r.logger.Error("failed to purge deleted account %s: %v", account.ID, err)
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccountPurged,
		Actor:      ActorRef{Type: "system"},
		AccountID:  account.ID.String(),
		FromStatus: StatusDeleted,
		OccurredAt: r.now(),
	}
	if err := normalizeActivitySink(r.activitySink).Record(ctx, event); err != nil {
		r.logger.Warn("reconciler activity sink error: %v", err)
	}
}

func (r *Reconciler) recordTermination(ctx context.Context, session Session, reason string) {
	event := ActivityEvent{
		EventType: ActivityEventSessionTerminated,
		Actor:     ActorRef{Type: "system"},
		AccountID: session.GetUserID(),
		Metadata: map[string]any{
			"reason": reason,
		},
		OccurredAt: r.now(),
	}

	if err := normalizeActivitySink(r.activitySink).Record(ctx, event); err != nil {
		r.logger.Warn("reconciler activity sink error: %v", err)
	}
}

// reconciledAccountKey is where the middleware stashes the freshly loaded
// record so handlers can reuse it without re-reading storage.
const reconciledAccountKey = "reconciled_account"

// ReconciledAccount returns the account loaded by the reconciliation
// middleware for this request, if any.
func ReconciledAccount(c router.Context) (*Account, bool) {
	raw := c.Locals(reconciledAccountKey)
	if raw == nil {
		return nil, false
	}
	account, ok := raw.(*Account)
	return account, ok
}
