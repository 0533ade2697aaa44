package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BulkResult reports the outcome of a bulk lifecycle operation. Affected
// counts only rows whose status actually changed; rows already in the target
// status and unknown ids contribute nothing.
type BulkResult struct {
	Affected     int
	AffectedIDs  []uuid.UUID
	SelfAffected bool
}

// LifecycleMutator applies block, unblock, and delete operations to sets of
// accounts in a single transaction. Each operation is idempotent: re-running
// it with the same ids affects zero rows.
type LifecycleMutator struct {
	manager      RepositoryManager
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// LifecycleOption customizes a LifecycleMutator.
type LifecycleOption func(*LifecycleMutator)

// WithLifecycleLogger overrides the default logger.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(m *LifecycleMutator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLifecycleActivitySink sets the sink that receives bulk lifecycle events.
func WithLifecycleActivitySink(sink ActivitySink) LifecycleOption {
	return func(m *LifecycleMutator) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithLifecycleClock injects a custom clock.
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(m *LifecycleMutator) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewLifecycleMutator will create a LifecycleMutator backed by the given
// repository manager.
func NewLifecycleMutator(manager RepositoryManager, opts ...LifecycleOption) *LifecycleMutator {
	m := &LifecycleMutator{
		manager:      manager,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Block moves the selected accounts to blocked.
func (m *LifecycleMutator) Block(ctx context.Context, actor ActorRef, ids []uuid.UUID) (BulkResult, error) {
	return m.apply(ctx, actor, ids, StatusBlocked, "block")
}

// Unblock moves the selected accounts back to active.
func (m *LifecycleMutator) Unblock(ctx context.Context, actor ActorRef, ids []uuid.UUID) (BulkResult, error) {
	return m.apply(ctx, actor, ids, StatusActive, "unblock")
}

// Delete marks the selected accounts deleted. Rows are not removed here;
// physical removal happens lazily the next time the account is observed.
func (m *LifecycleMutator) Delete(ctx context.Context, actor ActorRef, ids []uuid.UUID) (BulkResult, error) {
	return m.apply(ctx, actor, ids, StatusDeleted, "delete")
}

// apply runs the whole operation in one transaction: load the selected rows,
// keep the ones whose status would actually change, and update them with a
// single statement. Unknown ids are silently ignored so a stale admin view
// never fails the batch.
func (m *LifecycleMutator) apply(ctx context.Context, actor ActorRef, ids []uuid.UUID, target AccountStatus, operation string) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, ErrNoAccountsSelected
	}

	var result BulkResult

	err := withStorageRetry(ctx, func(ctx context.Context) error {
		result = BulkResult{}
		return m.manager.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			accounts, err := m.manager.Accounts().ListByIDsTx(ctx, tx, ids)
			if err != nil {
				return err
			}

			affected := make([]uuid.UUID, 0, len(accounts))
			transitions := make(map[uuid.UUID]AccountStatus, len(accounts))
			for _, account := range accounts {
				account.EnsureStatus()
				if !bulkTransitionAllowed(account.Status, target) {
					continue
				}
				affected = append(affected, account.ID)
				transitions[account.ID] = account.Status
			}

			if len(affected) > 0 {
				if err := m.manager.Accounts().UpdateStatusManyTx(ctx, tx, affected, target); err != nil {
					return err
				}
			}

			result.Affected = len(affected)
			result.AffectedIDs = affected
			result.SelfAffected = m.detectSelfAction(actor, affected)

			m.recordBulk(ctx, actor, target, operation, affected, transitions, result.SelfAffected)
			return nil
		})
	})
	if err != nil {
		if isDomainError(err) {
			return BulkResult{}, err
		}
		m.logger.Error("bulk %s failed: %v", operation, err)
		return BulkResult{}, ErrStorageUnavailable.WithMetadata(map[string]any{
			"operation": operation,
			"cause":     err.Error(),
		})
	}

	return result, nil
}

// detectSelfAction reports whether the actor is in the newly affected set.
// An admin re-blocking a set that already contains their own (already
// blocked) account is not a self action: nothing changed for them.
func (m *LifecycleMutator) detectSelfAction(actor ActorRef, affected []uuid.UUID) bool {
	if actor.ID == "" {
		return false
	}

	actorID, err := uuid.Parse(actor.ID)
	if err != nil {
		return false
	}

	for _, id := range affected {
		if id == actorID {
			return true
		}
	}
	return false
}

func (m *LifecycleMutator) recordBulk(ctx context.Context, actor ActorRef, target AccountStatus, operation string, affected []uuid.UUID, transitions map[uuid.UUID]AccountStatus, self bool) {
	if len(affected) == 0 {
		return
	}

	affectedIDs := make([]string, 0, len(affected))
	for _, id := range affected {
		affectedIDs = append(affectedIDs, id.String())
	}

	event := ActivityEvent{
		EventType: ActivityEventBulkLifecycleApplied,
		Actor:     actor,
		ToStatus:  target,
		Metadata: map[string]any{
			"operation":     operation,
			"affected":      len(affected),
			"affected_ids":  affectedIDs,
			"self_affected": self,
		},
		OccurredAt: m.now(),
	}

	if err := normalizeActivitySink(m.activitySink).Record(ctx, event); err != nil {
		m.logger.Warn("lifecycle activity sink error: %v", err)
	}

	for id, from := range transitions {
		statusEvent := ActivityEvent{
			EventType:  ActivityEventAccountStatusChanged,
			Actor:      actor,
			AccountID:  id.String(),
			FromStatus: from,
			ToStatus:   target,
			Metadata:   map[string]any{"operation": operation},
			OccurredAt: m.now(),
		}
		if err := normalizeActivitySink(m.activitySink).Record(ctx, statusEvent); err != nil {
			m.logger.Warn("lifecycle activity sink error: %v", err)
		}
	}
}

// bulkTransitionAllowed mirrors the state machine graph for set operations.
// A row already in the target status is skipped rather than errored, and
// deleted rows are terminal: no bulk operation resurrects them.
func bulkTransitionAllowed(from, to AccountStatus) bool {
	if from == to {
		return false
	}
	if from == StatusDeleted {
		return false
	}
	switch to {
	case StatusActive, StatusBlocked, StatusDeleted:
		return true
	default:
		return false
	}
}
