// Package accounts keeps the account lifecycle and the sessions issued
// against it consistent with each other.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus field that is persisted via Bun.
//     Statuses cover active, blocked, and deleted; blocked is reversible,
//     deleted is terminal and only ever transitions to physical row removal.
//   - AccountStateMachine centralizes the transition graph and persistence,
//     and LifecycleMutator applies block, unblock, and delete to account sets
//     atomically. Invoke either with ActorRef metadata so self-actions can be
//     detected and audited.
//
// Status reconciliation:
//   - Session credentials are stale snapshots: they record the account status
//     at issuance time and are never proactively revoked. The Reconciler
//     re-reads the persisted record on each guarded request; storage always
//     wins, so a blocked or deleted account loses its session on its next
//     request. Storage faults fail open to keep a database outage from
//     signing everyone out.
//   - Deleted accounts are removed lazily: the next observation (a login
//     attempt, a reconciled request, or a registration against the same
//     email) purges the row and frees the email for re-registration.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the authenticator,
//     state machine, reconciler, and lifecycle mutator to describe logins,
//     status changes, purges, and session terminations. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package accounts
