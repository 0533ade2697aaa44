package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the persisted lifecycle state of an account.
type AccountStatus string

const (
	// StatusActive accounts may log in and hold valid sessions.
	StatusActive AccountStatus = "active"
	// StatusBlocked accounts are rejected at login and have live sessions
	// terminated on their next request.
	StatusBlocked AccountStatus = "blocked"
	// StatusDeleted marks an account for removal. The row is purged the next
	// time the login flow or the reconciler observes it.
	StatusDeleted AccountStatus = "deleted"
)

// IsValid checks if the status is one of the known lifecycle states
func (s AccountStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusDeleted:
		return true
	default:
		return false
	}
}

// ParseStatus safely parses a string into an AccountStatus
func ParseStatus(raw string) (AccountStatus, bool) {
	status := AccountStatus(raw)
	return status, status.IsValid()
}

// AllStatuses returns the known lifecycle states
func AllStatuses() []AccountStatus {
	return []AccountStatus{
		StatusActive,
		StatusBlocked,
		StatusDeleted,
	}
}

// Account is the persisted account record. The status column is the
// authoritative lifecycle state; a session credential only ever carries a
// snapshot of it.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string        `bun:"display_name,notnull" json:"display_name,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"password_hash,omitempty"`
	Status        AccountStatus `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	LastLoginAt   *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults an empty status to active so records created before
// the status column existed keep working.
func (a *Account) EnsureStatus() {
	if a == nil {
		return
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
}

// IsActive reports whether the account may authenticate.
func (a *Account) IsActive() bool {
	if a == nil {
		return false
	}
	a.EnsureStatus()
	return a.Status == StatusActive
}

// IsBlocked reports whether the account is administratively blocked.
func (a *Account) IsBlocked() bool {
	return a != nil && a.Status == StatusBlocked
}

// IsDeleted reports whether the account is marked for lazy removal.
func (a *Account) IsDeleted() bool {
	return a != nil && a.Status == StatusDeleted
}

// NormalizeEmail trims and lowercases an email so it can act as the natural
// login key. Uniqueness is enforced against the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
