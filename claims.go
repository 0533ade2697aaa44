package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims represents structured session claims. Status is the lifecycle
// state observed at issuance time, a snapshot that can go stale; the
// reconciler re-checks storage on every request.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	DisplayName() string
	StatusAtIssue() AccountStatus
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete implementation of AuthClaims
type SessionClaims struct {
	jwt.RegisteredClaims
	UID           string         `json:"uid,omitempty"`
	ClaimEmail    string         `json:"email,omitempty"`
	ClaimName     string         `json:"name,omitempty"`
	AccountStatus AccountStatus  `json:"status,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*SessionClaims)(nil)

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account ID
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the email snapshot
func (c *SessionClaims) Email() string {
	return c.ClaimEmail
}

// DisplayName returns the display name snapshot
func (c *SessionClaims) DisplayName() string {
	return c.ClaimName
}

// StatusAtIssue returns the lifecycle status the account held when the
// credential was signed.
func (c *SessionClaims) StatusAtIssue() AccountStatus {
	if c.AccountStatus == "" {
		return StatusActive
	}
	return c.AccountStatus
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *SessionClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil {
		return
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
