package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the client-held view of a session credential. It is a
// stale cache of identity and status: the only invalidation trigger is an
// explicit sign-out instruction from the reconciler or the lifecycle
// mutator, and staleness is bounded by the time until the next request.
type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Email          string         `json:"email,omitempty"`
	DisplayName    string         `json:"display_name,omitempty"`
	StatusAtIssue  AccountStatus  `json:"status_at_issue,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetDisplayName() string {
	return s.DisplayName
}

func (s *SessionObject) GetStatusAtIssue() AccountStatus {
	if s.StatusAtIssue == "" {
		return StatusActive
	}
	return s.StatusAtIssue
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s email=%s status=%s iss=%s iat=%s",
		s.UserID,
		s.Email,
		s.GetStatusAtIssue(),
		s.Issuer,
		issuedAt,
	)
}

// sessionFromAuthClaims creates a SessionObject from validated claims.
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToMapClaims
	}

	data := make(map[string]any)

	var audience []string
	issuer := ""
	if sc, ok := claims.(*SessionClaims); ok {
		if len(sc.Metadata) > 0 {
			data["metadata"] = sc.Metadata
		}
		audience = append(audience, sc.RegisteredClaims.Audience...)
		issuer = sc.RegisteredClaims.Issuer
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Email:          claims.Email(),
		DisplayName:    claims.DisplayName(),
		StatusAtIssue:  claims.StatusAtIssue(),
		Audience:       audience,
		Issuer:         issuer,
		Data:           data,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}

// sessionFromClaims builds a SessionObject out of the raw map claims carried
// by a parsed token.
func sessionFromClaims(claims jwt.Claims) (*SessionObject, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, ErrUnableToParseData
	}

	aud, err := claims.GetAudience()
	if err != nil {
		return nil, ErrUnableToParseData
	}

	iss, err := claims.GetIssuer()
	if err != nil {
		return nil, ErrUnableToParseData
	}

	eat, err := claims.GetExpirationTime()
	if err != nil || eat == nil {
		return nil, ErrUnableToParseData
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, ErrUnableToParseData
	}

	session := &SessionObject{
		UserID:         sub,
		Audience:       aud,
		Issuer:         iss,
		IssuedAt:       &iat.Time,
		ExpirationDate: &eat.Time,
	}

	if mp, ok := claims.(jwt.MapClaims); ok {
		if uid, ok := mp["uid"].(string); ok && uid != "" {
			session.UserID = uid
		}
		if email, ok := mp["email"].(string); ok {
			session.Email = email
		}
		if name, ok := mp["name"].(string); ok {
			session.DisplayName = name
		}
		if status, ok := mp["status"].(string); ok {
			session.StatusAtIssue = AccountStatus(status)
		}
		if metadata, ok := mp["metadata"].(map[string]any); ok {
			session.Data = map[string]any{"metadata": metadata}
		}
	}

	return session, nil
}

// HasUserUUID reports whether Session.GetUserUUID will succeed.
func HasUserUUID(session Session) bool {
	if session == nil {
		return false
	}
	_, err := session.GetUserUUID()
	return err == nil
}
