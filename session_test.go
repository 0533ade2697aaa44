package accounts_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	accounts "github.com/mairena/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRouterSession(t *testing.T) {
	t.Run("claims stored by middleware", func(t *testing.T) {
		id := uuid.New().String()
		now := time.Now()

		claims := &accounts.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   id,
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test:audience"},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			UID:           id,
			ClaimEmail:    "session@example.com",
			ClaimName:     "Session Person",
			AccountStatus: accounts.StatusBlocked,
		}

		ctx := new(MockContext)
		ctx.On("Locals", "user").Return(claims)

		session, err := accounts.GetRouterSession(ctx, "user")
		require.NoError(t, err)

		assert.Equal(t, id, session.GetUserID())
		assert.Equal(t, "session@example.com", session.GetEmail())
		assert.Equal(t, "Session Person", session.GetDisplayName())
		assert.Equal(t, accounts.StatusBlocked, session.GetStatusAtIssue())
		assert.Equal(t, "test-issuer", session.GetIssuer())
		assert.Equal(t, []string{"test:audience"}, session.GetAudience())

		parsed, err := session.GetUserUUID()
		require.NoError(t, err)
		assert.Equal(t, id, parsed.String())
	})

	t.Run("raw token stored by handler", func(t *testing.T) {
		id := uuid.New().String()
		now := time.Now()

		token := &jwt.Token{
			Claims: jwt.MapClaims{
				"sub":    id,
				"uid":    id,
				"email":  "session@example.com",
				"name":   "Session Person",
				"status": "blocked",
				"iss":    "test-issuer",
				"aud":    "test:audience",
				"iat":    float64(now.Unix()),
				"exp":    float64(now.Add(time.Hour).Unix()),
			},
		}

		ctx := new(MockContext)
		ctx.On("Locals", "user").Return(token)

		session, err := accounts.GetRouterSession(ctx, "user")
		require.NoError(t, err)

		assert.Equal(t, id, session.GetUserID())
		assert.Equal(t, "session@example.com", session.GetEmail())
		assert.Equal(t, accounts.StatusBlocked, session.GetStatusAtIssue())
		assert.Equal(t, "test-issuer", session.GetIssuer())
	})

	t.Run("missing session", func(t *testing.T) {
		ctx := new(MockContext)
		ctx.On("Locals", "user").Return(nil)

		_, err := accounts.GetRouterSession(ctx, "user")
		assert.ErrorIs(t, err, accounts.ErrUnableToFindSession)
	})

	t.Run("unexpected locals value", func(t *testing.T) {
		ctx := new(MockContext)
		ctx.On("Locals", "user").Return("just-a-string")

		_, err := accounts.GetRouterSession(ctx, "user")
		assert.ErrorIs(t, err, accounts.ErrUnableToDecodeSession)
	})

	t.Run("claims without expiry rejected", func(t *testing.T) {
		token := &jwt.Token{
			Claims: jwt.MapClaims{
				"sub": uuid.New().String(),
				"iat": float64(time.Now().Unix()),
			},
		}

		ctx := new(MockContext)
		ctx.On("Locals", "user").Return(token)

		_, err := accounts.GetRouterSession(ctx, "user")
		assert.ErrorIs(t, err, accounts.ErrUnableToParseData)
	})
}

func TestSessionObjectDefaults(t *testing.T) {
	session := &accounts.SessionObject{UserID: uuid.New().String()}

	// a session without a status claim predates the status snapshot;
	// treat it as active and let reconciliation decide
	assert.Equal(t, accounts.StatusActive, session.GetStatusAtIssue())

	assert.NotEmpty(t, session.String())
}
