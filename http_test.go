package accounts_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	accounts "github.com/mairena/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPAuthenticator(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	mockConfig := new(MockConfig)

	mockConfig.On("GetTokenExpiration").Return(24)
	mockConfig.On("GetExtendedTokenDuration").Return(720)

	httpAuth, err := accounts.NewHTTPAuthenticator(mockAuth, mockConfig)

	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, httpAuth.GetCookieDuration())
	assert.Equal(t, 720*time.Hour, httpAuth.GetExtendedCookieDuration())

	mockConfig.AssertExpectations(t)
}

func TestRouteAuthenticatorLogin(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	mockConfig := new(MockConfig)
	mockCtx := new(MockContext)

	mockConfig.On("GetTokenExpiration").Return(24)
	mockConfig.On("GetExtendedTokenDuration").Return(720)
	mockConfig.On("GetContextKey").Return("user")

	mockAuth.On("Login", mock.Anything, "person@example.com", "password123").
		Return("valid.jwt.token", nil)

	mockCtx.On("Context").Return(context.Background())
	mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "user" && c.Value == "valid.jwt.token" && c.HTTPOnly
	})).Return()

	httpAuth, err := accounts.NewHTTPAuthenticator(mockAuth, mockConfig)
	require.NoError(t, err)

	payload := MockLoginPayload{
		Identifier:      "person@example.com",
		Password:        "password123",
		ExtendedSession: true,
	}

	require.NoError(t, httpAuth.Login(mockCtx, payload))

	mockAuth.AssertExpectations(t)
	mockCtx.AssertExpectations(t)
}

func TestRouteAuthenticatorLogout(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	mockConfig := new(MockConfig)
	mockCtx := new(MockContext)

	mockConfig.On("GetTokenExpiration").Return(24)
	mockConfig.On("GetExtendedTokenDuration").Return(720)
	mockConfig.On("GetContextKey").Return("user")

	mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "user" && c.Value == "" && c.HTTPOnly && c.Expires.Before(time.Now())
	})).Return()

	httpAuth, err := accounts.NewHTTPAuthenticator(mockAuth, mockConfig)
	require.NoError(t, err)

	httpAuth.Logout(mockCtx)

	mockCtx.AssertExpectations(t)
}

func TestRouteAuthenticatorTerminateSession(t *testing.T) {
	newConfig := func() *MockConfig {
		cfg := new(MockConfig)
		cfg.On("GetTokenExpiration").Return(24)
		cfg.On("GetExtendedTokenDuration").Return(720)
		cfg.On("GetContextKey").Return("user")
		cfg.On("GetLoginRoute").Return("/login")
		return cfg
	}

	// the flash wrapper stores the message on the context on its way out;
	// only the session cookie and the redirect are asserted here
	allowFlash := func(ctx *MockContext) {
		ctx.On("Cookie", mock.Anything).Return().Maybe()
		ctx.On("Cookies", mock.Anything).Return("").Maybe()
		ctx.On("Cookies", mock.Anything, mock.Anything).Return("").Maybe()
		ctx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()
		ctx.On("Set", mock.Anything, mock.Anything).Maybe()
		ctx.On("SetHeader", mock.Anything, mock.Anything).Maybe()
		ctx.On("Status", mock.Anything).Maybe()
	}

	t.Run("expires the cookie and redirects to login", func(t *testing.T) {
		mockCtx := new(MockContext)
		mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
			return c.Name == "user" && c.Value == "" && c.Expires.Before(time.Now())
		})).Return()
		allowFlash(mockCtx)
		mockCtx.On("Method").Return("POST")
		mockCtx.On("Redirect", "/login", []int{http.StatusSeeOther}).Return(nil)

		httpAuth, err := accounts.NewHTTPAuthenticator(new(MockAuthenticator), newConfig())
		require.NoError(t, err)

		require.NoError(t, httpAuth.TerminateSession(mockCtx, "your account was blocked"))

		mockCtx.AssertExpectations(t)
	})

	t.Run("GET requests use a found redirect", func(t *testing.T) {
		mockCtx := new(MockContext)
		mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
			return c.Name == "user" && c.Value == ""
		})).Return()
		allowFlash(mockCtx)
		mockCtx.On("Method").Return("GET")
		mockCtx.On("Redirect", "/login", []int{http.StatusFound}).Return(nil)

		httpAuth, err := accounts.NewHTTPAuthenticator(new(MockAuthenticator), newConfig())
		require.NoError(t, err)

		require.NoError(t, httpAuth.TerminateSession(mockCtx, "your account was deleted"))

		mockCtx.AssertExpectations(t)
	})
}
