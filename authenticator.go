package accounts

import (
	"context"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginOption tweaks a single Login call.
type LoginOption func(*loginSettings)

type loginSettings struct {
	extended bool
	metadata map[string]any
}

// WithExtendedSession issues the credential with the extended expiration
// window, e.g. for "remember me" logins.
func WithExtendedSession() LoginOption {
	return func(s *loginSettings) {
		s.extended = true
	}
}

// WithLoginMetadata attaches metadata to the issued claims. Immutable claims
// are still guarded; this only feeds the metadata extension payload.
func WithLoginMetadata(meta map[string]any) LoginOption {
	return func(s *loginSettings) {
		s.metadata = meta
	}
}

type Auther struct {
	provider           IdentityProvider
	signingKey         []byte
	tokenExpiration    int
	extendedExpiration int
	issuer             string
	audience           []string
	logger             Logger
	tokenService       TokenService
	tokenValidator     TokenValidator
	activitySink       ActivitySink
	claimsDecorator    ClaimsDecorator
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetExtendedTokenDuration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:           provider,
		signingKey:         []byte(opts.GetSigningKey()),
		tokenExpiration:    opts.GetTokenExpiration(),
		extendedExpiration: opts.GetExtendedTokenDuration(),
		audience:           opts.GetAudience(),
		issuer:             opts.GetIssuer(),
		logger:             defLogger{},
		tokenService:       tokenService,
		activitySink:       noopActivitySink{},
		claimsDecorator:    noopClaimsDecorator{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	s.tokenService = NewTokenService(
		s.signingKey,
		s.tokenExpiration,
		s.extendedExpiration,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching issued claims.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and, when the account's persisted status
// admits it, issues a signed session credential carrying a snapshot of the
// identity at issuance time.
func (s *Auther) Login(ctx context.Context, identifier, password string, opts ...LoginOption) (string, error) {
	settings := &loginSettings{}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return "", ErrIdentityNotFound
	}

	if err := statusAuthError(identity.Status()); err != nil {
		s.logger.Warn("Login rejected by account status %q: %v", identity.Status(), err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
			"status":     string(identity.Status()),
		})
		return "", err
	}

	token, err := s.generateJWT(ctx, identity, settings)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
		"extended":   settings.extended,
	})

	return token, nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())

	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier: %s", err)
		return nil, err
	}

	return identity, nil
}

func (s Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed: %v", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %v", err)
		return nil, err
	}

	return session, nil
}

// generateJWT builds the snapshot claims for the identity, runs the
// decorator, and signs. The immutable claim guard rejects decorators that
// try to rewrite identity or status fields.
func (s *Auther) generateJWT(ctx context.Context, identity Identity, settings *loginSettings) (string, error) {
	claims := s.newSessionClaims(identity, settings)
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, identity, claims); err != nil {
		s.logger.Error("claims decorator failed: %v", err)
		return "", err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims: %v", err)
		return "", err
	}

	return s.tokenService.SignClaims(claims)
}

func (s *Auther) newSessionClaims(identity Identity, settings *loginSettings) *SessionClaims {
	now := time.Now()

	expiration := s.tokenExpiration
	if settings.extended && s.extendedExpiration > 0 {
		expiration = s.extendedExpiration
	}

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiration) * time.Hour)),
		},
		UID:           identity.ID(),
		ClaimEmail:    identity.Email(),
		ClaimName:     identity.DisplayName(),
		AccountStatus: identity.Status(),
	}

	if len(settings.metadata) > 0 {
		claims.Metadata = settings.metadata
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "account",
	}
}
