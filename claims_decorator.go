package accounts

import "context"

// ClaimsDecorator can mutate allowed claim extensions before a token is signed.
// Implementations may only touch extension fields (e.g. Metadata) and must
// leave registered/identity/status claims untouched so the reconciler can
// trust the snapshot.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, identity Identity, claims *SessionClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, identity Identity, claims *SessionClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, identity Identity, claims *SessionClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, Identity, *SessionClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
