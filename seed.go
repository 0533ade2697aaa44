package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// EnsureSeedAccount makes sure an account exists for the given email,
// creating it with the provided password when missing. Meant for bootstrap
// paths like a first admin account; it never mutates an existing record.
func EnsureSeedAccount(ctx context.Context, repo RepositoryManager, email, displayName, password string) (*Account, error) {
	email = NormalizeEmail(email)

	existing, err := repo.Accounts().GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}

	if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "seed account lookup failed")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "seed account password invalid")
	}

	account := &Account{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Status:       StatusActive,
	}

	created, err := repo.Accounts().Register(ctx, account)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "seed account creation failed")
	}

	return created, nil
}
