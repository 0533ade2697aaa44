package accounts

// AccountIdentity adapts an Account into the Identity interface for token
// generation.
type AccountIdentity struct {
	account *Account
}

// NewIdentityFromAccount returns an Identity adapter for the provided account.
func NewIdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}
	return AccountIdentity{account: account}
}

// ID returns the account's ID as a string.
func (a AccountIdentity) ID() string {
	if a.account == nil {
		return ""
	}
	return a.account.ID.String()
}

// DisplayName returns the account's display name.
func (a AccountIdentity) DisplayName() string {
	if a.account == nil {
		return ""
	}
	return a.account.DisplayName
}

// Email returns the account's email address.
func (a AccountIdentity) Email() string {
	if a.account == nil {
		return ""
	}
	return a.account.Email
}

// Status returns the account's lifecycle status.
func (a AccountIdentity) Status() AccountStatus {
	if a.account == nil {
		return ""
	}
	a.account.EnsureStatus()
	return a.account.Status
}
