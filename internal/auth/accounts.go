package auth

import (
	"fmt"

	"github.com/nerrad567/graydb/internal/infrastructure/config"
)

// Account is an operator allowed to log in.
type Account struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`

	passwordHash string
}

// Accounts is an immutable set of operator accounts.
type Accounts struct {
	byName map[string]Account
}

// dummyHash is verified against when the username is unknown so lookups
// take the same time whether or not the account exists.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// NewAccounts builds the account set from configuration.
func NewAccounts(admins []config.AdminConfig) (*Accounts, error) {
	a := &Accounts{byName: make(map[string]Account, len(admins))}
	for _, cfg := range admins {
		role := Role(cfg.Role)
		if !IsValidRole(role) {
			return nil, fmt.Errorf("account %q: unknown role %q", cfg.Username, cfg.Role)
		}
		if _, dup := a.byName[cfg.Username]; dup {
			return nil, fmt.Errorf("account %q: defined twice", cfg.Username)
		}
		a.byName[cfg.Username] = Account{
			Username:     cfg.Username,
			Role:         role,
			passwordHash: cfg.PasswordHash,
		}
	}
	return a, nil
}

// Len returns the number of accounts.
func (a *Accounts) Len() int {
	return len(a.byName)
}

// Authenticate checks username and password.
//
// Returns:
//   - Account: The matching account
//   - error: ErrInvalidCredentials for an unknown user or wrong password
func (a *Accounts) Authenticate(username, password string) (Account, error) {
	acct, ok := a.byName[username]
	hash := acct.passwordHash
	if !ok {
		hash = dummyHash
	}

	match, err := VerifyPassword(password, hash)
	if err != nil || !ok || !match {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}
