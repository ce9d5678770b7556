package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an account transition is not allowed.
var ErrInvalidTransition = errors.New("invalid account transition")

// AccountState is the tag of Account.
type AccountState int

const (
	LoggedOut AccountState = iota
	LoggingIn
	LoggedIn
)

func (s AccountState) String() string {
	switch s {
	case LoggingIn:
		return "logging_in"
	case LoggedIn:
		return "logged_in"
	default:
		return "logged_out"
	}
}

// Account is the sign-in state. User is set only in the LoggedIn state.
// Values are immutable; transitions return a new Account.
type Account struct {
	state AccountState
	user  *User
}

// State returns the account state.
func (a Account) State() AccountState { return a.state }

// User returns the signed-in user, or nil unless LoggedIn.
func (a Account) User() *User {
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// IsLoggedIn reports whether the account is in the LoggedIn state.
func (a Account) IsLoggedIn() bool { return a.state == LoggedIn }

// BeginLogin moves LoggedOut to LoggingIn.
func (a Account) BeginLogin() (Account, error) {
	if a.state != LoggedOut {
		return a, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, LoggingIn)
	}
	return Account{state: LoggingIn}, nil
}

// CompleteLogin moves LoggingIn to LoggedIn(user). It is also the recovery
// path from LoggedOut when a stored credential resolves a user.
func (a Account) CompleteLogin(user User) (Account, error) {
	if a.state == LoggedIn {
		return a, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, LoggedIn)
	}
	if user.Login == "" {
		return a, fmt.Errorf("%w: empty login", ErrInvalidTransition)
	}
	return Account{state: LoggedIn, user: &user}, nil
}

// FailLogin moves LoggingIn back to LoggedOut.
func (a Account) FailLogin() (Account, error) {
	if a.state != LoggingIn {
		return a, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, LoggedOut)
	}
	return Account{state: LoggedOut}, nil
}

// Logout moves LoggedIn to LoggedOut, on explicit logout or on a detected
// credential failure.
func (a Account) Logout() (Account, error) {
	if a.state != LoggedIn {
		return a, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, LoggedOut)
	}
	return Account{state: LoggedOut}, nil
}
