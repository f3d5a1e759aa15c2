// Package auth is the session state machine: restore, login, register, logout.
package auth

import (
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

// Session is the current authentication state. User is set only while
// Status is authenticated, and authenticated always carries a Token.
type Session struct {
	Status storefront.SessionStatus `json:"status"`
	Token  string                   `json:"-"`
	User   *storefront.User         `json:"user"`
	Error  string                   `json:"error,omitempty"`
}

func (s Session) IsAuthenticated() bool {
	return s.Status == storefront.SessionAuthenticated
}

func unauthenticated() Session {
	return Session{Status: storefront.SessionUnauthenticated}
}

// Action is the closed set of session transitions.
type Action interface{ isAction() }

// RestoreStarted puts a stored token in flight.
type RestoreStarted struct{ Token string }

type UserLoaded struct{ User storefront.User }

type LoginSuccess struct {
	Token string
	User  storefront.User
}

type RegisterSuccess struct {
	Token string
	User  storefront.User
}

// AuthError is a failed restore.
type AuthError struct{}

type LoginFail struct{ Message string }

type RegisterFail struct{ Message string }

type Logout struct{}

func (RestoreStarted) isAction()  {}
func (UserLoaded) isAction()      {}
func (LoginSuccess) isAction()    {}
func (RegisterSuccess) isAction() {}
func (AuthError) isAction()       {}
func (LoginFail) isAction()       {}
func (RegisterFail) isAction()    {}
func (Logout) isAction()          {}

// clearsToken reports whether a reduces to a state whose stored token must go.
func clearsToken(a Action) bool {
	switch a.(type) {
	case AuthError, LoginFail, RegisterFail, Logout:
		return true
	}
	return false
}

// Reduce is pure; storage and credential effects happen in the Machine.
func Reduce(s Session, a Action) Session {
	switch a := a.(type) {
	case RestoreStarted:
		if a.Token == "" {
			return unauthenticated()
		}
		return Session{Status: storefront.SessionLoading, Token: a.Token}

	case UserLoaded:
		if s.Token == "" {
			return unauthenticated()
		}
		u := a.User
		return Session{Status: storefront.SessionAuthenticated, Token: s.Token, User: &u}

	case LoginSuccess:
		return authenticated(a.Token, a.User)

	case RegisterSuccess:
		return authenticated(a.Token, a.User)

	case AuthError, Logout:
		return unauthenticated()

	case LoginFail:
		return Session{Status: storefront.SessionError, Error: a.Message}

	case RegisterFail:
		return Session{Status: storefront.SessionError, Error: a.Message}
	}
	return s
}

func authenticated(tok string, u storefront.User) Session {
	if tok == "" {
		return Session{Status: storefront.SessionError, Error: "missing token"}
	}
	return Session{Status: storefront.SessionAuthenticated, Token: tok, User: &u}
}
