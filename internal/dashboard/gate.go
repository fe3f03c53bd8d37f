package dashboard

import "glucare/internal/domain"

// SessionStatus is the resolution state of the auth provider.
type SessionStatus int

// Session states.
const (
	SessionPending SessionStatus = iota
	SessionPresent
	SessionNone
)

// Session is the auth provider's view of the current user.
type Session struct {
	Status SessionStatus
	User   *domain.User
}

// PendingSession is a session that has not resolved yet.
func PendingSession() Session { return Session{Status: SessionPending} }

// PresentSession is an authenticated session for u.
func PresentSession(u *domain.User) Session { return Session{Status: SessionPresent, User: u} }

// NoSession is an unauthenticated session.
func NoSession() Session { return Session{Status: SessionNone} }

// DecisionKind is what the gate tells the shell to do.
type DecisionKind int

// Gate decisions.
const (
	DecisionLoading DecisionKind = iota
	DecisionRedirect
	DecisionRender
)

// Decision is the outcome of Gate.
type Decision struct {
	Kind DecisionKind
	// Location and Replace are set for DecisionRedirect. Replace means the
	// protected view must not stay in history.
	Location string
	Replace  bool
}

// SignInPath is the default sign-in entry point.
const SignInPath = "/login"

// Gate decides whether to show an interstitial, redirect to sign-in, or
// render the protected content. A present session without a user is
// treated as unauthenticated.
func Gate(s Session, signInPath string) Decision {
	if signInPath == "" {
		signInPath = SignInPath
	}
	switch s.Status {
	case SessionPending:
		return Decision{Kind: DecisionLoading}
	case SessionPresent:
		if s.User != nil {
			return Decision{Kind: DecisionRender}
		}
	}
	return Decision{Kind: DecisionRedirect, Location: signInPath, Replace: true}
}
