package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrNotStarted is returned by the request pipeline before Start completed.
	ErrNotStarted = errors.New("session context not started")
	// ErrEngineNotReady is returned by methods called on a nil or closed AuthContext.
	ErrEngineNotReady = errors.New("session context not ready")
	// ErrInvalidDomain is returned for a domain other than user, vendor or admin.
	ErrInvalidDomain = errors.New("invalid identity domain")
	// ErrLoginFailed wraps login endpoint and credential failures.
	ErrLoginFailed = errors.New("login failed")
	// ErrReauthFailed wraps refresh failures; the domain has been logged out.
	ErrReauthFailed = errors.New("reauthentication failed")
	// ErrNoRefreshToken is returned when a domain expired without a refresh token.
	ErrNoRefreshToken = errors.New("no refresh token held")
	// ErrCredentialsRejected is returned when a token or principal fails validation.
	ErrCredentialsRejected = session.ErrCredentialsRejected
	// ErrNotAuthenticated is returned by profile updates on an anonymous domain.
	ErrNotAuthenticated = session.ErrNotAuthenticated
	// ErrSessionChanged is returned when a domain was logged out or logged in
	// again while its refresh was in flight; the renewed token is discarded.
	ErrSessionChanged = session.ErrCredentialChanged
	// ErrRedisUnavailable wraps store backend failures.
	ErrRedisUnavailable = session.ErrBackendUnavailable
)
