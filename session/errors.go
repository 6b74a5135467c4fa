package session

import "errors"

var (
	// ErrBackendUnavailable wraps failures of the persistence backend.
	ErrBackendUnavailable = errors.New("credential backend unavailable")
	// ErrCredentialNotFound is returned when nothing is stored for a domain.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCredentialCorrupt is returned when stored keys cannot form a credential.
	ErrCredentialCorrupt = errors.New("credential corrupt")
	// ErrCredentialsRejected is returned by State.SetCredentials for an invalid
	// token or principal.
	ErrCredentialsRejected = errors.New("credentials rejected")
	// ErrNotAuthenticated is returned by operations that require an
	// authenticated state.
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrCredentialChanged is returned by State.Rotate when the held
	// credential was logged out or replaced after the rotation began.
	ErrCredentialChanged = errors.New("credential changed during rotation")
)
