package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/jwt"
)

// State is the authentication state of one identity domain.
//
// Authenticated means holding a credential, not holding a currently valid
// token. A credential is only ever held after its token passed the validator
// and its principal carried an id. A token that expires while held keeps the
// state Authenticated until the transport pipeline renews it on the next 401
// or the renewal fails and logs the domain out. Use [State.Expired] to test
// the held token against the clock.
type State struct {
	domain    identity.Domain
	store     *TokenStore
	validator *jwt.Validator

	// opMu serialises transitions end to end, including backend I/O.
	opMu sync.Mutex
	mu   sync.RWMutex
	cred *identity.Credential
}

// NewState returns an Anonymous State for d.
func NewState(d identity.Domain, store *TokenStore, validator *jwt.Validator) *State {
	return &State{
		domain:    d,
		store:     store,
		validator: validator,
	}
}

// Domain returns the identity domain this state belongs to.
func (s *State) Domain() identity.Domain {
	return s.domain
}

// Authenticated reports whether a credential is held. The held token may
// already be expired.
func (s *State) Authenticated() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred != nil
}

// Credential returns a copy of the held credential.
func (s *State) Credential() (identity.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return identity.Credential{}, false
	}
	return *s.cred, true
}

// Token returns the held bearer token, or "" when Anonymous.
func (s *State) Token() string {
	c, _ := s.Credential()
	return c.Token
}

// RefreshToken returns the held refresh token, or "" when Anonymous or when
// the backend issued none.
func (s *State) RefreshToken() string {
	c, _ := s.Credential()
	return c.RefreshToken
}

// Principal returns the held principal, or nil when Anonymous.
func (s *State) Principal() identity.Principal {
	c, _ := s.Credential()
	return c.Principal
}

// Expired reports whether the held token no longer passes the validator.
func (s *State) Expired() bool {
	c, ok := s.Credential()
	return ok && !s.validator.IsValid(c.Token)
}

func (s *State) set(c *identity.Credential) {
	s.mu.Lock()
	s.cred = c
	s.mu.Unlock()
}

// Init loads the persisted credential. A usable credential makes the state
// Authenticated; anything else leaves it Anonymous and clears the domain's
// keys. Backend failures are returned without clearing.
func (s *State) Init(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	cred, err := s.store.Get(ctx, s.domain)
	switch {
	case err == nil && s.validator.IsValid(cred.Token):
		s.set(cred)
		return nil
	case err != nil && errors.Is(err, ErrBackendUnavailable):
		s.set(nil)
		return err
	}

	s.set(nil)
	return s.store.Clear(ctx, s.domain)
}

// SetCredentials validates and persists a new credential. An invalid token or
// principal is rejected with [ErrCredentialsRejected]: the state becomes
// Anonymous and the domain's keys are cleared.
func (s *State) SetCredentials(ctx context.Context, token, refreshToken string, principal identity.Principal) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	cred := identity.Credential{
		Domain:       s.domain,
		Token:        token,
		RefreshToken: refreshToken,
		Principal:    principal,
	}
	if err := s.check(cred); err != nil {
		s.set(nil)
		return errors.Join(err, s.store.Clear(ctx, s.domain))
	}

	if err := s.store.Set(ctx, cred); err != nil {
		s.set(nil)
		return errors.Join(err, s.store.Clear(ctx, s.domain))
	}
	s.set(&cred)
	return nil
}

// Rotate installs a renewed credential only if the state still holds the
// credential whose refresh token was exchanged. When the domain was logged out
// or given a different credential meanwhile, Rotate returns
// [ErrCredentialChanged] and leaves the state and the store untouched.
// A nil principal keeps the held one.
func (s *State) Rotate(ctx context.Context, expectRefresh, token, refreshToken string, principal identity.Principal) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	cur, ok := s.Credential()
	if !ok || cur.RefreshToken != expectRefresh {
		return ErrCredentialChanged
	}
	if principal == nil {
		principal = cur.Principal
	}

	next := identity.Credential{
		Domain:       s.domain,
		Token:        token,
		RefreshToken: refreshToken,
		Principal:    principal,
	}
	if err := s.check(next); err != nil {
		s.set(nil)
		return errors.Join(err, s.store.Clear(ctx, s.domain))
	}
	if err := s.store.Set(ctx, next); err != nil {
		s.set(nil)
		return errors.Join(err, s.store.Clear(ctx, s.domain))
	}
	s.set(&next)
	return nil
}

func (s *State) check(c identity.Credential) error {
	if res := s.validator.Check(c.Token); !res.Valid() {
		return fmt.Errorf("%w: token %s", ErrCredentialsRejected, res.Reason)
	}
	if err := c.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialsRejected, err)
	}
	return nil
}

// Logout drops the held credential and clears the domain's keys. It is
// idempotent.
func (s *State) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.set(nil)
	return s.store.Clear(ctx, s.domain)
}

// UpdateProfile replaces the principal of the held credential and persists it
// without touching the tokens. It returns [ErrNotAuthenticated] and changes
// nothing when the state is Anonymous.
func (s *State) UpdateProfile(ctx context.Context, principal identity.Principal) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	cur, ok := s.Credential()
	if !ok {
		return ErrNotAuthenticated
	}
	next := cur
	next.Principal = principal
	if err := next.Check(); err != nil {
		return err
	}
	if err := s.store.Set(ctx, next); err != nil {
		return err
	}
	s.set(&next)
	return nil
}
