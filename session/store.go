package session

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
)

// TokenStore persists one credential per domain on top of a [Backend]. It is
// the only boundary where persisted principals are decoded and validated.
type TokenStore struct {
	backend Backend
}

// NewTokenStore returns a TokenStore over backend.
func NewTokenStore(backend Backend) *TokenStore {
	return &TokenStore{backend: backend}
}

// Raw returns the undecoded keys stored for d.
func (s *TokenStore) Raw(ctx context.Context, d identity.Domain) (Record, error) {
	if !d.Valid() {
		return Record{}, identity.ErrUnknownDomain
	}
	values, err := s.backend.Load(ctx, Keys(d).All())
	if err != nil {
		return Record{}, err
	}
	return recordFrom(d, values), nil
}

// Get returns the credential stored for d. It returns [ErrCredentialNotFound]
// when nothing is stored and [ErrCredentialCorrupt] when the keys cannot be
// decoded into a credential.
func (s *TokenStore) Get(ctx context.Context, d identity.Domain) (*identity.Credential, error) {
	rec, err := s.Raw(ctx, d)
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// Set persists c, replacing all three keys of its domain at once.
func (s *TokenStore) Set(ctx context.Context, c identity.Credential) error {
	values, err := Encode(c)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, values)
}

// Clear removes every key of d. Clearing an empty domain is a no-op.
func (s *TokenStore) Clear(ctx context.Context, d identity.Domain) error {
	if !d.Valid() {
		return identity.ErrUnknownDomain
	}
	return s.backend.Remove(ctx, Keys(d).All())
}
