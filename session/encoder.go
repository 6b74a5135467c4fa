package session

import (
	"fmt"

	"github.com/MrEthical07/goSession/identity"
)

// KeySet names the three persisted keys of one domain.
type KeySet struct {
	Token        string
	RefreshToken string
	Principal    string
}

// Keys returns the key layout for d.
func Keys(d identity.Domain) KeySet {
	return KeySet{
		Token:        string(d) + "Token",
		RefreshToken: string(d) + "RefreshToken",
		Principal:    string(d),
	}
}

// All returns the keys in a fixed order.
func (k KeySet) All() []string {
	return []string{k.Token, k.RefreshToken, k.Principal}
}

// Record is the raw persisted form of one domain's credential. Empty fields
// are absent keys.
type Record struct {
	Domain       identity.Domain
	Token        string
	RefreshToken string
	Principal    string
}

// Empty reports whether no key is stored for the domain.
func (r Record) Empty() bool {
	return r.Token == "" && r.RefreshToken == "" && r.Principal == ""
}

// Complete reports whether both the token and the principal are stored. The
// refresh token is optional.
func (r Record) Complete() bool {
	return r.Token != "" && r.Principal != ""
}

func recordFrom(d identity.Domain, values map[string]string) Record {
	keys := Keys(d)
	return Record{
		Domain:       d,
		Token:        values[keys.Token],
		RefreshToken: values[keys.RefreshToken],
		Principal:    values[keys.Principal],
	}
}

// Encode maps a credential onto its three keys.
func Encode(c identity.Credential) (map[string]string, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	if c.Token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrCredentialsRejected)
	}
	principal, err := identity.EncodePrincipal(c.Principal)
	if err != nil {
		return nil, err
	}

	keys := Keys(c.Domain)
	return map[string]string{
		keys.Token:        c.Token,
		keys.RefreshToken: c.RefreshToken,
		keys.Principal:    string(principal),
	}, nil
}

// Decode rebuilds a credential from a record. It does not evaluate token
// expiry.
func Decode(r Record) (*identity.Credential, error) {
	if r.Empty() {
		return nil, ErrCredentialNotFound
	}
	if !r.Complete() {
		return nil, fmt.Errorf("%w: incomplete record for %s", ErrCredentialCorrupt, r.Domain)
	}
	p, err := identity.DecodePrincipal(r.Domain, []byte(r.Principal))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialCorrupt, err)
	}
	return &identity.Credential{
		Domain:       r.Domain,
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
		Principal:    p,
	}, nil
}
