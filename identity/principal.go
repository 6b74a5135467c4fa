package identity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrPrincipalMalformed is returned when a principal payload is not valid JSON
	// for its domain.
	ErrPrincipalMalformed = errors.New("principal malformed")
	// ErrPrincipalMissingID is returned when a principal carries no identifying id.
	ErrPrincipalMissingID = errors.New("principal missing id")
	// ErrPrincipalDomainMismatch is returned when a principal is attached to a
	// credential of another domain.
	ErrPrincipalDomainMismatch = errors.New("principal domain mismatch")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ID is a principal identifier. Backends emit it either as a JSON string or a
// JSON number; both decode to the same textual form and it is always
// re-encoded as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("principal id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Principal is the decoded identity record tied to a credential. It is
// implemented by exactly one struct per domain.
type Principal interface {
	Domain() Domain
	PrincipalID() string
	DisplayName() string
}

// User is an end customer.
type User struct {
	ID    ID     `json:"id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (User) Domain() Domain { return DomainUser }
func (u User) PrincipalID() string { return string(u.ID) }
func (u User) DisplayName() string { return u.Name }

// Vendor is an event vendor account.
type Vendor struct {
	ID           ID     `json:"id" validate:"required"`
	BusinessName string `json:"businessName,omitempty"`
	ContactName  string `json:"contactName,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

func (Vendor) Domain() Domain { return DomainVendor }
func (v Vendor) PrincipalID() string { return string(v.ID) }
func (v Vendor) DisplayName() string { return v.BusinessName }

// Admin is a platform administrator.
type Admin struct {
	ID    ID     `json:"id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (Admin) Domain() Domain { return DomainAdmin }
func (a Admin) PrincipalID() string { return string(a.ID) }
func (a Admin) DisplayName() string { return a.Name }

// DecodePrincipal decodes the JSON principal stored for domain d and validates
// that it carries an id.
func DecodePrincipal(d Domain, data []byte) (Principal, error) {
	var (
		p   Principal
		err error
	)
	switch d {
	case DomainUser:
		var u User
		err = json.Unmarshal(data, &u)
		p = u
	case DomainVendor:
		var v Vendor
		err = json.Unmarshal(data, &v)
		p = v
	case DomainAdmin:
		var a Admin
		err = json.Unmarshal(data, &a)
		p = a
	default:
		return nil, ErrUnknownDomain
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrincipalMalformed, err)
	}
	if err := ValidatePrincipal(p); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodePrincipal returns the persisted JSON form of p.
func EncodePrincipal(p Principal) ([]byte, error) {
	if err := ValidatePrincipal(p); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

// ValidatePrincipal checks that p is non-nil and carries an id.
func ValidatePrincipal(p Principal) error {
	if p == nil {
		return ErrPrincipalMissingID
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrPrincipalMissingID, err)
	}
	return nil
}
