package identity

import (
	"errors"
	"strings"
)

// ErrUnknownDomain is returned when a string does not name a known domain.
var ErrUnknownDomain = errors.New("unknown identity domain")

// Domain is an independent identity namespace.
type Domain string

const (
	DomainUser   Domain = "user"
	DomainVendor Domain = "vendor"
	DomainAdmin  Domain = "admin"
)

// Domains returns every domain in persistence order.
func Domains() []Domain {
	return []Domain{DomainUser, DomainVendor, DomainAdmin}
}

// ParseDomain maps a case-insensitive name to a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ErrUnknownDomain
	}
	return d, nil
}

// Valid reports whether d is one of the three known domains.
func (d Domain) Valid() bool {
	switch d {
	case DomainUser, DomainVendor, DomainAdmin:
		return true
	default:
		return false
	}
}

// Role returns the role granted by an authenticated credential in d.
func (d Domain) Role() Role {
	switch d {
	case DomainUser:
		return RoleUser
	case DomainVendor:
		return RoleVendor
	case DomainAdmin:
		return RoleAdmin
	default:
		return RoleAnonymous
	}
}

func (d Domain) String() string {
	return string(d)
}
