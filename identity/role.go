package identity

// Role is the effective role of the current browser session. Values are
// ordered by precedence: a higher value wins when several domains are
// authenticated at once.
type Role uint8

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleVendor
	RoleAdmin
)

// ParseRole maps a role name to a Role. Unknown names map to RoleAnonymous.
func ParseRole(s string) Role {
	switch s {
	case "user":
		return RoleUser
	case "vendor":
		return RoleVendor
	case "admin":
		return RoleAdmin
	default:
		return RoleAnonymous
	}
}

// Domain returns the domain whose credential grants r. Anonymous has none.
func (r Role) Domain() (Domain, bool) {
	switch r {
	case RoleUser:
		return DomainUser, true
	case RoleVendor:
		return DomainVendor, true
	case RoleAdmin:
		return DomainAdmin, true
	default:
		return "", false
	}
}

// Authenticated reports whether r is any role other than RoleAnonymous.
func (r Role) Authenticated() bool {
	return r != RoleAnonymous
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleVendor:
		return "vendor"
	case RoleAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// AuthState is the view of a per-domain session needed to resolve a role.
type AuthState interface {
	Domain() Domain
	Authenticated() bool
}

// ResolveRole returns the single effective role for the given session states.
// When more than one domain is authenticated, which the exclusive-login rule
// should prevent, the highest-precedence role wins: Admin > Vendor > User.
func ResolveRole(states ...AuthState) Role {
	best := RoleAnonymous
	for _, s := range states {
		if s == nil || !s.Authenticated() {
			continue
		}
		if r := s.Domain().Role(); r > best {
			best = r
		}
	}
	return best
}
