package middleware

import "github.com/MrEthical07/goSession/identity"

// Paths are the redirect targets used by the guard.
type Paths struct {
	UserLogin     string
	VendorLogin   string
	AdminLogin    string
	NotAuthorized string
}

// DefaultPaths returns the stock redirect targets.
func DefaultPaths() Paths {
	return Paths{
		UserLogin:     "/login",
		VendorLogin:   "/vendor/login",
		AdminLogin:    "/admin/login",
		NotAuthorized: "/not-authorized",
	}
}

// LoginFor returns the login path for role. Roles without a domain map to the
// user login.
func (p Paths) LoginFor(role identity.Role) string {
	switch role {
	case identity.RoleVendor:
		return p.VendorLogin
	case identity.RoleAdmin:
		return p.AdminLogin
	default:
		return p.UserLogin
	}
}

// Decision is the outcome of a route check. Redirect is empty when Allow is
// set.
type Decision struct {
	Allow    bool
	Redirect string
}

// Allowed is the Allow decision.
func Allowed() Decision { return Decision{Allow: true} }

// RedirectTo is a decision to navigate to path.
func RedirectTo(path string) Decision { return Decision{Redirect: path} }

// CanAccess decides whether current may enter a route open to required.
//
// Anonymous callers are sent to the login of required[0], authenticated
// callers whose role is not listed to the not-authorized path. An empty
// required list admits any authenticated role.
func CanAccess(required []identity.Role, current identity.Role, paths Paths) Decision {
	if !current.Authenticated() {
		if len(required) == 0 {
			return RedirectTo(paths.UserLogin)
		}
		return RedirectTo(paths.LoginFor(required[0]))
	}
	if len(required) == 0 {
		return Allowed()
	}
	for _, r := range required {
		if r == current {
			return Allowed()
		}
	}
	return RedirectTo(paths.NotAuthorized)
}
