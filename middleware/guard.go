package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goSession/identity"
)

type roleContextKey struct{}

// RoleSource reports the current role.
type RoleSource interface {
	Role() identity.Role
}

// RoleSourceFunc adapts a function to RoleSource.
type RoleSourceFunc func() identity.Role

func (f RoleSourceFunc) Role() identity.Role { return f() }

// RoleFromContext returns the role stored by Guard.
func RoleFromContext(ctx context.Context) (identity.Role, bool) {
	role, ok := ctx.Value(roleContextKey{}).(identity.Role)
	return role, ok
}

// Options tune Guard.
type Options struct {
	// OnDeny is called for every redirect.
	OnDeny func(r *http.Request, current identity.Role, d Decision)
}

// Guard returns middleware that evaluates CanAccess on every request and
// answers denied requests with 302 Found.
func Guard(source RoleSource, paths Paths, required ...identity.Role) func(http.Handler) http.Handler {
	return GuardWithOptions(source, paths, Options{}, required...)
}

// GuardWithOptions is Guard with observation hooks.
func GuardWithOptions(source RoleSource, paths Paths, opts Options, required ...identity.Role) func(http.Handler) http.Handler {
	required = append([]identity.Role(nil), required...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current := identity.RoleAnonymous
			if source != nil {
				current = source.Role()
			}

			d := CanAccess(required, current, paths)
			if !d.Allow {
				if opts.OnDeny != nil {
					opts.OnDeny(r, current, d)
				}
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), roleContextKey{}, current)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser admits only end users.
func RequireUser(source RoleSource, paths Paths) func(http.Handler) http.Handler {
	return Guard(source, paths, identity.RoleUser)
}

// RequireVendor admits only vendors.
func RequireVendor(source RoleSource, paths Paths) func(http.Handler) http.Handler {
	return Guard(source, paths, identity.RoleVendor)
}

// RequireAdmin admits only administrators.
func RequireAdmin(source RoleSource, paths Paths) func(http.Handler) http.Handler {
	return Guard(source, paths, identity.RoleAdmin)
}
