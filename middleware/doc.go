// Package middleware gates routes by role.
//
// # Guards
//
//   - [CanAccess] is the pure decision function.
//   - [Guard] evaluates it per request as net/http middleware.
//   - [RequireUser], [RequireVendor], [RequireAdmin] are single-role shortcuts.
//
// A denied request is redirected with 302 Found: anonymous callers to the
// login of the first required role, authenticated callers to the
// not-authorized path. Allowed requests carry the role in their context
// ([RoleFromContext]).
//
// # Architecture boundaries
//
// The guard only reads the current role from a [RoleSource]. It does not see
// tokens or sessions.
//
// # What this package must NOT do
//
//   - Return errors for unauthorized navigation (it is a Decision).
//   - Cache the role across requests.
//   - Import goSession.
package middleware
