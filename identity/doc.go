// Package identity defines the identity domains, roles, principals and
// credentials shared by every other goSession package.
//
// # Domains and roles
//
// Each [Domain] (user, vendor, admin) is an independent identity namespace with
// its own credential. [Role] is the effective role derived from which domains
// are authenticated; [ResolveRole] applies the fixed precedence
// Admin > Vendor > User > Anonymous.
//
// # Principals
//
// [Principal] is a tagged variant: one concrete struct per domain
// ([User], [Vendor], [Admin]). Principals are decoded and validated once with
// [DecodePrincipal] at the persistence boundary; call sites never re-check the
// shape.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import any other goSession package.
package identity
