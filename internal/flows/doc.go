// Package flows contains the orchestrators behind AuthContext operations.
//
// Each flow function (RunLogin, RunRefresh, RunLogout) accepts a typed
// dependency struct and returns a result carrying a failure kind. The root
// package maps failure kinds to errors, metrics and audit events in one place.
//
// # Architecture boundaries
//
// Flows coordinate session state, the token endpoint client and the token
// validator. They do NOT own any of these resources; ownership stays with
// AuthContext.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Coalesce concurrent refreshes. The transport pipeline does that.
package flows
