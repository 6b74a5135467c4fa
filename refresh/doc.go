// Package refresh is the client for the backend's per-domain token endpoints.
//
// # Endpoints
//
//   - POST {base}/{domain}/login → {token, refreshToken, principal}
//   - POST {base}/{domain}/refresh-token {refreshToken} → {token, refreshToken?, principal?}
//
// Paths are configurable; "{domain}" is replaced by the domain name.
// A non-2xx reply is a [*StatusError] matching [ErrRejected]; network failures
// match [ErrTransport]; undecodable bodies match [ErrDecode].
//
// # Architecture boundaries
//
// This package only speaks HTTP to the backend. Persisting the returned
// credential, coalescing concurrent refreshes and logging out on failure are
// handled by the caller.
//
// # What this package must NOT do
//
//   - Send requests through the authenticated transport pipeline (it would
//     recurse on 401).
//   - Touch session state or persisted keys.
//   - Import goSession.
package refresh
