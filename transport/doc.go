// Package transport implements the authenticated request pipeline.
//
// [Pipeline] is an [http.RoundTripper]. For every request it resolves the
// current role, attaches "Authorization: Bearer <token>" for that role's
// domain and forwards the request. A 401 answered to an authenticated request
// triggers one reauthentication of the domain, coalesced across concurrent
// callers, followed by at most one retry of the original request.
//
// # Architecture boundaries
//
// The pipeline only sees an [Authority]. Refresh-token exchange, persistence
// and logout on failure happen behind Authority.Reauthenticate.
//
// # What this package must NOT do
//
//   - Retry a request more than once.
//   - Log bearer or refresh tokens.
//   - Import goSession.
package transport
