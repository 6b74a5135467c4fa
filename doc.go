// Package goSession is the client-side session layer for a platform with three
// independently authenticated identity domains: user, vendor and admin.
//
// An [AuthContext] holds one session per domain, persists credentials through
// a memory or Redis backend, attaches the current role's bearer token to every
// outbound request and renews expired tokens on 401 with at most one retry.
// Route gating by role is available as a pure decision ([AuthContext.CanAccess])
// and as net/http middleware ([AuthContext.Guard]).
//
//	actx, err := goSession.New().
//		WithBaseURL("https://api.example.com").
//		Build()
//	if err != nil { ... }
//	defer actx.Close()
//	if _, err := actx.Start(ctx); err != nil { ... }
//	resp, err := actx.HTTPClient().Get("https://api.example.com/vendor/events")
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [AuthContext], [Builder], [Config]
// and value types (CleanupReport, MetricsSnapshot). Token decoding lives in jwt,
// credential persistence in session, the backend client in refresh, the
// request pipeline in transport and the route guard in middleware. Flow
// orchestration and audit dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Issue or sign tokens. The backend owns issuance.
//   - Keep package-level session state. Every AuthContext is independent.
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
