// Package fakebackend is an in-process stand-in for the platform backend.
//
// It serves POST /{domain}/login, POST /{domain}/refresh-token and a
// protected GET /api/* resource. Tokens are HS256 JWTs with a short lifetime;
// refresh tokens are single use. Counters let tests assert how many refresh
// exchanges took place.
//
// # What this package must NOT do
//
//   - Import goSession. It is used by its tests, the load test and the example.
package fakebackend
