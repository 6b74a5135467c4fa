// Package jwt decodes bearer tokens issued by the platform backend and decides
// whether they are still usable.
//
// Only the payload segment carries meaning here: tokens are parsed without
// signature verification (the backend that issued them is the verifier) and
// must contain a numeric exp claim. Failures are reported as values, never
// panics: [Validator.Check] returns a [Result] whose [Reason] separates
// malformed tokens from expired ones.
//
// # What this package must NOT do
//
//   - Sign or verify tokens.
//   - Perform I/O or touch persisted credentials.
//   - Import goSession, session, or transport.
package jwt
