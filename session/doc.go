// Package session persists per-domain credentials and holds the in-memory
// authentication state built on top of them.
//
// # Persistence layout
//
// Each identity domain owns three keys: "{domain}Token" (raw JWT),
// "{domain}RefreshToken" (raw refresh token) and "{domain}" (JSON principal).
// [TokenStore] reads and writes the three keys as one unit through a
// [Backend]; [MemoryBackend] and [RedisBackend] both apply multi-key writes
// atomically.
//
// # State
//
// [State] is the Anonymous/Authenticated state machine for one domain. Every
// transition re-validates the token and principal, and every rejected
// transition clears the domain's keys so no half-written credential survives.
//
// # What this package must NOT do
//
//   - Call the backend token endpoints (see refresh and transport).
//   - Decide which domain is active (see identity.ResolveRole).
//   - Import goSession.
package session
