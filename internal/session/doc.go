// Package session persists gateway session state in the key-value store
// and builds per-request upstream sessions from it.
//
// Three kinds of state live here, each under its own key and TTL:
//   - the upstream refresh token for a user, kept for 90 days
//   - the currently valid local refresh token, kept for its own lifetime
//     and compared on every refresh to detect token reuse
//   - parked MFA sessions: the credentials, cookies and PKCE verifier of
//     a login attempt stopped at a multi-factor challenge, kept for five
//     minutes while the user fetches their code
//
// The store never holds passwords beyond the MFA window and never holds
// upstream access tokens at all; those are minted per request.
package session
