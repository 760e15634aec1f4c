// Package auth issues and validates the gateway's own JWTs.
//
// Upstream identity (passwords, MFA) belongs to the Vivint cloud; the
// gateway never stores credentials. What it issues instead is a local
// access/refresh token pair:
//   - access tokens are short-lived and carry the upstream refresh token
//     in a private claim, so any request can open an upstream session
//   - refresh tokens are long-lived and exchanged for new pairs, with
//     rotation enforced against the session store
//
// Both are HS256-signed with the server secret from configuration.
package auth
