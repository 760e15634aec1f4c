// Package vivint implements a client for the Vivint Sky cloud.
//
// It covers the full client lifecycle:
//   - PKCE OAuth login with multi-factor handoff and refresh-token renewal
//   - REST transport with bearer injection, automatic re-auth on 401 and
//     status classification
//   - gRPC camera control sharing the same session token
//   - A typed, observable site/panel/device tree kept live by the vendor's
//     realtime push channel
//
// The tree is built from the compact wire payloads the cloud emits. Every
// entity keeps the raw attribute map as the authoritative representation and
// derives a typed view from it; unknown wire keys survive in the raw map so
// newer cloud fields are never lost.
//
// Thread Safety:
//   - Account, System, AlarmPanel and device values are NOT safe for
//     concurrent mutation. All push-driven mutations happen on the single
//     stream goroutine; request-scoped accounts are never shared.
//   - The transport Client is safe for concurrent use.
package vivint
