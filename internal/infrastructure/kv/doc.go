// Package kv provides Redis connectivity for the session store.
//
// This package manages:
//   - A single process-wide connection pool to the key-value store
//   - Connection verification at startup
//   - Lifecycle management (Close on shutdown)
//
// The session key schema itself lives in the session package; this package
// only owns the transport.
//
// Security Considerations:
//   - The Redis password is taken from KV_PASSWORD, never logged
//   - Stored values include upstream refresh tokens; restrict network access
//     to the store accordingly
//
// Usage:
//
//	store, err := kv.New(cfg.KV)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
package kv
