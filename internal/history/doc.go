// Package history records device and alarm state changes to InfluxDB.
//
// Recording is best-effort and non-blocking: points are batched by the
// client library and flushed asynchronously, and write failures are
// logged rather than surfaced to callers. The realtime path never waits
// on the history store.
package history
