// Package database provides SQLite connectivity for the event journal.
//
// WAL mode allows the journal writer and API readers to share the file,
// and the busy timeout absorbs the brief lock windows that remain. The
// database file is created with owner-only permissions.
package database
