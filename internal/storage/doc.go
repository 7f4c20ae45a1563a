// Package storage implements scoped key/value persistence standing in for per-tab session storage.
//
// Every [Store] is bound to a single scope. Two stores with different scopes never observe each
// other's keys, even when they share a database or cache.
//
// Implementations:
//   - [SQLiteStore] : rows in the session_storage table keyed by (scope, key)
//   - [MemoryStore] : a process-local go-cache instance with scope-prefixed keys
package storage
