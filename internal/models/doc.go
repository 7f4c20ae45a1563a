// Package models defines the authentication data mirrored from the remote EDJS auth service.
//
// Three shapes carry the same information at different points of its life:
//   - [AuthState] : the authoritative value owned by the reconciler and rendered by projectors
//   - [CachedAuth] : the snapshot persisted in tab-scoped session storage with its capture time
//   - [StatusResponse] : the wire body of the remote status endpoint, never persisted directly
//
// [AuthState] keeps the invariant that User is non-nil if and only if Authenticated is true.
// [CachedAuth] is only ever surfaced while fresh, see [FreshnessWindow].
//
// [Spectacle] describes the catalogue entries that get a reservation button.
package models
