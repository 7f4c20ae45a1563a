// Package auth reconciles the visitor's authentication state.
//
// A [Reconciler] pass decides one authoritative [models.AuthState] using a fixed precedence:
//  1. login return parameters on the page [Location] (logged_in=true), which are then stripped
//  2. a fresh (under 24h) authenticated snapshot from the session cache
//  3. the remote status check, when remote fallback is enabled
//
// Anything else is logged out. Failures never surface as a separate state.
//
// Observers registered with [Reconciler.Subscribe] are notified only on change. [Poller] drives
// periodic and user-triggered rechecks.
package auth
