// Package services talks to the remote EDJS auth service.
//
// # Status checks
//
// [StatusService] implements [StatusFetcher]. A check resolves within its timeout (10s by
// default) and never reports an error state to callers of Fetch: network failures, non-2xx
// responses, undecodable bodies and timeouts all resolve to logged out. [StatusService.Check]
// exposes the underlying error for diagnostics.
//
// Two request modes exist:
//   - credentialed : GET /api/auth/status with the captured session cookie and Accept: application/json
//   - callback : GET /api/auth/status?callback=authCallback_<id>, answered as authCallback_<id>({...})
//
// In callback mode the request runs in the background and hands its payload to a one-time
// registration in a [CallbackRegistry]. The registration is released and the request cancelled
// on every exit path, so late or foreign responses are dropped.
//
// # Endpoints
//
// [Endpoints] builds the navigation targets on the auth service (login, register, logout,
// reservation and dropdown links).
package services
