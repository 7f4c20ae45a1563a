// Package server runs the local listener the remote auth service redirects back to.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Login Return
//
// [CallbackHandler] serves /callback. When the request carries login return parameters it runs a
// reconciliation pass for that URL, then answers 303 See Other to the same URL with the auth
// parameters removed, so the address bar never keeps them. The first result is published on a
// channel that receives exactly one value and is then closed.
//
// [LoginFlow] ties it together for the CLI: start [Server], open the login page, wait for the
// return or a timeout, shut down.
//
// # Other Routes
//
//   - /state : the current state as JSON ([StateHandler])
//   - /metrics : Prometheus exposition
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
