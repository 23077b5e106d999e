// Package server runs the local HTTP listener that completes an authorization-code login.
//
// # Router
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] wraps handlers in reverse order
// (last added executes first). [BasicRouter] uses [http.ServeMux] method patterns internally.
//
// # OAuth Callback
//
// [OAuthHandler] validates the state parameter, hands the authorization code to an [Authorizer] (the token
// lifecycle manager) and sends exactly one [OAuthResult] through its channel. Repeat callbacks are rejected.
//
// sbx auth login binds the listener with [Listen] at the host and port from the [server] config section, opens
// the provider's consent page, and waits with [Await] until the callback arrives or the login deadline passes.
package server
