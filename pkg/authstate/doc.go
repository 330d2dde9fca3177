// Package authstate coordinates auth-failure episodes between the HTTP
// transport and the auth provider.
//
// # Overview
//
// When the backend reports an expired session, the richer auth layer should
// get first right of refusal: it can log out cleanly and route with context.
// But it may not be running or reachable. The Machine gives it a bounded
// window (DefaultDeadline) to call MarkHandled; if the window lapses the
// machine publishes a single session-invalid event and subscribers force the
// user back to login.
//
// Exactly one of {external handler, deadline fallback} wins per episode.
// While the episode is open, the transport rejects non-login requests
// client-side so a dead session cannot generate a storm of doomed calls.
//
// # Usage
//
//	machine := authstate.NewMachine(0)
//	go func() {
//		<-machine.SessionInvalid()
//		store.Clear()
//		// route to /login
//	}()
//
// # Related Packages
//
//   - pkg/client: calls Begin on classified session-expired errors
//   - pkg/auth: calls MarkHandled and Reset
package authstate
