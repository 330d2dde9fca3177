// Package auth owns the session lifecycle against the CRM backend: login,
// logout, session checks, identity, and the auth layer's side of the
// auth-failure coordination described in pkg/authstate.
//
// Login populates the organization store and resets the state machine;
// HandleError claims open failure episodes; RunFallback reacts to the
// deadline path when nothing claimed one. Redirect decisions are returned as
// route strings so the navigation layer stays out of this package.
package auth
