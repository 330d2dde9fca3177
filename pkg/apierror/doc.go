// Package apierror defines the classified error taxonomy for the Funnel
// client.
//
// # Overview
//
// Every failure that crosses the HTTP boundary is normalized into a single
// *apierror.Error carrying a Kind, the HTTP status code (0 when no response
// was received), a display message, and the raw server detail string. Callers
// never see transport-level errors.
//
// # Classification
//
// Classify implements the status-to-kind table, including the one special
// case: a 422 whose server detail equals MissingTokenDetail is an expired
// session in disguise and is remapped to 401 semantics.
//
// # Usage
//
//	res, err := dp.List(ctx, "lead", params)
//	if apierror.IsSessionExpired(err) {
//		// redirect to login
//	}
//
// # Related Packages
//
//   - pkg/client: constructs these errors at the network boundary
//   - pkg/authstate: consumes session-expired classifications
package apierror
