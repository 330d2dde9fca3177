// Package client provides the shared HTTP client for the Funnel CRM backend.
//
// # Overview
//
// One *http.Client with a cookie jar carries the session. Its transport chain
// does the work the rest of the toolkit relies on:
//
//   - request side: while an auth-failure episode is blocking, non-login
//     requests are rejected client-side with an AuthInProgress error before
//     any network I/O; otherwise the active organization id is attached as
//     x-org-id and a uuid as X-Request-ID.
//   - response side: every non-2xx response is classified into the
//     pkg/apierror taxonomy; session-expired classifications open an
//     auth-failure episode on the injected state machine.
//
// Requests already in flight when an episode opens are not canceled; their
// late failures classify normally and find the episode already open.
//
// The base transport is wrapped with otelhttp, and request counts/latency are
// recorded against the injected Prometheus metrics.
//
// # Related Packages
//
//   - pkg/provider: resource CRUD on top of Get/Post/Put/Delete
//   - pkg/auth: login/logout/session-check flows
package client
