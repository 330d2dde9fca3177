package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind buckets every failure surfaced by the HTTP layer into a fixed taxonomy.
// Callers branch on Kind (or StatusCode), never on transport error shapes.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthInProgress Kind = "auth_in_progress"
	KindSessionExpired Kind = "session_expired"
	KindValidation     Kind = "validation"
	KindPermission     Kind = "permission"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindServer         Kind = "server"
	KindUnavailable    Kind = "unavailable"
	KindUnknown        Kind = "unknown"
)

// MissingTokenDetail is the exact backend error detail that identifies an
// expired or absent session cookie surfaced as a 422. Responses carrying it
// are remapped to 401 semantics. The match is intentionally exact: the
// backend owns this string, and a looser match risks swallowing unrelated
// validation failures.
const MissingTokenDetail = "Missing token cookie"

// Error is the single classified error shape that propagates out of the HTTP
// layer. StatusCode is 0 for failures that never produced an HTTP response.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Detail carries the raw server-provided detail string, if any
	Detail string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Network wraps a transport-level failure that never reached the server
func Network(err error) *Error {
	e := &Error{Kind: KindNetwork, Message: "network error"}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// AuthInProgress is the rejection returned for non-login requests issued
// while an auth-failure episode is blocking outbound traffic
func AuthInProgress() *Error {
	return &Error{Kind: KindAuthInProgress, Message: "authentication in progress"}
}

// RecordNotFound reports a record missing from a list-scan lookup. It is
// distinct from an HTTP 404: the list request itself succeeded.
func RecordNotFound(resource, id string) *Error {
	return &Error{
		Kind:       KindNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s %q not found", resource, id),
	}
}

// Classify maps an HTTP failure status plus the server detail string into the
// taxonomy. A 422 whose detail equals MissingTokenDetail is remapped to 401.
func Classify(status int, detail string) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return sessionExpired(detail)
	case status == http.StatusUnprocessableEntity:
		if detail == MissingTokenDetail {
			return sessionExpired("")
		}
		return &Error{
			Kind:       KindValidation,
			StatusCode: status,
			Message:    messageOr(detail, "validation failed"),
			Detail:     detail,
		}
	case status == http.StatusForbidden:
		return &Error{
			Kind:       KindPermission,
			StatusCode: status,
			Message:    messageOr(detail, "permission denied"),
			Detail:     detail,
		}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, StatusCode: status, Message: "not found", Detail: detail}
	case status == http.StatusConflict:
		return &Error{Kind: KindConflict, StatusCode: status, Message: "conflict", Detail: detail}
	case status == http.StatusServiceUnavailable:
		return &Error{Kind: KindUnavailable, StatusCode: status, Message: "service temporarily unavailable", Detail: detail}
	case status >= 500:
		return &Error{Kind: KindServer, StatusCode: status, Message: "server error", Detail: detail}
	case status >= 400:
		return &Error{Kind: KindUnknown, StatusCode: status, Message: "request failed", Detail: detail}
	default:
		return &Error{Kind: KindUnknown, StatusCode: status, Message: "unexpected response", Detail: detail}
	}
}

func sessionExpired(detail string) *Error {
	return &Error{
		Kind:       KindSessionExpired,
		StatusCode: http.StatusUnauthorized,
		Message:    messageOr(detail, "session expired"),
		Detail:     detail,
	}
}

func messageOr(detail, fallback string) string {
	if detail != "" {
		return detail
	}
	return fallback
}

// As extracts a classified error from an error chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a classified error of the given kind
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// IsSessionExpired reports whether err requires a fresh login
func IsSessionExpired(err error) bool {
	return IsKind(err, KindSessionExpired)
}

// IsAuthInProgress reports whether err is the client-side blocking rejection
func IsAuthInProgress(err error) bool {
	return IsKind(err, KindAuthInProgress)
}

// IsNotFound reports whether err is a not-found, from either an HTTP 404 or a
// failed list-scan lookup
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}
