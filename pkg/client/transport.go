package client

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/funnelhq/funnel/pkg/apierror"
	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/observability"
	"github.com/funnelhq/funnel/pkg/orgstore"
)

// OrgHeader carries the active organization id on every scoped request
const OrgHeader = "x-org-id"

// RequestIDHeader carries a per-request uuid for log correlation
const RequestIDHeader = "X-Request-ID"

// LoginPath is the one endpoint exempt from auth-failure blocking
const LoginPath = "/auth/login"

// interceptor is the request-side half of the wrapper: it rejects doomed
// requests during an auth-failure episode before any network I/O, then
// attaches org scoping and a request id.
type interceptor struct {
	base    http.RoundTripper
	machine *authstate.Machine
	store   orgstore.Store
	metrics *observability.Metrics

	// loginPath is LoginPath joined onto the base URL's path prefix, so the
	// exemption holds for bases like https://host/api
	loginPath string
}

func (t *interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	loginPath := t.loginPath
	if loginPath == "" {
		loginPath = LoginPath
	}
	if t.machine != nil && t.machine.Blocking() && req.URL.Path != loginPath {
		if t.metrics != nil {
			t.metrics.BlockedRequestsTotal.Inc()
		}
		return nil, apierror.AuthInProgress()
	}

	// RoundTrippers must not mutate the caller's request
	req = req.Clone(req.Context())
	if t.store != nil {
		if orgID := t.store.ActiveID(); orgID != "" {
			req.Header.Set(OrgHeader, orgID)
		}
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if t.metrics != nil {
		t.metrics.RequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		t.metrics.RequestsTotal.WithLabelValues(req.Method, status).Inc()
	}
	return resp, err
}
