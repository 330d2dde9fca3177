package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/funnelhq/funnel/pkg/apierror"
	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/observability"
	"github.com/funnelhq/funnel/pkg/orgstore"
)

// Options configures a Client. Machine and Store are injected so a test (or
// a second client) never shares coordination state with another instance.
type Options struct {
	BaseURL string
	Timeout time.Duration

	Machine *authstate.Machine
	Store   orgstore.Store
	Metrics *observability.Metrics
	Logger  *observability.Logger

	// Transport overrides the base RoundTripper, used by tests
	Transport http.RoundTripper

	// Jar overrides the in-memory cookie jar; the CLI passes a persistent
	// one so the session survives between invocations
	Jar http.CookieJar
}

// Client is the shared HTTP client for the CRM backend. Session credentials
// live in its cookie jar; org scoping and failure classification happen in
// its transport so every caller sees the same behavior.
type Client struct {
	base    *url.URL
	http    *http.Client
	machine *authstate.Machine
	metrics *observability.Metrics
	logger  *observability.Logger
}

// New creates a Client with the interceptor chain installed
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", opts.BaseURL)
	}

	jar := opts.Jar
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	loginPath, err := url.JoinPath(base.Path, LoginPath)
	if err != nil {
		return nil, fmt.Errorf("invalid base path %q: %w", base.Path, err)
	}

	transport = otelhttp.NewTransport(transport)
	transport = &interceptor{
		base:      transport,
		machine:   opts.Machine,
		store:     opts.Store,
		metrics:   opts.Metrics,
		loginPath: loginPath,
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &Client{
		base: base,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   timeout,
		},
		machine: opts.Machine,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get issues a GET and returns the raw response body
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT with a JSON body
func (c *Client) Put(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	u := *c.base
	u.Path, _ = url.JoinPath(c.base.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The interceptor's blocking rejection surfaces wrapped in a
		// *url.Error; unwrap to the classified form.
		if cerr, ok := apierror.As(err); ok {
			return nil, cerr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WithError(err).WithField("path", path).Debug("request failed before a response")
		return nil, apierror.Network(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.Network(err)
	}

	if resp.StatusCode >= 400 {
		cerr := apierror.Classify(resp.StatusCode, parseDetail(payload))
		if cerr.Kind == apierror.KindSessionExpired && c.machine != nil {
			if c.metrics != nil {
				c.metrics.SessionExpiredTotal.Inc()
			}
			c.machine.Begin()
		}
		c.logger.WithField("path", path).WithField("status", resp.StatusCode).Debug(cerr.Message)
		return nil, cerr
	}

	return json.RawMessage(payload), nil
}

// parseDetail extracts the server's detail string from an error payload.
// The backend uses {"detail": ...}; {"error": ...} and {"message": ...} are
// accepted for older endpoints.
func parseDetail(payload []byte) string {
	var body struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	switch {
	case body.Detail != "":
		return body.Detail
	case body.Error != "":
		return body.Error
	default:
		return body.Message
	}
}
