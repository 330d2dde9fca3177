package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/funnelhq/funnel/pkg/api"
	"github.com/funnelhq/funnel/pkg/apierror"
	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/client"
	"github.com/funnelhq/funnel/pkg/observability"
	"github.com/funnelhq/funnel/pkg/orgstore"
)

// LoginRoute is the redirect target for unrecovered auth failures
const LoginRoute = "/login"

// Credentials carries a login request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Options configures a Provider
type Options struct {
	Client  *client.Client
	Store   orgstore.Store
	Machine *authstate.Machine
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Provider owns the session lifecycle: login, logout, session checks, and
// first right of refusal on session-expired errors.
type Provider struct {
	client  *client.Client
	store   orgstore.Store
	machine *authstate.Machine
	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates an auth Provider
func New(opts Options) *Provider {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Provider{
		client:  opts.Client,
		store:   opts.Store,
		machine: opts.Machine,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Login authenticates, loads the user's organizations into the store, and
// resets any auth-failure episode. The session cookie lands in the client's
// jar as a side effect of the login response.
func (p *Provider) Login(ctx context.Context, email, password string) error {
	if _, err := p.client.Post(ctx, client.LoginPath, Credentials{Email: email, Password: password}); err != nil {
		return err
	}

	// Reset before the org fetch: during an open episode the interceptor
	// blocks every non-login request, including our own /org/current.
	p.machine.Reset()

	orgs, err := p.fetchOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("login succeeded but organization fetch failed: %w", err)
	}
	if err := p.store.SetOrganizationList(ctx, orgs); err != nil {
		return fmt.Errorf("failed to persist organizations: %w", err)
	}

	p.logger.WithField("email", email).Info("logged in")
	return nil
}

// Logout ends the server session (best effort) and clears organization
// state. Local state is cleared even when the server call fails: a dead
// session should never leave stale org scoping behind.
func (p *Provider) Logout(ctx context.Context) error {
	_, err := p.client.Post(ctx, "/auth/logout", nil)
	if clearErr := p.store.Clear(ctx); clearErr != nil {
		return clearErr
	}
	if err != nil && !apierror.IsSessionExpired(err) {
		return err
	}
	return nil
}

// Check verifies the session is alive. On failure it returns the route the
// caller should navigate to alongside the error.
func (p *Provider) Check(ctx context.Context) (string, error) {
	if _, err := p.client.Get(ctx, "/user/logged", nil); err != nil {
		return LoginRoute, err
	}
	return "", nil
}

// Identity returns the logged-in user
func (p *Provider) Identity(ctx context.Context) (api.User, error) {
	payload, err := p.client.Get(ctx, "/user/logged", nil)
	if err != nil {
		return api.User{}, err
	}
	var user api.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return api.User{}, fmt.Errorf("malformed user response: %w", err)
	}
	return user, nil
}

// HandleError gives the auth layer first right of refusal on a failed
// operation. For session-expired errors it tries to claim the open episode;
// if it wins, it clears organization state and returns the login route. A
// false return means the caller (or the fallback) owns the reaction.
func (p *Provider) HandleError(ctx context.Context, err error) (string, bool) {
	if !apierror.IsSessionExpired(err) {
		return "", false
	}
	if !p.machine.MarkHandled() {
		// The fallback already fired (or no episode is open); at most one
		// logout reaction per episode.
		return "", false
	}
	if clearErr := p.store.Clear(ctx); clearErr != nil {
		p.logger.WithError(clearErr).Warn("failed to clear organization state")
	}
	p.logger.Info("session expired, redirecting to login")
	return LoginRoute, true
}

// RunFallback consumes session-invalid events from the state machine until
// ctx ends. Each event clears organization state and invokes onLogout with
// the login route. This is the deadline path for episodes nothing handled.
func (p *Provider) RunFallback(ctx context.Context, onLogout func(redirectTo string)) {
	events := p.machine.SessionInvalid()
	for {
		select {
		case <-ctx.Done():
			return
		case <-events:
			clearCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := p.store.Clear(clearCtx); err != nil {
				p.logger.WithError(err).Warn("failed to clear organization state")
			}
			cancel()
			if p.metrics != nil {
				p.metrics.FallbackLogoutsTotal.Inc()
			}
			p.logger.Warn("session expired and no handler claimed it, forcing logout")
			if onLogout != nil {
				onLogout(LoginRoute)
			}
		}
	}
}

// fetchOrganizations loads the user's organizations, tolerating both the
// enveloped and bare-array response shapes
func (p *Provider) fetchOrganizations(ctx context.Context) ([]api.Organization, error) {
	payload, err := p.client.Get(ctx, "/org/current", nil)
	if err != nil {
		return nil, err
	}

	var bare []api.Organization
	if err := json.Unmarshal(payload, &bare); err == nil {
		return bare, nil
	}
	var envelope struct {
		Items []api.Organization `json:"items"`
		Data  []api.Organization `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("malformed organization response: %w", err)
	}
	if envelope.Items != nil {
		return envelope.Items, nil
	}
	return envelope.Data, nil
}
