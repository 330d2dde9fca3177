package devserver

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/funnelhq/funnel/pkg/api"
	"github.com/funnelhq/funnel/pkg/observability"
)

// SessionCookie is the cookie the mock backend issues on login
const SessionCookie = "funnel_session"

// Options configures a Server
type Options struct {
	Logger *observability.Logger

	// Password accepted for every fixture user; defaults to "secret"
	Password string
}

// Server is an in-memory mock of the CRM backend, faithful to its quirks:
// session-cookie auth, the 422 missing-token response, x-org-id scoping, and
// a different list envelope per resource. It exists for local development
// and for exercising the full client stack in integration tests.
type Server struct {
	mu       sync.Mutex
	users    []api.User
	orgs     []api.Organization
	data     map[string]dataset
	sessions map[string]string // token -> user id
	password string
	logger   *observability.Logger
	router   *mux.Router
}

// envelopeShape picks which of the backend's three list envelopes a resource
// uses. Resources not listed use the items envelope.
var envelopeShape = map[string]string{
	"lead":    "items",
	"contact": "data",
	"task":    "bare",
}

// listOnly marks resources with no single-item endpoint
var listOnly = map[string]bool{
	"lead": true,
}

// New creates a Server with seeded fixtures
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	password := opts.Password
	if password == "" {
		password = "secret"
	}

	s := &Server{
		users:    seedUsers(),
		orgs:     seedOrganizations(),
		data:     seedData(),
		sessions: make(map[string]string),
		password: password,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the server's HTTP handler with middleware installed
func (s *Server) Handler() http.Handler {
	return s.recoverPanics(s.logRequests(s.router))
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/user/logged", s.requireSession(s.handleLogged)).Methods(http.MethodGet)
	r.HandleFunc("/org/current", s.requireSession(s.handleOrganizations)).Methods(http.MethodGet)

	r.HandleFunc("/{resource}", s.requireOrg(s.handleList)).Methods(http.MethodGet)
	r.HandleFunc("/{resource}", s.requireOrg(s.handleCreate)).Methods(http.MethodPost)
	r.HandleFunc("/{resource}/{id}", s.requireOrg(s.handleGet)).Methods(http.MethodGet)
	r.HandleFunc("/{resource}/{id}", s.requireOrg(s.handleUpdate)).Methods(http.MethodPut)
	r.HandleFunc("/{resource}/{id}", s.requireOrg(s.handleDelete)).Methods(http.MethodDelete)
	return r
}

// requireSession authenticates the request from the session cookie. The real
// backend answers a missing or unknown cookie with 422 and an exact detail
// string rather than a 401; the mock reproduces that.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, missingTokenDetail)
			return
		}
		s.mu.Lock()
		_, ok := s.sessions[cookie.Value]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnprocessableEntity, missingTokenDetail)
			return
		}
		next(w, r)
	}
}

// requireOrg layers organization scoping on top of session auth
func (s *Server) requireOrg(next http.HandlerFunc) http.HandlerFunc {
	return s.requireSession(func(w http.ResponseWriter, r *http.Request) {
		orgID := r.Header.Get("x-org-id")
		if orgID == "" {
			writeDetail(w, http.StatusBadRequest, "missing x-org-id header")
			return
		}
		if !s.knownOrg(orgID) {
			writeDetail(w, http.StatusForbidden, "organization not accessible")
			return
		}
		next(w, r)
	})
}

func (s *Server) knownOrg(id string) bool {
	for _, org := range s.orgs {
		if org.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) sessionUser(r *http.Request) (api.User, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return api.User{}, false
	}
	s.mu.Lock()
	userID, ok := s.sessions[cookie.Value]
	s.mu.Unlock()
	if !ok {
		return api.User{}, false
	}
	for _, u := range s.users {
		if u.ID == userID {
			return u, true
		}
	}
	return api.User{}, false
}

func (s *Server) openSession(userID string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = userID
	s.mu.Unlock()
	return token
}

func (s *Server) closeSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
