package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel/pkg/auth"
	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/client"
	"github.com/funnelhq/funnel/pkg/orgstore"
	"github.com/funnelhq/funnel/pkg/provider"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(New(Options{}).Handler())
	t.Cleanup(server.Close)
	return server
}

// loggedInClient returns an http.Client holding a valid session cookie
func loggedInClient(t *testing.T, server *httptest.Server) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	hc := &http.Client{Jar: jar}

	body := bytes.NewBufferString(`{"email":"admin@funnel.test","password":"secret"}`)
	resp, err := hc.Post(server.URL+"/auth/login", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return hc
}

func getScoped(t *testing.T, hc *http.Client, rawURL, orgID string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	if orgID != "" {
		req.Header.Set("x-org-id", orgID)
	}
	resp, err := hc.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLoginRejectsBadPassword(t *testing.T) {
	server := newTestServer(t)

	body := bytes.NewBufferString(`{"email":"admin@funnel.test","password":"wrong"}`)
	resp, err := http.Post(server.URL+"/auth/login", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMissingCookieYieldsSentinelDetail(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/lead", nil)
	require.NoError(t, err)
	req.Header.Set("x-org-id", "org-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Missing token cookie", body.Detail)
}

func TestOrgScoping(t *testing.T) {
	server := newTestServer(t)
	hc := loggedInClient(t, server)

	resp := getScoped(t, hc, server.URL+"/lead", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = getScoped(t, hc, server.URL+"/lead", "org-unknown")
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	counts := map[string]int{}
	for _, orgID := range []string{"org-1", "org-2"} {
		resp := getScoped(t, hc, server.URL+"/lead", orgID)
		var body struct {
			Total int `json:"total"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		counts[orgID] = body.Total
	}
	assert.Equal(t, 3, counts["org-1"])
	assert.Equal(t, 1, counts["org-2"])
}

func TestEnvelopeShapePerResource(t *testing.T) {
	server := newTestServer(t)
	hc := loggedInClient(t, server)

	cases := map[string]func(t *testing.T, payload []byte){
		"lead": func(t *testing.T, payload []byte) {
			var body struct {
				Items []json.RawMessage `json:"items"`
			}
			require.NoError(t, json.Unmarshal(payload, &body))
			assert.NotEmpty(t, body.Items)
		},
		"contact": func(t *testing.T, payload []byte) {
			var body struct {
				Data []json.RawMessage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(payload, &body))
			assert.NotEmpty(t, body.Data)
		},
		"task": func(t *testing.T, payload []byte) {
			var body []json.RawMessage
			require.NoError(t, json.Unmarshal(payload, &body))
			assert.NotEmpty(t, body)
		},
	}

	for resource, check := range cases {
		t.Run(resource, func(t *testing.T) {
			resp := getScoped(t, hc, server.URL+"/"+resource, "org-1")
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var buf bytes.Buffer
			_, err := buf.ReadFrom(resp.Body)
			require.NoError(t, err)
			check(t, buf.Bytes())
		})
	}
}

func TestLeadHasNoSingleItemEndpoint(t *testing.T) {
	server := newTestServer(t)
	hc := loggedInClient(t, server)

	resp := getScoped(t, hc, server.URL+"/lead/lead-1", "org-1")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListFiltersAndPagination(t *testing.T) {
	server := newTestServer(t)
	hc := loggedInClient(t, server)

	resp := getScoped(t, hc, server.URL+"/lead?q=jordan", "org-1")
	var filtered struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&filtered))
	resp.Body.Close()
	assert.Equal(t, 1, filtered.Total)

	resp = getScoped(t, hc, server.URL+"/lead?page=2&page_size=2", "org-1")
	var paged struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&paged))
	resp.Body.Close()
	assert.Equal(t, 3, paged.Total)
	assert.Len(t, paged.Items, 1)
}

func TestCRUDLifecycle(t *testing.T) {
	server := newTestServer(t)
	hc := loggedInClient(t, server)

	body := bytes.NewBufferString(`{"name":"New Person","email":"new@example.com"}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/contact", body)
	require.NoError(t, err)
	req.Header.Set("x-org-id", "org-1")
	resp, err := hc.Do(req)
	require.NoError(t, err)
	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	patch := bytes.NewBufferString(`{"phone":"+15550199"}`)
	req, err = http.NewRequest(http.MethodPut, fmt.Sprintf("%s/contact/%s", server.URL, id), patch)
	require.NoError(t, err)
	req.Header.Set("x-org-id", "org-1")
	resp, err = hc.Do(req)
	require.NoError(t, err)
	var updated map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	assert.Equal(t, "+15550199", updated["phone"])
	assert.Equal(t, "New Person", updated["name"])

	req, err = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/contact/%s", server.URL, id), nil)
	require.NoError(t, err)
	req.Header.Set("x-org-id", "org-1")
	resp, err = hc.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getScoped(t, hc, fmt.Sprintf("%s/contact/%s", server.URL, id), "org-1")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestFullClientStack drives the real client, auth provider, org store, and
// data provider against the mock end to end.
func TestFullClientStack(t *testing.T) {
	server := newTestServer(t)

	machine := authstate.NewMachine(time.Hour)
	store, err := orgstore.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c, err := client.New(client.Options{
		BaseURL: server.URL,
		Machine: machine,
		Store:   store,
	})
	require.NoError(t, err)

	authProvider := auth.New(auth.Options{Client: c, Store: store, Machine: machine})
	dataProvider, err := provider.New(provider.Options{Client: c})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, authProvider.Login(ctx, "admin@funnel.test", "secret"))

	// first org promoted to active by the list-set
	assert.Equal(t, "org-1", store.ActiveID())

	result, err := dataProvider.List(ctx, "lead", provider.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)

	// switching orgs rescopes subsequent lists
	require.True(t, store.SwitchActive(ctx, "org-2"))

	result, err = dataProvider.List(ctx, "lead", provider.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)

	// the list-only lead fallback scan works against the mock
	record, err := dataProvider.GetOne(ctx, "lead", "lead-10")
	require.NoError(t, err)
	assert.Contains(t, string(record), "Drew Santos")

	require.NoError(t, authProvider.Logout(ctx))
	assert.Empty(t, store.ActiveID())
}
