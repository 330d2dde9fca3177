package leadimport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T, handler http.Handler) *GraphClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGraphClient(GraphConfig{
		AppID:     "app",
		AppSecret: "secret",
		BaseURL:   server.URL,
	}, "user-token")
}

func TestListLeadsFollowsCursor(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/form-1/leads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))
		if r.URL.Query().Get("after") == "" {
			fmt.Fprintf(w, `{
				"data": [{"id":"l1","field_data":[{"name":"email","values":["a@b.com"]}]}],
				"paging": {"next": %q}
			}`, server.URL+"/form-1/leads?access_token=page-token&after=cursor")
			return
		}
		w.Write([]byte(`{"data":[{"id":"l2"}],"paging":{}}`))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	g := NewGraphClient(GraphConfig{BaseURL: server.URL}, "user-token")
	leads, err := g.ListLeads(context.Background(), "form-1", "page-token")
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "l1", leads[0].ID)
	assert.Equal(t, "a@b.com", leads[0].Field("email"))
	assert.Equal(t, "l2", leads[1].ID)
}

func TestListPages(t *testing.T) {
	g := newTestGraph(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		assert.Equal(t, "user-token", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"data":[{"id":"p1","name":"Showroom","access_token":"page-token"}]}`))
	}))

	pages, err := g.ListPages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "page-token", pages[0].AccessToken)
}

func TestListFormsUsesPageToken(t *testing.T) {
	g := newTestGraph(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/p1/leadgen_forms", r.URL.Path)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"data":[{"id":"f1","name":"Contact us","status":"ACTIVE"}]}`))
	}))

	forms, err := g.ListForms(context.Background(), "p1", "page-token")
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "f1", forms[0].ID)
}

func TestExchangeLongLived(t *testing.T) {
	g := newTestGraph(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "short", r.URL.Query().Get("fb_exchange_token"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "long"})
	}))

	token, err := g.ExchangeLongLived(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, "long", token)
}

func TestGraphErrorSurfacesMessage(t *testing.T) {
	g := newTestGraph(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))

	_, err := g.ListPages(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
	assert.Contains(t, err.Error(), "400")
}

func TestFieldMissing(t *testing.T) {
	lead := GraphLead{FieldData: []FieldData{{Name: "email", Values: nil}}}
	assert.Equal(t, "", lead.Field("email"))
	assert.Equal(t, "", lead.Field("phone_number"))
}
