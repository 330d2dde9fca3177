package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel/pkg/apierror"
	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/client"
)

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := client.New(client.Options{
		BaseURL: server.URL,
		Machine: authstate.NewMachine(time.Hour),
	})
	require.NoError(t, err)

	p, err := New(Options{Client: c})
	require.NoError(t, err)
	return p, server
}

func TestListNormalizesAllEnvelopes(t *testing.T) {
	items := `[{"id":"1"},{"id":"2"},{"id":"3"},{"id":"4"},{"id":"5"}]`
	shapes := map[string]string{
		"items envelope": fmt.Sprintf(`{"items":%s,"total":5}`, items),
		"data envelope":  fmt.Sprintf(`{"data":%s,"total":5}`, items),
		"bare array":     items,
	}

	for name, payload := range shapes {
		t.Run(name, func(t *testing.T) {
			p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(payload))
			}))

			result, err := p.List(context.Background(), "lead", ListParams{})
			require.NoError(t, err)
			assert.Len(t, result.Data, 5)
			assert.Equal(t, 5, result.Total)
		})
	}
}

func TestListTotalFallsBackToLength(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"1"},{"id":"2"}]}`))
	}))

	result, err := p.List(context.Background(), "task", ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}

func TestListEmptyEnvelope(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":0}`))
	}))

	result, err := p.List(context.Background(), "task", ListParams{})
	require.NoError(t, err)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Data)
}

func TestListUnknownResource(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	_, err := p.List(context.Background(), "widget", ListParams{})
	assert.ErrorContains(t, err, `unknown resource "widget"`)
}

func TestListPropagatesClassifiedErrors(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "read access denied"})
	}))

	_, err := p.List(context.Background(), "lead", ListParams{})
	cerr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindPermission, cerr.Kind)
	assert.Equal(t, "read access denied", cerr.Message)
}

func leadListHandler(count int, matchID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		records := make([]json.RawMessage, 0, count)
		for i := 0; i < count; i++ {
			records = append(records, json.RawMessage(fmt.Sprintf(`{"id":"lead-%d","name":"Lead %d"}`, i, i)))
		}
		if matchID != "" {
			records = append(records, json.RawMessage(fmt.Sprintf(`{"id":%q,"name":"The One"}`, matchID)))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": records, "total": len(records)})
	})
}

func TestGetOneListOnlyFallbackScan(t *testing.T) {
	var listCalls atomic.Int32
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		assert.Equal(t, "/lead", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("page_size"))
		leadListHandler(999, "42").ServeHTTP(w, r)
	}))

	record, err := p.GetOne(context.Background(), "lead", "42")
	require.NoError(t, err)
	var lead struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(record, &lead))
	assert.Equal(t, "The One", lead.Name)

	// Second lookup is served from the LRU, not another full-page scan
	_, err = p.GetOne(context.Background(), "lead", "42")
	require.NoError(t, err)
	assert.Equal(t, int32(1), listCalls.Load())
}

func TestGetOneFallbackScanMiss(t *testing.T) {
	p, _ := newTestProvider(t, leadListHandler(10, ""))

	_, err := p.GetOne(context.Background(), "lead", "42")
	require.Error(t, err)
	assert.True(t, apierror.IsNotFound(err))
	assert.ErrorContains(t, err, `lead "42" not found`)
}

func TestGetOneDirectEndpoint(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/t-1", r.URL.Path)
		w.Write([]byte(`{"id":"t-1","title":"Call back"}`))
	}))

	record, err := p.GetOne(context.Background(), "task", "t-1")
	require.NoError(t, err)
	assert.Contains(t, string(record), "Call back")
}

func TestUpdateInvalidatesCache(t *testing.T) {
	var stage atomic.Value
	stage.Store("todo")
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			stage.Store(body["stage"])
			fmt.Fprintf(w, `{"id":"t-1","stage":%q}`, body["stage"])
		default:
			fmt.Fprintf(w, `{"id":"t-1","stage":%q}`, stage.Load())
		}
	}))

	ctx := context.Background()
	record, err := p.GetOne(ctx, "task", "t-1")
	require.NoError(t, err)
	assert.Contains(t, string(record), "todo")

	_, err = p.Update(ctx, "task", "t-1", map[string]string{"stage": "done"})
	require.NoError(t, err)

	record, err = p.GetOne(ctx, "task", "t-1")
	require.NoError(t, err)
	assert.Contains(t, string(record), "done")
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "42", recordID(json.RawMessage(`{"id":"42"}`)))
	assert.Equal(t, "42", recordID(json.RawMessage(`{"id":42}`)))
	assert.Equal(t, "", recordID(json.RawMessage(`{"name":"no id"}`)))
	assert.Equal(t, "", recordID(json.RawMessage(`not json`)))
}
