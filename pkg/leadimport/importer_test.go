package leadimport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel/pkg/authstate"
	"github.com/funnelhq/funnel/pkg/client"
	"github.com/funnelhq/funnel/pkg/provider"
)

type importFixture struct {
	importer *Importer
	ledger   *Ledger
	created  *atomic.Int64
}

// newImportFixture wires an Importer against a fake Graph API serving one
// form with the given leads and a fake CRM that counts creates.
func newImportFixture(t *testing.T, leads string, createStatus int) importFixture {
	t.Helper()

	graphMux := http.NewServeMux()
	graphMux.HandleFunc("/p1/leadgen_forms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"f1","name":"Contact us","status":"ACTIVE"}]}`))
	})
	graphMux.HandleFunc("/f1/leads", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":%s}`, leads)
	})
	graphServer := httptest.NewServer(graphMux)
	t.Cleanup(graphServer.Close)

	var created atomic.Int64
	crm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/lead", r.URL.Path)
		if createStatus != http.StatusOK {
			w.WriteHeader(createStatus)
			w.Write([]byte(`{"detail":"boom"}`))
			return
		}
		n := created.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("crm-%d", n)})
	}))
	t.Cleanup(crm.Close)

	c, err := client.New(client.Options{
		BaseURL: crm.URL,
		Machine: authstate.NewMachine(time.Hour),
	})
	require.NoError(t, err)
	p, err := provider.New(provider.Options{Client: c})
	require.NoError(t, err)

	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	imp, err := New(Options{
		Graph:       NewGraphClient(GraphConfig{BaseURL: graphServer.URL}, "user-token"),
		Provider:    p,
		Ledger:      ledger,
		Concurrency: 2,
	})
	require.NoError(t, err)

	return importFixture{importer: imp, ledger: ledger, created: &created}
}

func TestImportPageCreatesLeads(t *testing.T) {
	f := newImportFixture(t, `[
		{"id":"g1","field_data":[{"name":"full_name","values":["Ada"]},{"name":"email","values":["ada@example.com"]}]},
		{"id":"g2","field_data":[{"name":"full_name","values":["Grace"]},{"name":"phone_number","values":["+1555"]}]}
	]`, http.StatusOK)

	res, err := f.importer.ImportPage(context.Background(), "p1", "page-token")
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 2}, res)
	assert.Equal(t, int64(2), f.created.Load())

	n, err := f.ledger.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportPageSkipsSeenLeads(t *testing.T) {
	f := newImportFixture(t, `[
		{"id":"g1","field_data":[{"name":"full_name","values":["Ada"]}]},
		{"id":"g2","field_data":[{"name":"full_name","values":["Grace"]}]}
	]`, http.StatusOK)
	ctx := context.Background()

	res, err := f.importer.ImportPage(ctx, "p1", "page-token")
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 2}, res)

	// second run over the same feed must be a no-op
	res, err = f.importer.ImportPage(ctx, "p1", "page-token")
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, res)
	assert.Equal(t, int64(2), f.created.Load())
}

func TestImportPageCountsFailuresWithoutAborting(t *testing.T) {
	f := newImportFixture(t, `[
		{"id":"g1","field_data":[{"name":"full_name","values":["Ada"]}]},
		{"id":"g2","field_data":[{"name":"full_name","values":["Grace"]}]}
	]`, http.StatusInternalServerError)

	res, err := f.importer.ImportPage(context.Background(), "p1", "page-token")
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 2}, res)

	n, err := f.ledger.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
