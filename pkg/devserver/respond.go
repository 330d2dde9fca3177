package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/funnelhq/funnel/pkg/apierror"
)

// missingTokenDetail keeps the mock's unauthenticated response in lockstep
// with the sentinel the client remaps to session-expired
const missingTokenDetail = apierror.MissingTokenDetail

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDetail writes the backend's error shape: a bare "detail" field. The
// client's classifier reads this field, so the mock must produce it.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
