package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed login request")
		return
	}

	for _, u := range s.users {
		if u.Email == creds.Email && creds.Password == s.password {
			token := s.openSession(u.ID)
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
			})
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeDetail(w, http.StatusUnauthorized, "invalid credentials")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.closeSession(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleLogged(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(r)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, missingTokenDetail)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": s.orgs,
		"total": len(s.orgs),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]
	orgID := r.Header.Get("x-org-id")

	s.mu.Lock()
	records := append([]record(nil), s.data[orgID][resource]...)
	s.mu.Unlock()

	records = applyFilters(records, r.URL.Query())
	if field, desc, ok := parseSort(r.URL.Query().Get("sort")); ok {
		sortRecords(records, field, desc)
	}
	total := len(records)
	records = paginate(records, r.URL.Query())

	switch envelopeShape[resource] {
	case "data":
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": records, "total": total})
	case "bare":
		writeJSON(w, http.StatusOK, records)
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": records, "total": total})
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resource, id := vars["resource"], vars["id"]
	if listOnly[resource] {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	orgID := r.Header.Get("x-org-id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.data[orgID][resource] {
		if rec["id"] == id {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]
	orgID := r.Header.Get("x-org-id")

	var rec record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	rec["id"] = resource + "-" + uuid.NewString()[:8]
	rec["created_at"] = now
	rec["updated_at"] = now

	s.mu.Lock()
	if s.data[orgID] == nil {
		s.data[orgID] = dataset{}
	}
	s.data[orgID][resource] = append(s.data[orgID][resource], rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resource, id := vars["resource"], vars["id"]
	orgID := r.Header.Get("x-org-id")

	var patch record
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.data[orgID][resource] {
		if rec["id"] == id {
			for k, v := range patch {
				if k == "id" || k == "created_at" {
					continue
				}
				rec[k] = v
			}
			rec["updated_at"] = time.Now().UTC().Format(time.RFC3339)
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resource, id := vars["resource"], vars["id"]
	orgID := r.Header.Get("x-org-id")

	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.data[orgID][resource]
	for i, rec := range records {
		if rec["id"] == id {
			s.data[orgID][resource] = append(records[:i], records[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// applyFilters narrows records by the query params the real backend honors:
// q substring search, assigned_user_id (comma-joined ids), lead_id,
// business_id. Anything else is ignored, matching the backend.
func applyFilters(records []record, query map[string][]string) []record {
	matches := func(rec record) bool {
		if q := first(query, "q"); q != "" {
			if !strings.Contains(strings.ToLower(fieldString(rec, "name")+fieldString(rec, "title")), strings.ToLower(q)) {
				return false
			}
		}
		if ids := first(query, "assigned_user_id"); ids != "" {
			if !containsID(strings.Split(ids, ","), fieldString(rec, "assigned_user_id")) {
				return false
			}
		}
		for _, key := range []string{"lead_id", "business_id"} {
			if want := first(query, key); want != "" && fieldString(rec, key) != want {
				return false
			}
		}
		return true
	}

	out := records[:0]
	for _, rec := range records {
		if matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func parseSort(raw string) (field string, desc bool, ok bool) {
	if raw == "" {
		return "", false, false
	}
	if strings.HasPrefix(raw, "-") {
		return raw[1:], true, true
	}
	return raw, false, true
}

func sortRecords(records []record, field string, desc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := fieldString(records[i], field), fieldString(records[j], field)
		if desc {
			return a > b
		}
		return a < b
	})
}

func paginate(records []record, query map[string][]string) []record {
	page, _ := strconv.Atoi(first(query, "page"))
	size, _ := strconv.Atoi(first(query, "page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		return records
	}
	start := (page - 1) * size
	if start >= len(records) {
		return []record{}
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

func first(query map[string][]string, key string) string {
	if vals := query[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func fieldString(rec record, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if strings.TrimSpace(candidate) == id {
			return true
		}
	}
	return false
}
