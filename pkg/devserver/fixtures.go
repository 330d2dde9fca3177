package devserver

import (
	"time"

	"github.com/funnelhq/funnel/pkg/api"
)

type record map[string]interface{}

// dataset is one organization's records, keyed by resource name
type dataset map[string][]record

var seedTime = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func seedOrganizations() []api.Organization {
	return []api.Organization{
		{ID: "org-1", Name: "Acme Motors", CreatedAt: seedTime, UpdatedAt: seedTime},
		{ID: "org-2", Name: "Globex Realty", CreatedAt: seedTime, UpdatedAt: seedTime},
	}
}

func seedUsers() []api.User {
	return []api.User{
		{ID: "user-1", Email: "admin@funnel.test", FullName: "Avery Admin", Role: "admin"},
		{ID: "user-2", Email: "sales@funnel.test", FullName: "Sam Seller", Role: "sales"},
	}
}

// seedData builds per-org fixtures. Only org-1 gets a full dataset; org-2
// stays sparse so switching orgs visibly changes what lists return.
func seedData() map[string]dataset {
	ts := seedTime.Format(time.RFC3339)
	return map[string]dataset{
		"org-1": {
			"lead": {
				{"id": "lead-1", "name": "Jordan Blake", "email": "jordan@example.com", "status": "new", "assigned_user_id": "user-2", "created_at": ts, "updated_at": ts},
				{"id": "lead-2", "name": "Casey Park", "phone": "+15550102", "status": "contacted", "assigned_user_id": "user-1", "created_at": ts, "updated_at": ts},
				{"id": "lead-3", "name": "Riley Chen", "email": "riley@example.com", "status": "new", "source": "facebook", "created_at": ts, "updated_at": ts},
			},
			"contact": {
				{"id": "contact-1", "name": "Morgan Diaz", "email": "morgan@acme.test", "company_id": "company-1", "created_at": ts, "updated_at": ts},
				{"id": "contact-2", "name": "Taylor Reed", "phone": "+15550105", "created_at": ts, "updated_at": ts},
			},
			"task": {
				{"id": "task-1", "title": "Call Jordan back", "stage": "todo", "lead_id": "lead-1", "assigned_user_id": "user-2", "created_at": ts, "updated_at": ts},
				{"id": "task-2", "title": "Prepare quote", "stage": "in_progress", "lead_id": "lead-2", "created_at": ts, "updated_at": ts},
				{"id": "task-3", "title": "Send contract", "stage": "review", "lead_id": "lead-2", "created_at": ts, "updated_at": ts},
				{"id": "task-4", "title": "Archive old inquiries", "stage": "done", "created_at": ts, "updated_at": ts},
			},
			"company": {
				{"id": "company-1", "name": "Acme Motors", "industry": "automotive", "created_at": ts, "updated_at": ts},
			},
			"deal": {
				{"id": "deal-1", "title": "Fleet renewal", "amount": 42000.0, "stage": "negotiation", "company_id": "company-1", "created_at": ts, "updated_at": ts},
			},
			"interaction": {
				{"id": "int-1", "lead_id": "lead-1", "kind": "call", "notes": "left voicemail", "user_id": "user-2", "created_at": ts},
			},
			"appointment": {
				{"id": "appt-1", "lead_id": "lead-2", "subject": "Showroom visit", "starts_at": ts, "ends_at": ts, "created_at": ts},
			},
			"user": {
				{"id": "user-1", "email": "admin@funnel.test", "full_name": "Avery Admin", "role": "admin"},
				{"id": "user-2", "email": "sales@funnel.test", "full_name": "Sam Seller", "role": "sales"},
			},
		},
		"org-2": {
			"lead": {
				{"id": "lead-10", "name": "Drew Santos", "status": "new", "created_at": ts, "updated_at": ts},
			},
			"user": {
				{"id": "user-1", "email": "admin@funnel.test", "full_name": "Avery Admin", "role": "admin"},
			},
		},
	}
}
