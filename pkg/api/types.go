package api

import (
	"encoding/json"
	"time"
)

// Organization represents a tenant workspace. Every data operation is scoped
// to exactly one organization via the x-org-id request header.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents an authenticated CRM user
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

// Lead represents a sales lead
type Lead struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Source         string    `json:"source,omitempty"`
	Status         string    `json:"status,omitempty"`
	AssignedUserID string    `json:"assigned_user_id,omitempty"`
	BusinessID     string    `json:"business_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contact represents a person attached to a company or deal
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CompanyID string    `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task represents a unit of work on the kanban board
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Stage          string     `json:"stage"`
	LeadID         string     `json:"lead_id,omitempty"`
	AssignedUserID string     `json:"assigned_user_id,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Company represents a business account
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Website   string    `json:"website,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deal represents a sales opportunity
type Deal struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	CompanyID string    `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Interaction represents a logged touchpoint with a lead (call, email, meeting)
type Interaction struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Kind      string    `json:"kind"`
	Notes     string    `json:"notes,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Appointment represents a scheduled meeting with a lead or contact
type Appointment struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id,omitempty"`
	ContactID string    `json:"contact_id,omitempty"`
	Subject   string    `json:"subject"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DecodeAll unmarshals raw records returned by the data provider into a
// concrete API type
func DecodeAll[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Decode unmarshals a single raw record into a concrete API type
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
