package orgstore

import (
	"context"

	"github.com/funnelhq/funnel/pkg/api"
)

// Event notifies subscribers that the active organization changed
type Event struct {
	// ActiveID is the newly active organization id, empty after Clear
	ActiveID string
}

// Store is the single source of truth for which organization scopes outbound
// requests. Implementations persist durably and broadcast switches to
// subscribers, including ones in other processes sharing the same backing
// state.
//
// The three pieces of state (active id, organization list, denormalized
// active record) always clear together, never partially.
type Store interface {
	// ActiveID returns the active organization id, or "" when none is set
	ActiveID() string

	// Active returns the denormalized active organization record
	Active() (api.Organization, bool)

	// Organizations returns the persisted list in server order
	Organizations() []api.Organization

	// SetOrganizationList persists the list. When no organization is active
	// and the list is non-empty, the first entry is promoted to active.
	SetOrganizationList(ctx context.Context, orgs []api.Organization) error

	// SetActive persists both the id and the full record
	SetActive(ctx context.Context, org api.Organization) error

	// SwitchActive activates the organization with the given id. Returns
	// false and mutates nothing when the id is not in the persisted list.
	// On success a change event is broadcast to all subscribers.
	SwitchActive(ctx context.Context, id string) bool

	// Clear removes id, list, and active record as one logical operation.
	// Idempotent.
	Clear(ctx context.Context) error

	// Subscribe registers a change-event channel. Each channel has capacity
	// one; a pending undelivered event is coalesced with the next.
	Subscribe() <-chan Event

	// Close releases watchers and subscriptions
	Close() error
}

// snapshot is the in-memory mirror both backends keep for fast reads
type snapshot struct {
	ActiveID      string             `json:"active_id,omitempty"`
	Organizations []api.Organization `json:"organizations,omitempty"`
	Active        *api.Organization  `json:"active,omitempty"`
}

func (s *snapshot) find(id string) (api.Organization, bool) {
	for _, org := range s.Organizations {
		if org.ID == id {
			return org, true
		}
	}
	return api.Organization{}, false
}

func notify(subs []chan Event, ev Event) {
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
