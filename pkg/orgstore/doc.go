// Package orgstore persists the active-organization context shared by every
// Funnel process on a machine.
//
// # Overview
//
// All CRM requests are scoped to one organization via the x-org-id header.
// This package owns that choice: the active id, the full organization list
// fetched at login, and a denormalized copy of the active record for fast
// reads. Two backends implement the Store interface:
//
//   - FileStore: a JSON state file under the user's state directory, with an
//     fsnotify watch so a switch made by one process (the CLI) is observed by
//     another (the sync daemon).
//   - RedisStore: shared keys plus a pub/sub switch channel, for setups where
//     multiple hosts share one session.
//
// # Invariants
//
// The id, list, and active record clear together. Switching to an unknown id
// mutates nothing and reports false. Setting a list while no organization is
// active promotes the list's first entry.
//
// # Related Packages
//
//   - pkg/client: reads ActiveID on every outbound request
//   - pkg/auth: populates the store at login, clears it at logout
package orgstore
