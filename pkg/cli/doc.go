// Package cli implements the `funnel` command-line interface.
//
// # Overview
//
// Commands share one client stack per invocation: configuration, the org
// store, the auth-failure machine, and the HTTP client are built once and
// handed to the command body. Session state lives server-side in the cookie;
// organization context persists in the org store between invocations.
//
// # Commands
//
// Authentication:
//
//	funnel login --email admin@funnel.test
//	funnel whoami
//	funnel logout
//
// Organizations:
//
//	funnel orgs list
//	funnel orgs switch org-2
//
// Records:
//
//	funnel list --resource lead --q jordan --sort -created_at
//	funnel get --resource contact --id contact-1
//	funnel create --resource lead --data '{"name":"New Lead"}'
//	funnel update --resource task --id task-1 --data '{"stage":"done"}'
//	funnel delete --resource deal --id deal-1
//
// Board and summaries:
//
//	funnel board show
//	funnel board move task-1 in_progress
//	funnel board assign task-1 user-2
//	funnel dashboard
//
// Lead import:
//
//	funnel import facebook --page 123 --token EAAB... --exchange
package cli
