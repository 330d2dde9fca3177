// Package api defines the wire types shared between the Funnel client
// packages and the CRM backend.
//
// Record shapes mirror the backend's JSON responses. The data provider treats
// records as opaque json.RawMessage values; the DecodeAll/Decode helpers are
// the bridge into these concrete types for callers that need fields (the CLI,
// the task board, the lead importer).
package api
