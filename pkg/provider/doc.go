// Package provider translates generic resource operations (list, get,
// create, update, delete) into REST calls against the CRM backend.
//
// # Overview
//
// List queries build the backend's pagination/filter/sort query string and
// normalize the three response envelopes the backend produces into one
// {Data, Total} shape. GetOne handles the backend's list-only resources
// (lead) by fetching a large page and scanning for the id, memoizing hits in
// an LRU that updates and deletes invalidate.
//
// The provider does not retry and does not interpret business fields; records
// travel as json.RawMessage, with pkg/api's Decode helpers as the typed exit.
// Classified errors from pkg/client propagate unchanged.
package provider
