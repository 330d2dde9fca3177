// Package devserver is an in-memory mock of the CRM backend for local
// development and integration tests.
//
// # Overview
//
// The mock reproduces the backend behaviors the client stack is built
// around: session-cookie authentication, the 422 missing-token response with
// its exact detail string, x-org-id scoping with per-organization fixture
// data, a different list envelope per resource (items, data, bare array),
// and a list-only lead collection with no single-item endpoint.
//
// Wire it to an httptest.Server in tests, or run it standalone via
// cmd/funnel-devserver.
package devserver
