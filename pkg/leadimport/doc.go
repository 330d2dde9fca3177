// Package leadimport pulls lead-form submissions from the Facebook Graph API
// and creates them as CRM leads.
//
// # Overview
//
// GraphClient wraps the Graph API surface the importer needs: OAuth2 token
// exchange, page and form discovery, and cursor-paginated lead listing.
// Importer flattens each submission's field_data into a CRM lead payload and
// creates it through the data provider, with a bounded number of concurrent
// create calls.
//
// A sqlite-backed Ledger records every imported Graph lead id so re-runs and
// the scheduled sync daemon never create the same lead twice.
package leadimport
