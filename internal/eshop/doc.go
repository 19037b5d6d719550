// Package eshop is the HTTP client for the shop backend's queue API.
//
// It covers three kinds of calls:
//
//   - the consolidated snapshot endpoint (/eshop/queue/unified-data/), fetched
//     with a cache-busting query parameter and validated field by field so a
//     malformed field degrades to a safe default instead of failing the read;
//   - per-order transitions (start preparing, mark ready, mark collected),
//     sent as JSON POSTs carrying the X-CSRFToken header;
//   - order details and the force-sync recovery call.
//
// Errors are wrapped with context. HTTP failures and non-success envelopes
// surface as *APIError; refused transitions as *ActionError. The client
// never mutates orders locally.
package eshop
