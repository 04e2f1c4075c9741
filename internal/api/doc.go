// Package api is the HTTP adapter over the command and query handlers.
//
// The acting user is taken from the X-User-ID header; identity itself is
// established upstream. Domain error kinds map to status codes in
// writeError.
package api
