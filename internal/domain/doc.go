// Package domain defines the core business types for the contentflow platform.
//
// Entities in this package own their lifecycle: every status change goes
// through a method that checks the current state and stamps timestamps from
// a caller-supplied instant. Nothing here performs I/O. Mutations that are
// interesting to the outside world return a domain event which the caller
// is responsible for dispatching.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Time is never read from the wall clock; callers pass "now"
//   - Constants and enums belong here
package domain
