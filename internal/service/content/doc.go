// Package content implements the content lifecycle use cases: drafting,
// editing, readiness, publication, archival and AI-assisted generation.
//
// Every mutating handler takes the per-content lock, loads the entity,
// checks ownership, applies the domain transition, saves, and only then
// publishes the resulting event.
package content
