// Package memory provides process-local repositories. They back the
// server's in-memory mode and the handler tests. Entities are copied on
// the way in and out so callers never share state with the store.
package memory
