// Package user implements account registration, profile updates and user
// lookups.
//
// Handlers depend on the Repository declared here; implementations live in
// repository/postgres and repository/memory.
package user
