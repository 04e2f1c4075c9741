// Package workflow implements automation workflow definitions and their
// lifecycle: creation, activation, pausing, execution requests and error
// marking.
package workflow
