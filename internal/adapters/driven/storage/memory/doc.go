// Package memory provides in-memory implementations of the driven storage
// ports. They are used by tests and by one-shot runs that must not persist
// state.
package memory
