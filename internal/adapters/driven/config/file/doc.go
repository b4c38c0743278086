// Package file loads the process configuration from a TOML file.
//
// Values are resolved in order: built-in defaults, then the file, then
// environment overrides for connection strings and secrets. The result is
// validated before any source or cluster is contacted.
package file
