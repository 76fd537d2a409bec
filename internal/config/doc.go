// Package config resolves process configuration.
//
// Precedence, lowest first: built-in defaults, the YAML config file, the
// environment (a .env file may pre-populate it), then command-line flags
// applied by the caller. Validate must pass before a run starts.
package config
