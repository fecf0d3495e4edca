// Package config resolves runtime settings from a YAML config file and
// environment variables, recording the provenance of every value.
//
// Precedence, lowest to highest: built-in defaults, the config file
// (~/.notesearch/config.yaml unless overridden), then NOTESEARCH_*
// environment variables. A missing config file is fine; a malformed one
// is an error.
package config
