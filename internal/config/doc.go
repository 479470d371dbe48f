// Package config provides the explicit configuration record threaded
// through every pipeline stage. Values come from struct defaults, FNS_*
// environment variables, and an optional YAML file layered on top, and
// are validated before use.
package config
