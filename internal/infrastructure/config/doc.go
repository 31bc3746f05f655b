// Package config loads and validates BrightMind backend configuration.
//
// Configuration is read from a YAML file, then overridden by environment
// variables (secrets such as the JWT signing key and InfluxDB token should
// always come from the environment), then validated before use.
package config
