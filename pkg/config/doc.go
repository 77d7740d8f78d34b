// Package config loads resolver configuration from environment variables.
//
// All variables use the CHAINRING_ prefix and have working defaults, so an
// empty environment yields a valid configuration.
package config
