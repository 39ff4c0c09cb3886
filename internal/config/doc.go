// Package config loads, validates, and defaults the vopt TOML configuration.
//
// Configuration is optional: when no file exists at the default location or
// the explicit path, repository defaults apply. CLI flags override individual
// values after loading.
package config
