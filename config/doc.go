// Package config loads the cache engine's configuration from an optional
// YAML file, BUILDCACHE_ environment variables, and built-in defaults, in
// that order of precedence (env over file over defaults).
package config
