// Package config is the declarative TOML configuration surface for a
// Gauss pipeline: converters, formats, schema maps, topics, and
// processors, loaded once at start-time and validated before any plugin
// resolution begins.
package config
