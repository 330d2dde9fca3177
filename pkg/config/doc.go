// Package config loads Funnel configuration from an optional YAML profile
// (~/.config/funnel/config.yaml, overridable via FUNNEL_CONFIG) and
// environment variables, with env taking precedence. LoadConfig validates
// the result before returning it.
package config
