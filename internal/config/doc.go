// Package config loads, normalizes, and validates scrivo configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SCRIVO_LLM_API_KEY. The Config type centralizes every knob the daemon and
// CLI need, allowing output/cache/work directories and external service
// settings to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
