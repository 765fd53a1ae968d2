// Package config loads, normalizes, and validates the chorus configuration.
//
// Configuration is TOML, resolved from an explicit --config path, then
// ~/.config/chorus/config.toml, then ./chorus.toml. Missing files fall back
// to defaults so the tool works out of the box.
package config
