// Package config loads, normalizes, and validates upkeep configuration data.
//
// Configuration resolves once at startup from a TOML file plus defaults;
// command flags may override individual values afterwards but the resulting
// Config is treated as immutable for the rest of the run. Path fields are
// expanded and absolute after Load.
package config
