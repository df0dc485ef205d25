// Package config loads and validates streamq configuration.
//
// Configuration lives in a TOML file. Load resolves the file path, overlays
// it on repository defaults, and validates the result so the rest of the
// program can assume a usable Config. Poll intervals are expressed in
// milliseconds so tests can shrink them without patching code.
package config
