// Package config loads, normalizes, and validates tilesplit configuration.
//
// Settings come from an optional TOML file found on the XDG config path, in
// ~/.config/tilesplit or next to the working directory. Missing files yield
// defaults. TILESPLIT_DEBUG overrides the logging debug switch.
package config
