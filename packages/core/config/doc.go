// Package config loads httpipe settings.
//
// Settings are read from the first of .httpipe.yaml, httpipe.yaml,
// .httpipe.json or httpipe.config.json found next to the script or in the
// working directory, or from an explicit --config path. Unset booleans are
// nil and fall back to their defaults through the Get* accessors, so a
// file can be merged over the defaults and command line flags merged over
// the file.
package config
