// Package cmd implements the httpipe CLI commands using Cobra.
//
// Available commands:
//   - run: execute scripts block by block (also the root command)
//   - validate: report malformed lines without sending requests
//   - list: print each block's title and route
//   - init: write an example script, environment file and config
//   - version: show version information
//   - exitcodes: list the process exit codes
//
// Flags default from HTTPIPE_* environment variables and override the
// config file.
package cmd
