package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes for httpipe CLI
const (
	// ExitSuccess indicates the run finished
	ExitSuccess = 0

	// ExitTestFailure indicates one or more blocks failed under --strict
	ExitTestFailure = 1

	// ExitParseError indicates a malformed script found by validate
	ExitParseError = 2

	// ExitConfigError indicates a configuration or environment error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitErrorf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

var exitcodesCmd = &cobra.Command{
	Use:   "exitcodes",
	Short: "List the exit codes httpipe returns",
	Run: func(cmd *cobra.Command, args []string) {
		codes := []struct {
			code int
			desc string
		}{
			{ExitSuccess, "run finished (block failures only count under --strict)"},
			{ExitTestFailure, "one or more blocks failed under --strict"},
			{ExitParseError, "validate found a malformed script"},
			{ExitConfigError, "invalid config file, environment or env file"},
			{ExitUsageError, "invalid command line usage"},
		}
		for _, c := range codes {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", c.code, c.desc)
		}
	},
}
