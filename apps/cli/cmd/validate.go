package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/httpipe/packages/core/parser"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <script|directory>",
	Short: "Check scripts for malformed lines",
	Long: `Parse every block of the scripts without sending requests.

Examples:
  httpipe validate api.http
  httpipe validate ./scripts/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return exitErrorf(ExitUsageError, "%v", err)
	}

	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no .http or .rest files found")
	}

	invalid := 0
	for _, file := range files {
		errs, err := validateFile(file)
		if err != nil {
			return exitErrorf(ExitUsageError, "%v", err)
		}
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
			continue
		}
		invalid++
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", e)
		}
	}

	if invalid > 0 {
		return exitErrorf(ExitParseError, "validation failed in %d file(s)", invalid)
	}

	return nil
}

// validateFile parses every block and returns one error per malformed block.
func validateFile(path string) ([]error, error) {
	script, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, raw := range script.Blocks {
		if _, err := parser.ParseBlock(raw); err != nil {
			if pe, ok := err.(*parser.ParseError); ok {
				pe.File = path
			}
			errs = append(errs, err)
		}
	}
	return errs, nil
}
