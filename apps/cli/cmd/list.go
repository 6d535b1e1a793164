package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/httpipe/packages/core/parser"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <script|directory>",
	Short: "List the blocks of scripts",
	Long: `List each block with its title and route.

Examples:
  httpipe list api.http
  httpipe list ./scripts/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return exitErrorf(ExitUsageError, "%v", err)
	}

	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no .http or .rest files found")
	}

	for _, file := range files {
		script, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		for _, raw := range script.Blocks {
			title := raw.Title
			if title == "" {
				title = fmt.Sprintf("Block#%d", raw.Index)
			}

			block, err := parser.ParseBlock(raw)
			switch {
			case err != nil:
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s (invalid: %v)\n", raw.Index, title, err)
			case block.Request != nil:
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s  %s %s\n", raw.Index, title, block.Request.Method, block.Request.Target)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s  (no request)\n", raw.Index, title)
			}
			if err == nil && len(block.Directives) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "     %d directive(s)\n", len(block.Directives))
			}
		}
	}

	return nil
}
