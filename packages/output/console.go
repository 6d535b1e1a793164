package output

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/httpipe/packages/core/runner"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Running: "+result.File))
	fmt.Fprintf(f.writer, "\n")

	for _, r := range result.Results {
		elapsed := cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds()))

		switch outcome := outcomeOf(r); outcome {
		case OutcomeSkipped:
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name())
			if r.SkipReason != "" && r.SkipReason != "filtered out" {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintf(f.writer, "\n")

		case OutcomeStopped, OutcomeErrored:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), r.Name(), elapsed)
			if r.Error != nil {
				label := "error"
				if outcome == OutcomeStopped {
					label = "stopped"
				}
				fmt.Fprintf(f.writer, "    %s %s: %v\n", red("→"), label, r.Error)
			}

		default:
			status := ""
			if r.StatusCode > 0 {
				status = fmt.Sprintf(" %d", r.StatusCode)
			}
			fmt.Fprintf(f.writer, "  %s %s%s %s\n", green("✓"), r.Name(), status, elapsed)
			if f.verbose && r.Method != "" {
				fmt.Fprintf(f.writer, "    %s\n", exchange(r))
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Blocks: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:   %dms\n", result.Duration.Milliseconds())

	if f.verbose && result.Timings != nil && result.Timings.Count() > 0 {
		s := result.Timings.Summary()
		fmt.Fprintf(f.writer, "Blocks: p50 %dms, p95 %dms, p99 %dms\n",
			s.P50.Milliseconds(), s.P95.Milliseconds(), s.P99.Milliseconds())
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("httpipe"), version)
}
