package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpipe/packages/core/runner"
)

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and write
// them once the run is over.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the accepted --output values.
var Formats = []string{"console", "json", "junit", "tap"}

// New returns the formatter for format writing to w. verbose and noColor
// only affect the console formatter.
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q (expected one of %s)", format, strings.Join(Formats, ", "))
}

// Outcome is how a block ended, as the report formats see it.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeSkipped Outcome = "skipped"
	// OutcomeStopped is a block whose check failed before its request.
	OutcomeStopped Outcome = "stopped"
	// OutcomeErrored is a block abandoned by a parse, render or transport
	// error.
	OutcomeErrored Outcome = "errored"
)

func outcomeOf(r *runner.BlockResult) Outcome {
	switch {
	case r.Skipped:
		return OutcomeSkipped
	case r.Passed:
		return OutcomePassed
	case r.Stopped:
		return OutcomeStopped
	default:
		return OutcomeErrored
	}
}

// exchange is "METHOD URL -> 200 OK", or as much of it as the block got to.
func exchange(r *runner.BlockResult) string {
	if r.Method == "" {
		return ""
	}
	s := r.Method + " " + r.URL
	if r.StatusCode > 0 {
		s += fmt.Sprintf(" -> %d %s", r.StatusCode, r.Reason)
	}
	return strings.TrimSpace(s)
}

func errorText(r *runner.BlockResult) string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Error()
}
