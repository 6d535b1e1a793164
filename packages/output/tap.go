package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpipe/packages/core/runner"
	"gopkg.in/yaml.v3"
)

// TAPFormatter streams TAP 13: one test point per block as soon as its run
// is formatted, and the plan line last.
type TAPFormatter struct {
	writer  io.Writer
	started bool
	count   int
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

// tapDiagnostic is the YAML block attached to a "not ok" point.
type tapDiagnostic struct {
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
	File     string `yaml:"file,omitempty"`
	Line     int    `yaml:"line,omitempty"`
	Request  string `yaml:"request,omitempty"`
}

func (f *TAPFormatter) begin() {
	if !f.started {
		fmt.Fprintln(f.writer, "TAP version 13")
		f.started = true
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	f.begin()
	for _, r := range result.Results {
		f.count++
		switch outcomeOf(r) {
		case OutcomePassed:
			fmt.Fprintf(f.writer, "ok %d - %s\n", f.count, r.Name())
		case OutcomeSkipped:
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", f.count, r.Name(), r.SkipReason)
		case OutcomeStopped:
			f.notOK(result.File, r, "fail")
		case OutcomeErrored:
			f.notOK(result.File, r, "error")
		}
	}
}

func (f *TAPFormatter) notOK(file string, r *runner.BlockResult, severity string) {
	fmt.Fprintf(f.writer, "not ok %d - %s\n", f.count, r.Name())

	data, err := yaml.Marshal(tapDiagnostic{
		Message:  errorText(r),
		Severity: severity,
		File:     file,
		Line:     r.Line,
		Request:  exchange(r),
	})
	if err != nil {
		return
	}
	fmt.Fprintln(f.writer, "  ---")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(f.writer, "  %s\n", line)
	}
	fmt.Fprintln(f.writer, "  ...")
}

func (f *TAPFormatter) FormatError(err error) {
	f.begin()
	fmt.Fprintf(f.writer, "# %v\n", err)
}

func (f *TAPFormatter) FormatHeader(version string) {}

// Flush writes the plan. An empty run still produces a valid document.
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	f.begin()
	_, err := fmt.Fprintf(f.writer, "1..%d\n", f.count)
	return err
}
