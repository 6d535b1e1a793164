package output

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/httpipe/packages/core/parser"
	"github.com/abdul-hamid-achik/httpipe/packages/core/runner"
)

// JUnitReport is the <testsuites> document: one suite per script, one case
// per block.
type JUnitReport struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Skipped  int          `xml:"skipped,attr"`
	Time     float64      `xml:"time,attr"`
	Suites   []JUnitSuite `xml:"testsuite"`
}

type JUnitSuite struct {
	Name      string      `xml:"name,attr"`
	ID        string      `xml:"id,attr,omitempty"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      float64     `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Cases     []JUnitCase `xml:"testcase"`
}

type JUnitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Line      int           `xml:"line,attr,omitempty"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitProblem `xml:"failure"`
	Error     *JUnitProblem `xml:"error"`
	Skipped   *JUnitProblem `xml:"skipped"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitProblem is the body of a <failure>, <error> or <skipped> element.
type JUnitProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
}

// JUnitFormatter buffers every run and writes one XML document on Flush.
type JUnitFormatter struct {
	writer io.Writer
	suites []JUnitSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	suite := JUnitSuite{
		Name:      result.File,
		ID:        result.RunID,
		Time:      result.Duration.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
	}

	for _, r := range result.Results {
		c := JUnitCase{
			Name:      r.Name(),
			ClassName: result.File,
			Line:      r.Line,
			Time:      r.Duration.Seconds(),
			SystemOut: exchange(r),
		}
		switch outcomeOf(r) {
		case OutcomeSkipped:
			c.Skipped = &JUnitProblem{Message: r.SkipReason}
			suite.Skipped++
		case OutcomeStopped:
			c.Failure = &JUnitProblem{Message: errorText(r), Type: "CheckFailed"}
			suite.Failures++
		case OutcomeErrored:
			c.Error = &JUnitProblem{Message: errorText(r), Type: errorType(r.Error)}
			suite.Errors++
		}
		suite.Cases = append(suite.Cases, c)
	}
	suite.Tests = len(suite.Cases)

	f.suites = append(f.suites, suite)
}

func errorType(err error) string {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return "ParseError"
	}
	return "BlockError"
}

func (f *JUnitFormatter) FormatError(err error) {}

func (f *JUnitFormatter) FormatHeader(version string) {}

func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	report := JUnitReport{
		Name:   "httpipe",
		Time:   totalDuration.Seconds(),
		Suites: f.suites,
	}
	for _, s := range f.suites {
		report.Tests += s.Tests
		report.Failures += s.Failures
		report.Errors += s.Errors
		report.Skipped += s.Skipped
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}
