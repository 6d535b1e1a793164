package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/httpipe/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary  `json:"summary"`
	Blocks   []JSONBlock  `json:"blocks"`
	Latency  *JSONLatency `json:"latency,omitempty"`
	Duration float64      `json:"duration"`
	Time     string       `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONBlock represents the result of one block
type JSONBlock struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	File       string  `json:"file"`
	Line       int     `json:"line"`
	RunID      string  `json:"runId"`
	Passed     bool    `json:"passed"`
	Skipped    bool    `json:"skipped,omitempty"`
	SkipReason string  `json:"skipReason,omitempty"`
	Stopped    bool    `json:"stopped,omitempty"`
	Duration   float64 `json:"duration"`
	Error      string  `json:"error,omitempty"`
	Method     string  `json:"method,omitempty"`
	URL        string  `json:"url,omitempty"`
	StatusCode int     `json:"statusCode,omitempty"`
	Status     string  `json:"status,omitempty"`
}

// JSONLatency holds block duration percentiles in milliseconds
type JSONLatency struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer  io.Writer
	results []JSONBlock
	timings []*runner.Timings
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONBlock, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		block := JSONBlock{
			Index:      r.Index,
			Name:       r.Name(),
			File:       result.File,
			Line:       r.Line,
			RunID:      result.RunID,
			Passed:     r.Passed,
			Skipped:    r.Skipped,
			Stopped:    r.Stopped,
			Duration:   float64(r.Duration.Milliseconds()),
			Method:     r.Method,
			URL:        r.URL,
			StatusCode: r.StatusCode,
			Status:     r.Reason,
		}

		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			block.SkipReason = r.SkipReason
		}

		if r.Error != nil {
			block.Error = r.Error.Error()
		}

		f.results = append(f.results, block)
	}
	if result.Timings != nil {
		f.timings = append(f.timings, result.Timings)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual block results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var passed, failed, skipped int
	for _, b := range f.results {
		if b.Skipped {
			skipped++
		} else if b.Passed {
			passed++
		} else {
			failed++
		}
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:   len(f.results),
			Passed:  passed,
			Failed:  failed,
			Skipped: skipped,
		},
		Blocks:   f.results,
		Latency:  f.latency(),
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// latency reports the last run's percentiles; each watch cycle flushes once.
func (f *JSONFormatter) latency() *JSONLatency {
	if len(f.timings) == 0 {
		return nil
	}
	s := f.timings[len(f.timings)-1].Summary()
	if s.Count == 0 {
		return nil
	}
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	return &JSONLatency{P50: ms(s.P50), P95: ms(s.P95), P99: ms(s.P99), Max: ms(s.Max)}
}
