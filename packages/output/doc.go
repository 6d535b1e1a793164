// Package output provides formatters for run results.
//
// Supported output formats:
//   - Console: colored per-block lines and a summary
//   - JSON: machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Each formatter implements Formatter and can optionally implement
// Flushable for formats that accumulate results before output.
package output
