// Package capture extracts single values from the last response.
//
// It supports capturing values from:
//   - Response body (gjson paths into the decoded JSON)
//   - Response headers
//   - Response status code and reason phrase
//
// The capture function stores the value in a content variable so later
// blocks can use it as {{name}}.
package capture
