// Package parser turns httpipe scripts into blocks.
//
// A script is split on "\n###" into blocks. Each block is walked line by
// line through a small state machine (Transition) that recognizes:
//   - variable declarations (@name = template)
//   - function calls ($name: args or #$name: args)
//   - comments (#) and blank lines
//   - the route line (METHOD target [HTTP/version])
//   - header lines (Name: value) up to the first blank line
//   - the body, which is every line after that blank line
//
// Parsing never renders templates; that is left to the runner.
package parser
