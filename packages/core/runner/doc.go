// Package runner executes httpipe scripts.
//
// A run is a fold over the blocks of one script. Every block reads and
// updates the same variable store, so block N+1 sees the content variables
// and the decoded response left by block N:
//
//	parse -> directives -> render -> build -> send -> decode -> merge
//
// A failing block is recorded on its BlockResult and the run moves on,
// keeping whatever its earlier lines contributed. A malformed line abandons
// the block after the declarations and calls above it have run; template
// errors in the request and unknown functions abandon it too; a failed check stops it before the request is sent; a
// target that is not an absolute http(s) URL skips it. Only cancelling the
// context stops the remaining blocks.
package runner
