// Package assertions checks the last response held in the run context.
//
// A check reads "<subject> <operator> [expected]":
//
//	status == 200
//	header Content-Type contains json
//	body.data.id exists
//	body.tags includes "admin"
//	body schema ./user.schema.json
//
// Subjects are resolved by the capture package, so they accept the same
// paths as $capture.
package assertions
