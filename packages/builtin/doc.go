// Package builtin provides the functions a script can call with a
// "$name: args" line.
//
// Checks stop the block before its request when they fail:
//   - assert: 200, 201, 2xx   status of the last response
//   - check: body.id exists   one assertion on the last response
//   - expect: expression      boolean expression over content and context
//   - schema: path            JSON Schema validation of the last response
//
// Others update the content scope or log:
//   - jq: name, query         jq query result stored in content.name
//   - capture: name, source   body.path, header X, status or message of the
//     last response stored in content.name
//   - uuid, now, timestamp, timestampMs, date, random, randomString,
//     randomEmail: name, ...  fresh generated value stored in content.name
//   - debugging               dump both scopes
//
// Names are matched case-insensitively.
package builtin
