// Package http builds, sends and decodes the requests of a script.
//
// BuildRequest renders a parsed request through the variable store:
//   - headers go through a table keyed by lower-cased name (dropped,
//     Host rewrite, Content-Type capture, Basic credential encoding)
//   - a GET body becomes query parameters
//   - any other body is encoded by the first matching declared media type
//
// Client sends the request over HTTP/1.1 and Decode classifies the response
// body into one of the context keys (Text, Json, Xml, Form, Html, Csv,
// Base64).
package http
