// Package env holds the variables of a script run.
//
// It provides:
//   - Store, the two template scopes: "content" (variables declared with
//     @name = value, environment files) and "context" (startup seed plus
//     the decoded result of the latest response)
//   - LiquidRenderer, the template engine both scopes are rendered with
//   - Environment loading from http-client.env.json next to the script
//   - .env file loading
package env
