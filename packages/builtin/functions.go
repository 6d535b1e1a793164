package builtin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/httpipe/packages/assertions"
	"github.com/abdul-hamid-achik/httpipe/packages/capture"
	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/expr-lang/expr"
)

// funcDebugging logs both scopes at info level.
func funcDebugging(e *Env, _ *Call) error {
	content := make(map[string]string)
	for _, name := range e.Store.ContentNames() {
		content[name], _ = e.Store.Content(name)
	}

	e.Log.WithField("scope", "content").Info(dump(content))
	e.Log.WithField("scope", "context").Info(dump(e.Store.Context().Map()))
	return nil
}

func dump(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// funcAssert fails unless the last response status is one of the arguments.
// An argument is a status code (201) or a class (2xx).
func funcAssert(e *Env, call *Call) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("assert requires at least one status code")
	}

	resp := e.Store.Context().Response
	if resp == nil {
		return fmt.Errorf("%w: %w", ErrAssertionFailed, assertions.ErrNoResponse)
	}

	for _, arg := range call.Args {
		ok, err := statusMatches(resp.Code, arg)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: status %d not in [%s]", ErrAssertionFailed, resp.Code, strings.Join(call.Args, ", "))
}

func statusMatches(code int, pattern string) (bool, error) {
	p := strings.ToLower(pattern)
	if len(p) == 3 && strings.HasSuffix(p, "xx") && p[0] >= '1' && p[0] <= '5' {
		return code/100 == int(p[0]-'0'), nil
	}
	want, err := strconv.Atoi(p)
	if err != nil {
		return false, fmt.Errorf("assert: %q is not a status code", pattern)
	}
	return code == want, nil
}

// funcCheck evaluates one assertion such as "body.id exists" against the
// last response.
func funcCheck(e *Env, call *Call) error {
	a, err := assertions.Parse(call.Raw)
	if err != nil {
		return err
	}
	return checkFailed(assertions.Evaluate(e.Store.Context(), a, e.Dir))
}

// funcSchema validates the last response body against a schema file.
func funcSchema(e *Env, call *Call) error {
	if len(call.Args) != 1 {
		return fmt.Errorf("schema requires exactly one schema path")
	}

	a, err := assertions.New("body", assertions.OpSchema, call.Args[0])
	if err != nil {
		return err
	}
	return checkFailed(assertions.Evaluate(e.Store.Context(), a, e.Dir))
}

// checkFailed marks failed checks and missing responses as assertion
// failures. Other errors pass through.
func checkFailed(err error) error {
	var failure *assertions.Failure
	if errors.As(err, &failure) || errors.Is(err, assertions.ErrNoResponse) {
		return fmt.Errorf("%w: %w", ErrAssertionFailed, err)
	}
	return err
}

// funcExpect evaluates a boolean expression over the template bindings:
// content, context and every content variable by name.
func funcExpect(e *Env, call *Call) error {
	if call.Raw == "" {
		return fmt.Errorf("expect requires an expression")
	}

	bindings := e.Store.Bindings()
	program, err := expr.Compile(call.Raw, expr.Env(bindings), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile expression %q: %w", call.Raw, err)
	}
	output, err := expr.Run(program, bindings)
	if err != nil {
		return fmt.Errorf("eval expression %q: %w", call.Raw, err)
	}
	ok, isBool := output.(bool)
	if !isBool {
		return fmt.Errorf("expression %q did not return bool (got %T)", call.Raw, output)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssertionFailed, call.Raw)
	}
	return nil
}

// funcJQ runs a jq query against the last JSON response and stores the
// result in a content variable: "$jq: name, query".
func (r *Registry) funcJQ(e *Env, call *Call) error {
	name, query, ok := strings.Cut(call.Raw, ",")
	name = strings.TrimSpace(name)
	query = strings.TrimSpace(query)
	if !ok || name == "" || query == "" {
		return fmt.Errorf("jq requires a variable name and a query")
	}

	code, err := r.compileJQ(query)
	if err != nil {
		return err
	}

	input := e.Store.Context().Get(env.KeyJson)
	switch input.(type) {
	case map[string]any, []any:
	default:
		return fmt.Errorf("jq: last response is not a JSON object or array")
	}

	var results []any
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq %q: %w", query, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		e.Store.SetContent(name, "")
	case 1:
		e.Store.SetContent(name, stringify(results[0]))
	default:
		e.Store.SetContent(name, stringify(results))
	}
	return nil
}

// funcCapture stores one value of the last response in a content variable:
// "$capture: id, body.user.id". A missing value stores "".
func funcCapture(e *Env, call *Call) error {
	name, target, ok := strings.Cut(call.Raw, ",")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("capture requires a variable name and a source")
	}

	c, err := capture.Parse(name, target)
	if err != nil {
		return err
	}

	value, found := capture.NewExtractor(e.Store.Context()).Extract(c)
	if !found {
		e.Log.WithField("variable", name).Debugf("capture %s: no value", strings.TrimSpace(target))
	}
	e.Store.SetContent(name, stringify(value))
	return nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
