package assertions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/httpipe/packages/capture"
	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNoResponse is returned when a check needs a response and no request
// has completed yet.
var ErrNoResponse = errors.New("no response to assert on")

// Failure is a check that was evaluated and did not hold.
type Failure struct {
	Assertion *Assertion
	Actual    any
	Reason    string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s: %s", f.Assertion.Subject, f.Assertion.Operator, f.Reason)
}

// Evaluate runs a against the last response in ctx. It returns nil when the
// check holds and a *Failure when it does not. Any other error means the
// check could not be evaluated. Relative schema paths are resolved against
// dir.
func Evaluate(ctx *env.Context, a *Assertion, dir string) error {
	if ctx.Response == nil {
		return ErrNoResponse
	}

	actual, found := capture.NewExtractor(ctx).Extract(a.target)
	fail := func(format string, args ...any) error {
		return &Failure{Assertion: a, Actual: actual, Reason: fmt.Sprintf(format, args...)}
	}

	switch a.Operator {
	case OpExists:
		if !found {
			return fail("expected to exist")
		}
	case OpNotExists:
		if found {
			return fail("expected not to exist, got %v", actual)
		}
	case OpEquals:
		if !equal(actual, a.Expected) {
			return fail("expected %v, got %v", a.Expected, actual)
		}
	case OpNotEquals:
		if equal(actual, a.Expected) {
			return fail("expected not to equal %v", a.Expected)
		}
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		x, okA := number(actual)
		y, okE := number(a.Expected)
		if !okA || !okE {
			return fail("cannot compare %v with %v", actual, a.Expected)
		}
		if !ordered(a.Operator, x, y) {
			return fail("expected %v %s %v", actual, a.Operator, a.Expected)
		}
	case OpContains, OpNotContains:
		has := strings.Contains(fmt.Sprint(actual), fmt.Sprint(a.Expected))
		if has != (a.Operator == OpContains) {
			return fail("%q against %q", fmt.Sprint(actual), fmt.Sprint(a.Expected))
		}
	case OpMatches:
		pattern := strings.Trim(fmt.Sprint(a.Expected), "/")
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if !re.MatchString(fmt.Sprint(actual)) {
			return fail("%q does not match /%s/", fmt.Sprint(actual), pattern)
		}
	case OpIncludes:
		items, ok := actual.([]any)
		if !ok {
			return fail("expected an array, got %T", actual)
		}
		for _, item := range items {
			if equal(item, a.Expected) {
				return nil
			}
		}
		return fail("%v not in %v", a.Expected, actual)
	case OpSchema:
		reasons, err := validateSchema(actual, schemaPath(dir, fmt.Sprint(a.Expected)))
		if err != nil {
			return err
		}
		if len(reasons) > 0 {
			return fail("schema validation failed: %s", strings.Join(reasons, "; "))
		}
	default:
		return fmt.Errorf("unknown operator %q", a.Operator)
	}
	return nil
}

func equal(actual, expected any) bool {
	if x, ok := number(actual); ok {
		if y, ok := number(expected); ok {
			return x == y
		}
	}
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func ordered(op Operator, x, y float64) bool {
	switch op {
	case OpGreater:
		return x > y
	case OpGreaterEqual:
		return x >= y
	case OpLess:
		return x < y
	default:
		return x <= y
	}
}

func schemaPath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// validateSchema checks doc against the JSON Schema file at path and
// returns one reason per violation.
func validateSchema(doc any, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(data), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validating against %s: %w", path, err)
	}

	var reasons []string
	for _, desc := range result.Errors() {
		reasons = append(reasons, desc.String())
	}
	return reasons, nil
}
