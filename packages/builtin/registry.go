package builtin

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/itchyny/gojq"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownFunction is returned for a function line whose name is not
	// registered. The block is abandoned.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrAssertionFailed marks a check that ran and did not hold. The block
	// stops before its request.
	ErrAssertionFailed = errors.New("assertion failed")
)

// Call is one function line of a block.
type Call struct {
	Name string
	// Raw is the rendered text after ':', Args the same text split on commas.
	Raw  string
	Args []string
	Line int
}

// Env is what a function sees of the run.
type Env struct {
	Store    *env.Store
	Renderer env.Renderer
	// Dir is the script directory; relative paths resolve against it.
	Dir string
	Log logrus.FieldLogger
}

type Func func(e *Env, call *Call) error

// Registry maps lower-cased function names to implementations. It is owned
// by one runner and is not safe for concurrent use.
type Registry struct {
	funcs   map[string]Func
	jqCache map[string]*gojq.Code
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs:   make(map[string]Func),
		jqCache: make(map[string]*gojq.Code),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.Register("debugging", funcDebugging)
	r.Register("assert", funcAssert)
	r.Register("check", funcCheck)
	r.Register("expect", funcExpect)
	r.Register("jq", r.funcJQ)
	r.Register("schema", funcSchema)
	r.Register("capture", funcCapture)

	r.Register("uuid", funcUUID)
	r.Register("now", funcNow)
	r.Register("timestamp", funcTimestamp)
	r.Register("timestampMs", funcTimestampMs)
	r.Register("date", funcDate)
	r.Register("random", funcRandom)
	r.Register("randomString", funcRandomString)
	r.Register("randomEmail", funcRandomEmail)
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[strings.ToLower(name)] = fn
}

func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[strings.ToLower(name)]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call renders the argument text of a function line and runs the function.
func (r *Registry) Call(e *Env, name, raw string, line int) error {
	fn, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	rendered := raw
	if raw != "" {
		var err error
		rendered, err = e.Store.Render(e.Renderer, raw)
		if err != nil {
			return fmt.Errorf("rendering arguments of %s: %w", name, err)
		}
	}

	return fn(e, &Call{
		Name: strings.ToLower(name),
		Raw:  strings.TrimSpace(rendered),
		Args: SplitArgs(rendered),
		Line: line,
	})
}

// SplitArgs splits on commas outside single or double quotes, trims each
// argument and drops empty ones. Quotes around an argument are removed.
func SplitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	flush := func() {
		arg := strings.TrimSpace(current.String())
		current.Reset()
		if arg != "" {
			args = append(args, arg)
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !inQuote && (ch == '"' || ch == '\'') {
			inQuote = true
			quoteChar = ch
		} else if inQuote && ch == quoteChar {
			inQuote = false
			quoteChar = 0
		} else if !inQuote && ch == ',' {
			flush()
		} else {
			current.WriteByte(ch)
		}
	}
	flush()

	return args
}

func (r *Registry) compileJQ(query string) (*gojq.Code, error) {
	if code, ok := r.jqCache[query]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq query %q: %w", query, err)
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq query %q: %w", query, err)
	}

	r.jqCache[query] = code
	return code, nil
}
