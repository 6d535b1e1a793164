package assertions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/httpipe/packages/capture"
)

// Operator is the comparison token of a check.
type Operator string

const (
	OpEquals       Operator = "=="
	OpNotEquals    Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpContains     Operator = "contains"
	OpNotContains  Operator = "!contains"
	OpMatches      Operator = "matches"
	OpIncludes     Operator = "includes"
	OpExists       Operator = "exists"
	OpNotExists    Operator = "!exists"
	OpSchema       Operator = "schema"
)

var operators = []Operator{
	OpEquals, OpNotEquals,
	OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
	OpContains, OpNotContains, OpMatches, OpIncludes,
	OpExists, OpNotExists,
	OpSchema,
}

// ParseOperator looks up an operator token case-insensitively.
func ParseOperator(token string) (Operator, bool) {
	for _, op := range operators {
		if strings.EqualFold(token, string(op)) {
			return op, true
		}
	}
	return "", false
}

func (op Operator) unary() bool {
	return op == OpExists || op == OpNotExists
}

// Assertion is one check against the last response.
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any

	target *capture.Capture
}

// New builds an assertion on subject. The subject uses the capture sources
// (status, message, header <name>, body[.path]); any other subject is read
// as a body path, so "id" means "body.id".
func New(subject string, op Operator, expected any) (*Assertion, error) {
	source := subject
	if !isSource(subject) {
		source = "body." + subject
	}
	target, err := capture.Parse(subject, source)
	if err != nil {
		return nil, err
	}
	return &Assertion{Subject: subject, Operator: op, Expected: expected, target: target}, nil
}

func isSource(subject string) bool {
	switch {
	case subject == "status", subject == "message", subject == "body":
		return true
	case strings.HasPrefix(subject, "body."), strings.HasPrefix(subject, "header "):
		return true
	}
	return false
}

// Parse reads "<subject> <operator> [expected]", for example
// "status == 200", "header Content-Type contains json" or "body.id exists".
// The first known operator token ends the subject. Expected values are read
// as JSON when possible and as plain text otherwise.
func Parse(line string) (*Assertion, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("assertion %q requires a subject and an operator", line)
	}

	for i := 1; i < len(fields); i++ {
		op, ok := ParseOperator(fields[i])
		if !ok {
			continue
		}
		rest := strings.Join(fields[i+1:], " ")
		switch {
		case op.unary() && rest != "":
			return nil, fmt.Errorf("assertion %q: %s takes no value", line, op)
		case !op.unary() && rest == "":
			return nil, fmt.Errorf("assertion %q: %s requires a value", line, op)
		}

		var expected any
		if rest != "" {
			expected = parseExpected(rest)
		}
		return New(strings.Join(fields[:i], " "), op, expected)
	}

	return nil, fmt.Errorf("assertion %q has no known operator", line)
}

func parseExpected(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return raw[1 : len(raw)-1]
	}
	return raw
}
