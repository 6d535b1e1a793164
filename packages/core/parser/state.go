package parser

import "strings"

// State is the current interpretation mode of the block walker.
type State int

const (
	StateUnknown State = iota
	StateRoute
	StateHeaders
	StateContent
	StateVariable
	StateFunction
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateRoute:
		return "route"
	case StateHeaders:
		return "headers"
	case StateContent:
		return "content"
	case StateVariable:
		return "variable"
	case StateFunction:
		return "function"
	default:
		return "invalid"
	}
}

// Action tells the block walker what to do with the current line.
type Action int

const (
	ActionSkip Action = iota
	ActionVariable
	ActionFunction
	ActionRoute
	ActionHeader
	// ActionBody consumes every remaining line of the block as the body.
	ActionBody
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionVariable:
		return "variable"
	case ActionFunction:
		return "function"
	case ActionRoute:
		return "route"
	case ActionHeader:
		return "header"
	case ActionBody:
		return "body"
	default:
		return "invalid"
	}
}

// Transition is the block state machine. It decides from the current state,
// the current line and the following line what the current line is and
// which state handles the next one.
func Transition(state State, line, next string) (State, Action) {
	line = strings.TrimSpace(line)

	if state == StateUnknown {
		state = Classify(line)
		if state == StateUnknown {
			return StateUnknown, ActionSkip
		}
	}

	switch state {
	case StateVariable:
		return StateUnknown, ActionVariable
	case StateFunction:
		return StateUnknown, ActionFunction
	case StateRoute:
		if isBlank(next) {
			return StateContent, ActionRoute
		}
		return StateHeaders, ActionRoute
	case StateHeaders:
		nextState := StateHeaders
		if isBlank(next) {
			nextState = StateContent
		}
		if strings.HasPrefix(line, CommentMarker) {
			return nextState, ActionSkip
		}
		return nextState, ActionHeader
	case StateContent:
		return StateUnknown, ActionBody
	}

	return StateUnknown, ActionSkip
}

// Classify decides the state a line opens when the walker is in
// StateUnknown. Comments, blank lines and unrecognized text stay unknown.
func Classify(line string) State {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return StateUnknown
	case strings.HasPrefix(line, VariableMarker):
		return StateVariable
	case strings.HasPrefix(line, FunctionMarker), strings.HasPrefix(line, FunctionMarkerAlt):
		return StateFunction
	case strings.HasPrefix(line, CommentMarker):
		return StateUnknown
	case IsRouteLine(line):
		return StateRoute
	}
	return StateUnknown
}

// IsRouteLine reports whether line starts with a method token followed by
// whitespace or the end of the line.
func IsRouteLine(line string) bool {
	for _, m := range Methods {
		if len(line) < len(m) || !strings.EqualFold(line[:len(m)], m) {
			continue
		}
		if len(line) == len(m) || line[len(m)] == ' ' || line[len(m)] == '\t' {
			return true
		}
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
