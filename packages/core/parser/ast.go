package parser

import (
	"strconv"
	"strings"
)

const (
	BlockSeparator    = "\n###"
	LineSeparator     = "\n"
	CommentMarker     = "#"
	VariableMarker    = "@"
	FunctionMarker    = "$"
	FunctionMarkerAlt = "#$"

	DefaultVersion = "1.1"
)

// Methods is the fixed set of route line method tokens.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE"}

// Script is a loaded script split into raw blocks.
type Script struct {
	Path   string
	Blocks []*RawBlock
}

// RawBlock is the unparsed text of one block.
type RawBlock struct {
	Index int
	Title string
	// Line is the 1-based line of the first line of Text within the script.
	Line int
	Text string
}

// Block is a parsed block: directives in source order followed by an
// optional request.
type Block struct {
	Index      int
	Title      string
	Line       int
	Directives []*Directive
	Request    *RequestSpec
}

type DirectiveKind int

const (
	DirectiveVariable DirectiveKind = iota
	DirectiveFunction
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveVariable:
		return "variable"
	case DirectiveFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Directive is a variable declaration or a function call line.
type Directive struct {
	Kind DirectiveKind
	Name string
	// Template is the right-hand side of a variable declaration.
	Template string
	// Args are the comma separated function arguments, Raw the text after ':'.
	Args []string
	Raw  string
	Line int
}

type Header struct {
	Name  string
	Value string
	Line  int
}

// RequestSpec holds the unrendered request of a block.
type RequestSpec struct {
	Method  string
	Target  string
	Version string
	Headers []*Header
	Body    string
	Line    int
}

// Header returns the raw value of the last header named name.
func (r *RequestSpec) Header(name string) string {
	value := ""
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			value = h.Value
		}
	}
	return value
}

// ContentType returns the declared Content-Type, before rendering.
func (r *RequestSpec) ContentType() string {
	return r.Header("Content-Type")
}

type ParseError struct {
	File    string
	Line    int
	Message string
	Snippet string
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Snippet != "" {
		msg += ": " + e.Snippet
	}
	if e.File != "" {
		return e.File + ":" + strconv.Itoa(e.Line) + ": " + msg
	}
	return "line " + strconv.Itoa(e.Line) + ": " + msg
}
