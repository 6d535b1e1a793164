package parser

import (
	"os"
	"regexp"
	"strings"
)

var versionPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

func ParseFile(path string) (*Script, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	script := Split(string(content))
	script.Path = path
	return script, nil
}

// Split cuts a script into blocks on the "\n###" delimiter. The rest of the
// delimiter line becomes the block title. Blocks without content are dropped.
func Split(text string) *Script {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	script := &Script{}

	line := 1
	for i, part := range strings.Split(text, BlockSeparator) {
		start := line
		line += strings.Count(part, LineSeparator) + 1

		title := ""
		body := part
		bodyLine := start
		if i > 0 || strings.HasPrefix(part, "###") {
			head, rest, _ := strings.Cut(part, LineSeparator)
			title = strings.TrimSpace(strings.TrimLeft(head, "#"))
			body = rest
			bodyLine = start + 1
		}

		if strings.TrimSpace(body) == "" {
			continue
		}

		script.Blocks = append(script.Blocks, &RawBlock{
			Index: len(script.Blocks) + 1,
			Title: title,
			Line:  bodyLine,
			Text:  body,
		})
	}

	return script
}

// ParseBlock walks the block lines through Transition and collects the
// directives and the request. On a malformed line it returns a *ParseError
// together with the block read so far, whose directives are the ones that
// precede the bad line.
func ParseBlock(raw *RawBlock) (*Block, error) {
	block := &Block{
		Index: raw.Index,
		Title: raw.Title,
		Line:  raw.Line,
	}

	lines := strings.Split(raw.Text, LineSeparator)
	state := StateUnknown

	for i := 0; i < len(lines); i++ {
		lineNo := raw.Line + i
		current := strings.TrimSpace(lines[i])
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}

		var action Action
		state, action = Transition(state, current, next)

		switch action {
		case ActionVariable:
			d, err := ParseVariable(current)
			if err != nil {
				return block, withLine(err, lineNo)
			}
			d.Line = lineNo
			block.Directives = append(block.Directives, d)

		case ActionFunction:
			d, err := ParseFunction(current)
			if err != nil {
				return block, withLine(err, lineNo)
			}
			d.Line = lineNo
			block.Directives = append(block.Directives, d)

		case ActionRoute:
			req, err := ParseRoute(current)
			if err != nil {
				return block, withLine(err, lineNo)
			}
			req.Line = lineNo
			block.Request = req

		case ActionHeader:
			h, err := ParseHeader(current)
			if err != nil {
				return block, withLine(err, lineNo)
			}
			h.Line = lineNo
			if block.Request != nil {
				block.Request.Headers = append(block.Request.Headers, h)
			}

		case ActionBody:
			if block.Request != nil {
				block.Request.Body = strings.TrimSpace(strings.Join(lines[i+1:], LineSeparator))
			}
			i = len(lines)
		}
	}

	return block, nil
}

// ParseRoute splits "<METHOD> <target> [HTTP/<version>]".
func ParseRoute(line string) (*RequestSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, &ParseError{Message: "route line requires a target", Snippet: line}
	}

	req := &RequestSpec{
		Method:  strings.ToUpper(fields[0]),
		Target:  fields[1],
		Version: DefaultVersion,
	}

	if len(fields) > 2 {
		version := fields[2]
		if len(version) > 5 && strings.EqualFold(version[:5], "HTTP/") {
			version = version[5:]
		}
		if !versionPattern.MatchString(version) {
			return nil, &ParseError{Message: "invalid protocol version", Snippet: fields[2]}
		}
		req.Version = version
	}

	return req, nil
}

// ParseHeader splits "<Name>: <value>" on the first colon.
func ParseHeader(line string) (*Header, error) {
	name, value, found := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return nil, &ParseError{Message: "header line requires 'name: value'", Snippet: line}
	}
	return &Header{
		Name:  name,
		Value: strings.TrimSpace(value),
	}, nil
}

// ParseVariable splits "@name = template" on the first '='.
func ParseVariable(line string) (*Directive, error) {
	left, right, found := strings.Cut(line, "=")
	if !found {
		return nil, &ParseError{Message: "variable declaration requires '='", Snippet: line}
	}
	name := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(left), VariableMarker))
	if name == "" {
		return nil, &ParseError{Message: "variable declaration requires a name", Snippet: line}
	}
	return &Directive{
		Kind:     DirectiveVariable,
		Name:     name,
		Template: strings.TrimSpace(right),
	}, nil
}

// ParseFunction splits "$name: arg1, arg2" (or "#$name: ...") on the first ':'.
func ParseFunction(line string) (*Directive, error) {
	line = strings.TrimLeft(strings.TrimSpace(line), FunctionMarkerAlt)
	name, rest, _ := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ParseError{Message: "function call requires a name", Snippet: line}
	}

	d := &Directive{
		Kind: DirectiveFunction,
		Name: name,
		Raw:  strings.TrimSpace(rest),
	}
	for _, arg := range strings.Split(d.Raw, ",") {
		if arg = strings.TrimSpace(arg); arg != "" {
			d.Args = append(d.Args, arg)
		}
	}
	return d, nil
}

func withLine(err error, line int) error {
	if pe, ok := err.(*ParseError); ok {
		pe.Line = line
		return pe
	}
	return err
}
