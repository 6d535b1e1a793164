package env

import (
	"sort"
)

// ContextKey names one of the reserved context entries written from responses.
type ContextKey string

const (
	KeyText     ContextKey = "Text"
	KeyJson     ContextKey = "Json"
	KeyXml      ContextKey = "Xml"
	KeyForm     ContextKey = "Form"
	KeyHtml     ContextKey = "Html"
	KeyCsv      ContextKey = "Csv"
	KeyBase64   ContextKey = "Base64"
	KeyResponse ContextKey = "Response"
)

// BodyKeys are the content-shaped keys. After a response exactly one of
// them holds the decoded body.
var BodyKeys = []ContextKey{KeyText, KeyJson, KeyXml, KeyForm, KeyHtml, KeyCsv, KeyBase64}

// Seed keys set at startup.
const (
	SeedCurrentDirectory = "CurrentDirectory"
	SeedScriptPath       = "ScriptPath"
	SeedRunID            = "RunId"
	SeedEnvironment      = "Environment"
	SeedBlock            = "Block"
)

// Body is a decoded response body tagged with the key it is stored under.
type Body struct {
	Key   ContextKey
	Value any
}

// ResponseObject is the Response entry of the context scope.
type ResponseObject struct {
	Code    int
	Message string
	Headers map[string]string
	Content any
}

func (r *ResponseObject) toMap() map[string]any {
	headers := make(map[string]any, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	content := r.Content
	if content == nil {
		content = ""
	}
	return map[string]any{
		"Code":    r.Code,
		"Message": r.Message,
		"Headers": headers,
		"Content": content,
	}
}

// Context is the global scope: startup seed plus response derived entries.
type Context struct {
	Seed     map[string]any
	Text     string
	Json     any
	Xml      string
	Form     string
	Html     string
	Csv      []map[string]any
	Base64   string
	Response *ResponseObject
}

// Get returns the value of a reserved key. Unset keys read as "".
func (c *Context) Get(key ContextKey) any {
	var v any
	switch key {
	case KeyText:
		v = c.Text
	case KeyJson:
		v = c.Json
	case KeyXml:
		v = c.Xml
	case KeyForm:
		v = c.Form
	case KeyHtml:
		v = c.Html
	case KeyCsv:
		if c.Csv != nil {
			v = c.Csv
		}
	case KeyBase64:
		v = c.Base64
	case KeyResponse:
		if c.Response != nil {
			v = c.Response.toMap()
		}
	}
	if v == nil {
		return ""
	}
	return v
}

func (c *Context) set(body *Body) {
	switch body.Key {
	case KeyText:
		c.Text, _ = body.Value.(string)
	case KeyJson:
		c.Json = body.Value
	case KeyXml:
		c.Xml, _ = body.Value.(string)
	case KeyForm:
		c.Form, _ = body.Value.(string)
	case KeyHtml:
		c.Html, _ = body.Value.(string)
	case KeyCsv:
		c.Csv, _ = body.Value.([]map[string]any)
	case KeyBase64:
		c.Base64, _ = body.Value.(string)
	}
}

func (c *Context) resetBody() {
	c.Text = ""
	c.Json = nil
	c.Xml = ""
	c.Form = ""
	c.Html = ""
	c.Csv = nil
	c.Base64 = ""
}

// Map flattens the context into template bindings.
func (c *Context) Map() map[string]any {
	m := make(map[string]any, len(c.Seed)+len(BodyKeys)+1)
	for k, v := range c.Seed {
		m[k] = v
	}
	for _, key := range BodyKeys {
		m[string(key)] = c.Get(key)
	}
	m[string(KeyResponse)] = c.Get(KeyResponse)
	return m
}

// Store holds the content (local) and context (global) scopes for one run.
// It is owned by a single runner and is not safe for concurrent use.
type Store struct {
	content map[string]string
	context *Context
}

func NewStore(seed map[string]any) *Store {
	s := &Store{
		content: make(map[string]string),
		context: &Context{Seed: make(map[string]any)},
	}
	for k, v := range seed {
		s.context.Seed[k] = v
	}
	return s
}

func (s *Store) SetContent(name, value string) {
	s.content[name] = value
}

func (s *Store) SetContents(values map[string]string) {
	for k, v := range values {
		s.content[k] = v
	}
}

func (s *Store) Content(name string) (string, bool) {
	v, ok := s.content[name]
	return v, ok
}

// ContentNames returns the declared variable names in sorted order.
func (s *Store) ContentNames() []string {
	names := make([]string, 0, len(s.content))
	for k := range s.content {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Seed sets a non reserved context entry.
func (s *Store) Seed(name string, value any) {
	s.context.Seed[name] = value
}

func (s *Store) Context() *Context {
	return s.context
}

// SetResponse resets every content-shaped key, stores body under its key
// (if any) and records the Response object.
func (s *Store) SetResponse(code int, message string, headers map[string]string, body *Body) {
	s.context.resetBody()

	resp := &ResponseObject{
		Code:    code,
		Message: message,
		Headers: headers,
	}
	if body != nil {
		s.context.set(body)
		resp.Content = body.Value
	}
	s.context.Response = resp
}

// ClearResponse empties every response derived entry.
func (s *Store) ClearResponse() {
	s.context.resetBody()
	s.context.Response = nil
}

// Bindings returns the template roots: "content" and "context". Content
// variables are also exposed at the top level unless they collide with a
// root name.
func (s *Store) Bindings() map[string]any {
	content := make(map[string]any, len(s.content))
	bindings := make(map[string]any, len(s.content)+2)
	for k, v := range s.content {
		content[k] = v
		bindings[k] = v
	}
	bindings["content"] = content
	bindings["context"] = s.context.Map()
	return bindings
}

// Render renders tpl against the current scopes.
func (s *Store) Render(r Renderer, tpl string) (string, error) {
	return r.Render(tpl, s.Bindings())
}

// Declare renders tpl and assigns the result to the content variable name.
// On a render error the variable is set to "" and the error is returned.
func (s *Store) Declare(r Renderer, name, tpl string) error {
	value, err := s.Render(r, tpl)
	if err != nil {
		s.content[name] = ""
		return err
	}
	s.content[name] = value
	return nil
}
