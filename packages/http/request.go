package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/abdul-hamid-achik/httpipe/packages/core/parser"
	"github.com/tidwall/gjson"
)

var ErrInvalidTarget = errors.New("target is not an absolute http(s) URL")

// RenderFunc renders one template against the current variable store.
type RenderFunc func(tpl string) (string, error)

type Header struct {
	Name  string
	Value string
}

// Request is a rendered request ready to be sent.
type Request struct {
	Method string
	URL    string
	// Version is the protocol version of the route line. Requests always go
	// out as HTTP/1.1; version 1.0 closes the connection after the exchange.
	Version string
	// Host overrides the Host header sent on the wire.
	Host    string
	Headers []Header
	Body    []byte
	// ContentType is the media type attached with Body. It is empty when
	// there is no body.
	ContentType string
	// DeclaredType is the Content-Type header value from the script.
	DeclaredType string
	// BodyDropped is set when a JSON body failed validation and was omitted.
	BodyDropped bool
}

func (r *Request) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

type headerHandler func(r *Request, value string)

// headerHandlers is keyed by lower-cased header name. Headers without an
// entry pass through unchanged.
var headerHandlers = map[string]headerHandler{
	"content-length": dropHeader,
	"x-request-type": dropHeader,
	"host":           hostHeader,
	"content-type":   contentTypeHeader,
	"authorization":  authorizationHeader,
}

func dropHeader(*Request, string) {}

func hostHeader(r *Request, value string) {
	r.Host = value
	if isAbsolute(r.URL) {
		return
	}
	target := r.URL
	if target != "" && !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	r.URL = "http://" + value + target
}

func contentTypeHeader(r *Request, value string) {
	r.DeclaredType = value
}

func authorizationHeader(r *Request, value string) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	token = strings.TrimSpace(token)
	if ok && strings.EqualFold(scheme, AuthSchemeBasic) && strings.Contains(token, ":") {
		value = AuthSchemeBasic + " " + base64.StdEncoding.EncodeToString([]byte(token))
	}
	r.Headers = append(r.Headers, Header{Name: HeaderAuthorization, Value: value})
}

// BodyKind names the branch used to encode a request body.
type BodyKind string

const (
	BodyForm   BodyKind = "form"
	BodyXML    BodyKind = "xml"
	BodyText   BodyKind = "text"
	BodyJSON   BodyKind = "json"
	BodyBinary BodyKind = "binary"
)

type bodyEncoder struct {
	match  string
	kind   BodyKind
	encode func(r *Request, body string)
}

// bodyEncoders are tried in order against the lower-cased declared content
// type; the first substring match wins.
var bodyEncoders = []bodyEncoder{
	{MIMEApplicationFormURLEncoded, BodyForm, encodeForm},
	{"xml", BodyXML, encodeText},
	{MIMETextPlain, BodyText, encodeText},
	{"json", BodyJSON, encodeJSON},
}

// ClassifyBody returns the encoding branch for a declared content type.
func ClassifyBody(contentType string) BodyKind {
	if enc := findEncoder(contentType); enc != nil {
		return enc.kind
	}
	return BodyBinary
}

func findEncoder(contentType string) *bodyEncoder {
	ct := strings.ToLower(contentType)
	for i := range bodyEncoders {
		if strings.Contains(ct, bodyEncoders[i].match) {
			return &bodyEncoders[i]
		}
	}
	return nil
}

func encodeForm(r *Request, body string) {
	r.Body = []byte(EncodePairs(ParsePairs(body)))
	r.ContentType = r.DeclaredType
}

func encodeText(r *Request, body string) {
	r.Body = []byte(body)
	r.ContentType = r.DeclaredType
}

func encodeJSON(r *Request, body string) {
	if !gjson.Valid(body) {
		r.BodyDropped = true
		return
	}
	r.Body = []byte(body)
	r.ContentType = r.DeclaredType
}

func encodeBinary(r *Request, body string) {
	r.Body = []byte(body)
	r.ContentType = MIMEOctetStream
}

// BuildRequest renders spec through render and builds the request to send.
// A render failure is returned as is; a target that does not resolve to an
// absolute http(s) URL yields ErrInvalidTarget.
func BuildRequest(spec *parser.RequestSpec, render RenderFunc) (*Request, error) {
	target, err := render(spec.Target)
	if err != nil {
		return nil, fmt.Errorf("rendering target: %w", err)
	}

	r := &Request{
		Method:  spec.Method,
		URL:     strings.TrimSpace(target),
		Version: spec.Version,
	}

	for _, h := range spec.Headers {
		value, err := render(h.Value)
		if err != nil {
			return nil, fmt.Errorf("rendering header %s: %w", h.Name, err)
		}
		if handle, ok := headerHandlers[strings.ToLower(h.Name)]; ok {
			handle(r, value)
			continue
		}
		r.Headers = append(r.Headers, Header{Name: h.Name, Value: value})
	}

	body, err := render(spec.Body)
	if err != nil {
		return nil, fmt.Errorf("rendering body: %w", err)
	}

	switch {
	case body == "":
	case r.Method == "GET":
		r.URL = AppendQuery(r.URL, ParsePairs(body))
	default:
		if enc := findEncoder(r.DeclaredType); enc != nil {
			enc.encode(r, body)
		} else {
			encodeBinary(r, body)
		}
	}

	resolved, err := ResolveTarget(r.URL)
	if err != nil {
		return r, err
	}
	r.URL = resolved
	return r, nil
}

// AppendQuery appends pairs to target as an encoded query string.
func AppendQuery(target string, pairs []Pair) string {
	if len(pairs) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + EncodePairs(pairs)
}

// ResolveTarget checks that target is an absolute http(s) URL.
func ResolveTarget(target string) (string, error) {
	if err := ValidateURL(target); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidTarget, target, err)
	}
	return target, nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

func isAbsolute(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
