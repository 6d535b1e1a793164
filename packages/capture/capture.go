package capture

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/tidwall/gjson"
)

type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceMessage
)

// Capture names one value of the last response: "body.user.id",
// "header X-Request-Id", "status" or "message".
type Capture struct {
	Name   string
	Source Source
	Path   string
}

// Parse reads the capture target text into c.
func Parse(name, target string) (*Capture, error) {
	target = strings.TrimSpace(target)
	c := &Capture{Name: name}

	switch {
	case target == "status":
		c.Source = SourceStatus
	case target == "message":
		c.Source = SourceMessage
	case strings.HasPrefix(target, "header "):
		c.Source = SourceHeader
		c.Path = strings.TrimSpace(strings.TrimPrefix(target, "header "))
		if c.Path == "" {
			return nil, fmt.Errorf("capture %s: header name required", name)
		}
	case target == "body":
		c.Source = SourceBody
	case strings.HasPrefix(target, "body."):
		c.Source = SourceBody
		c.Path = strings.TrimPrefix(indexNotation.Replace(strings.TrimPrefix(target, "body.")), ".")
	default:
		return nil, fmt.Errorf("capture %s: unknown source %q (expected body[.path], header <name>, status or message)", name, target)
	}
	return c, nil
}

// indexNotation rewrites "items[0].id" to the "items.0.id" path form.
var indexNotation = strings.NewReplacer("[", ".", "]", "")

type Extractor struct {
	response *env.ResponseObject
	bodyJSON gjson.Result
}

func NewExtractor(ctx *env.Context) *Extractor {
	e := &Extractor{
		response: ctx.Response,
	}
	switch ctx.Json.(type) {
	case map[string]any, []any:
		if data, err := json.Marshal(ctx.Json); err == nil {
			e.bodyJSON = gjson.ParseBytes(data)
		}
	}
	return e
}

// Extract returns the captured value, or false when the last response does
// not carry it.
func (e *Extractor) Extract(capture *Capture) (any, bool) {
	if e.response == nil {
		return nil, false
	}

	switch capture.Source {
	case SourceBody:
		return e.extractFromBody(capture.Path)
	case SourceHeader:
		return e.extractFromHeader(capture.Path)
	case SourceStatus:
		return e.response.Code, true
	case SourceMessage:
		return e.response.Message, true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" && e.response.Content != nil {
			return e.response.Content, true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	for k, v := range e.response.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
