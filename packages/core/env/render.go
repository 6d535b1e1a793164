package env

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// Renderer renders a template against template bindings.
type Renderer interface {
	Render(tpl string, bindings map[string]any) (string, error)
}

// RenderError reports a template that failed to parse or evaluate.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", truncate(e.Template, 60), e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// LiquidRenderer renders Liquid templates ({{ context.Json.id }},
// {% if ... %}) with a few extra filters.
type LiquidRenderer struct {
	engine *liquid.Engine
}

func NewLiquidRenderer() *LiquidRenderer {
	engine := liquid.NewEngine()
	registerFilters(engine)
	return &LiquidRenderer{engine: engine}
}

func (r *LiquidRenderer) Render(tpl string, bindings map[string]any) (string, error) {
	if !strings.Contains(tpl, "{{") && !strings.Contains(tpl, "{%") {
		return tpl, nil
	}
	out, err := r.engine.ParseAndRenderString(tpl, bindings)
	if err != nil {
		return "", &RenderError{Template: tpl, Err: err}
	}
	return out, nil
}

func registerFilters(engine *liquid.Engine) {
	engine.RegisterFilter("b64enc", func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	})
	engine.RegisterFilter("b64dec", func(s string) string {
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return ""
		}
		return string(decoded)
	})
	engine.RegisterFilter("md5", func(s string) string {
		sum := md5.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	engine.RegisterFilter("sha256", func(s string) string {
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	engine.RegisterFilter("to_json", func(v any) string {
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
