package builtin

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T) (*Env, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	return &Env{
		Store:    env.NewStore(map[string]any{env.SeedRunID: "run-1"}),
		Renderer: env.NewLiquidRenderer(),
		Dir:      t.TempDir(),
		Log:      logger,
	}, hook
}

func withJSON(e *Env, code int, value any) {
	e.Store.SetResponse(code, "", map[string]string{"Content-Type": "application/json"}, &env.Body{Key: env.KeyJson, Value: value})
}

func TestRegistry_UnknownFunction(t *testing.T) {
	e, _ := newEnv(t)
	err := NewRegistry().Call(e, "nope", "", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"debugging", "DEBUGGING", "Assert", "randomstring", "randomString"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}
	assert.Contains(t, r.Names(), "jq")
}

func TestRegistry_RendersArguments(t *testing.T) {
	e, _ := newEnv(t)
	e.Store.SetContent("expected", "201")
	withJSON(e, 201, map[string]any{})

	require.NoError(t, NewRegistry().Call(e, "assert", "{{content.expected}}", 1))
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"200", "201"}, SplitArgs("200, 201"))
	assert.Equal(t, []string{"a, b", "c"}, SplitArgs(`"a, b", 'c'`))
	assert.Nil(t, SplitArgs("  ,  "))
}

func TestDebugging(t *testing.T) {
	e, hook := newEnv(t)
	e.Store.SetContent("host", "http://h")

	require.NoError(t, NewRegistry().Call(e, "debugging", "", 1))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, `"host": "http://h"`)
	assert.Contains(t, entries[1].Message, `"RunId": "run-1"`)
}

func TestAssert(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		args    string
		wantErr error
	}{
		{"exact match", 200, "200", nil},
		{"one of many", 201, "200, 201", nil},
		{"class", 204, "2xx", nil},
		{"mismatch", 404, "200, 2xx", ErrAssertionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEnv(t)
			withJSON(e, tt.code, map[string]any{})

			err := NewRegistry().Call(e, "assert", tt.args, 1)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAssert_Errors(t *testing.T) {
	e, _ := newEnv(t)
	r := NewRegistry()

	err := r.Call(e, "assert", "200", 1)
	assert.ErrorIs(t, err, ErrAssertionFailed)

	withJSON(e, 200, map[string]any{})
	err = r.Call(e, "assert", "", 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssertionFailed)

	err = r.Call(e, "assert", "ok", 1)
	assert.Contains(t, err.Error(), "not a status code")
}

func TestCheck(t *testing.T) {
	e, _ := newEnv(t)
	withJSON(e, 200, map[string]any{"id": float64(7), "tags": []any{"a", "b"}})
	r := NewRegistry()

	assert.NoError(t, r.Call(e, "check", "status == 200", 1))
	assert.NoError(t, r.Call(e, "check", "body.id > 5", 1))
	assert.NoError(t, r.Call(e, "check", "body.tags includes \"b\"", 1))

	err := r.Call(e, "check", "body.id == 8", 1)
	assert.ErrorIs(t, err, ErrAssertionFailed)

	err = r.Call(e, "check", "body.id", 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssertionFailed)
}

func TestExpect(t *testing.T) {
	e, _ := newEnv(t)
	e.Store.SetContent("name", "john")
	withJSON(e, 200, map[string]any{"name": "john", "age": float64(30)})
	r := NewRegistry()

	assert.NoError(t, r.Call(e, "expect", `context.Response.Code == 200`, 1))
	assert.NoError(t, r.Call(e, "expect", `context.Json.age > 18 && context.Json.name == content.name`, 1))
	assert.NoError(t, r.Call(e, "expect", `name == "john"`, 1))

	err := r.Call(e, "expect", `context.Json.age < 18`, 1)
	assert.ErrorIs(t, err, ErrAssertionFailed)

	err = r.Call(e, "expect", `context.Json.age +`, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssertionFailed)
}

func TestJQ(t *testing.T) {
	e, _ := newEnv(t)
	withJSON(e, 200, map[string]any{
		"token": "abc",
		"items": []any{
			map[string]any{"id": float64(1)},
			map[string]any{"id": float64(2)},
		},
	})
	r := NewRegistry()

	require.NoError(t, r.Call(e, "jq", "token, .token", 1))
	require.NoError(t, r.Call(e, "jq", "first, .items[0].id", 1))
	require.NoError(t, r.Call(e, "jq", "ids, [.items[].id]", 1))
	require.NoError(t, r.Call(e, "jq", "each, .items[].id", 1))
	require.NoError(t, r.Call(e, "jq", "missing, .nope", 1))

	get := func(name string) string {
		v, ok := e.Store.Content(name)
		require.True(t, ok, name)
		return v
	}
	assert.Equal(t, "abc", get("token"))
	assert.Equal(t, "1", get("first"))
	assert.Equal(t, "[1,2]", get("ids"))
	assert.Equal(t, "[1,2]", get("each"))
	assert.Equal(t, "", get("missing"))
}

func TestJQ_Errors(t *testing.T) {
	e, _ := newEnv(t)
	r := NewRegistry()

	assert.Error(t, r.Call(e, "jq", ".token", 1))
	assert.Contains(t, r.Call(e, "jq", "x, .token", 1).Error(), "not a JSON")

	withJSON(e, 200, map[string]any{"a": "b"})
	assert.Contains(t, r.Call(e, "jq", "x, .[", 1).Error(), "invalid jq query")
	assert.Error(t, r.Call(e, "jq", "x, .a | error(\"bad\")", 1))
}

func TestSchema(t *testing.T) {
	e, _ := newEnv(t)
	schema := `{"type": "object", "required": ["id"], "properties": {"id": {"type": "number"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(e.Dir, "item.schema.json"), []byte(schema), 0644))
	r := NewRegistry()

	withJSON(e, 200, map[string]any{"id": float64(1)})
	assert.NoError(t, r.Call(e, "schema", "item.schema.json", 1))

	withJSON(e, 200, map[string]any{"name": "x"})
	err := r.Call(e, "schema", "item.schema.json", 1)
	assert.ErrorIs(t, err, ErrAssertionFailed)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestGenerators(t *testing.T) {
	e, _ := newEnv(t)
	r := NewRegistry()

	require.NoError(t, r.Call(e, "uuid", "id", 1))
	require.NoError(t, r.Call(e, "random", "n, 3, 5", 1))
	require.NoError(t, r.Call(e, "randomString", "s, 12", 1))
	require.NoError(t, r.Call(e, "timestamp", "ts", 1))
	require.NoError(t, r.Call(e, "date", "d, 2006", 1))
	require.NoError(t, r.Call(e, "randomEmail", "mail", 1))

	id, _ := e.Store.Content("id")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), id)

	n, _ := e.Store.Content("n")
	v, err := strconv.Atoi(n)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v, 3)
	assert.LessOrEqual(t, v, 5)

	s, _ := e.Store.Content("s")
	assert.Len(t, s, 12)

	d, _ := e.Store.Content("d")
	assert.Len(t, d, 4)

	mail, _ := e.Store.Content("mail")
	assert.Contains(t, mail, "@")

	assert.Error(t, r.Call(e, "uuid", "", 1))
	assert.Error(t, r.Call(e, "random", "n, x", 1))
	assert.Error(t, r.Call(e, "random", "n, 5, 1", 1))
}

func TestCapture(t *testing.T) {
	e, _ := newEnv(t)
	e.Store.SetResponse(200, "OK", map[string]string{"X-Trace": "t-9"}, &env.Body{Key: env.KeyJson, Value: map[string]any{
		"user": map[string]any{"id": float64(7), "name": "ann"},
	}})
	r := NewRegistry()

	require.NoError(t, r.Call(e, "capture", "id, body.user.id", 1))
	require.NoError(t, r.Call(e, "capture", "user, body.user", 1))
	require.NoError(t, r.Call(e, "capture", "trace, header X-Trace", 1))
	require.NoError(t, r.Call(e, "capture", "code, status", 1))
	require.NoError(t, r.Call(e, "capture", "gone, body.nope", 1))

	get := func(name string) string {
		v, _ := e.Store.Content(name)
		return v
	}
	assert.Equal(t, "7", get("id"))
	assert.JSONEq(t, `{"id":7,"name":"ann"}`, get("user"))
	assert.Equal(t, "t-9", get("trace"))
	assert.Equal(t, "200", get("code"))
	assert.Equal(t, "", get("gone"))

	assert.Error(t, r.Call(e, "capture", "id", 1))
	assert.Error(t, r.Call(e, "capture", "id, cookie x", 1))
}
