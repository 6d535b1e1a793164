package runner

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/httpipe/packages/builtin"
	"github.com/abdul-hamid-achik/httpipe/packages/core/parser"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, cfg *Config) (*Runner, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Logger = logger
	return NewRunner(cfg), hook
}

func writeScript(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "script.http")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.client)
		assert.NotNil(t, r.registry)
		assert.NotNil(t, r.log)
	})

	t.Run("with custom config", func(t *testing.T) {
		cfg := &Config{
			Environment: "test",
			Verbose:     true,
			Timeout:     time.Second,
			RateLimit:   10,
		}
		r := NewRunner(cfg)
		assert.NotNil(t, r)
		assert.Equal(t, "test", r.config.Environment)
		assert.True(t, r.config.Verbose)
	})
}

func TestRunner_ChainsContextAcrossBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"user":"john"}`, string(body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"abc"}`))
		case "/me":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("hello john"))
		}
	}))
	defer server.Close()

	script := `### Login
@host = ` + server.URL + `
@user = john
POST {{host}}/login
Content-Type: application/json

{"user": "{{content.user}}"}

### Me
@token = {{context.Json.token}}
GET {{host}}/me
Authorization: Bearer {{token}}

### After
$assert: 200
@greeting = {{context.Text}}
`
	r, _ := newTestRunner(t, nil)
	result, err := r.RunFile(context.Background(), writeScript(t, t.TempDir(), script))
	require.NoError(t, err)

	require.Len(t, result.Results, 3)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 200, result.Results[0].StatusCode)
	assert.Equal(t, 200, result.Results[1].StatusCode)
	assert.Equal(t, "OK", result.Results[1].Reason)
	assert.Equal(t, server.URL+"/me", result.Results[1].URL)
	assert.Equal(t, "abc", result.Content["token"])
	assert.Equal(t, "hello john", result.Content["greeting"])
	assert.Equal(t, int64(3), result.Timings.Count())
}

func TestRunner_ZeroTargetsSendNothing(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	script := `@host =
GET {{host}}/users

###
GET users/1
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	assert.Equal(t, int32(0), hits.Load())
	require.Len(t, result.Results, 2)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.True(t, result.Results[0].Skipped)
	assert.Contains(t, result.Results[0].SkipReason, "absolute http(s) URL")
}

func TestRunner_UnknownFunctionAbortsOnlyItsBlock(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"v":"` + r.URL.Query().Get("v") + `"}`))
	}))
	defer server.Close()

	script := `### first
GET ` + server.URL + `/?v=one

### second
@lost = x
$nope: 1
GET ` + server.URL + `/?v=two

### third
@seen = {{context.Json.v}}
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	require.Len(t, result.Results, 3)
	assert.True(t, result.Results[0].Passed)
	assert.False(t, result.Results[1].Passed)
	assert.False(t, result.Results[1].Stopped)
	assert.ErrorIs(t, result.Results[1].Error, builtin.ErrUnknownFunction)
	assert.True(t, result.Results[2].Passed)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "one", result.Content["seen"])
	assert.Equal(t, "x", result.Content["lost"])
}

func TestRunner_FailedCheckStopsBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	script := `GET ` + server.URL + `/missing

###
$assert: 2xx
GET ` + server.URL + `/next

###
GET ` + server.URL + `/last
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	require.Len(t, result.Results, 3)
	assert.Equal(t, 404, result.Results[0].StatusCode)
	assert.True(t, result.Results[1].Stopped)
	assert.ErrorIs(t, result.Results[1].Error, builtin.ErrAssertionFailed)
	assert.True(t, result.Results[2].Passed)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)
}

func TestRunner_TransportFailureClearsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	downURL := down.URL
	down.Close()

	script := `GET ` + server.URL + `

###
GET ` + downURL + `

###
@id = {{context.Json.id}}
@code = {{context.Response.Code}}
`
	r, hook := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	require.Len(t, result.Results, 3)
	assert.Error(t, result.Results[1].Error)
	assert.True(t, result.Results[2].Passed)
	assert.Equal(t, "", result.Content["id"])
	assert.Equal(t, "", result.Content["code"])

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "request failed" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestRunner_MalformedLineAbandonsBlock(t *testing.T) {
	script := `@broken
@after = yes

###
@next = ok
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	var pe *parser.ParseError
	require.ErrorAs(t, result.Results[0].Error, &pe)
	assert.Equal(t, 1, pe.Line)
	assert.NotContains(t, result.Content, "after")
	assert.Equal(t, "ok", result.Content["next"])
}

func TestRunner_MalformedRouteKeepsEarlierLines(t *testing.T) {
	script := `@token = abc
$capture: code, status
GET

###
@seen = {{ content.token }}
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	var pe *parser.ParseError
	require.ErrorAs(t, result.Results[0].Error, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.False(t, result.Results[0].Passed)
	assert.Equal(t, "abc", result.Content["seen"])
	assert.Equal(t, "", result.Content["code"])
	assert.True(t, result.Results[1].Passed)
}

func TestRunner_FailedCheckBeforeMalformedLine(t *testing.T) {
	script := `$assert: 200
@after = yes
GET
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	br := result.Results[0]
	assert.True(t, br.Stopped)
	assert.ErrorIs(t, br.Error, builtin.ErrAssertionFailed)
	assert.NotContains(t, result.Content, "after")
}

func TestRunner_FormAndQueryValuesArriveLiterally(t *testing.T) {
	var query, form string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			query = r.URL.Query().Get("email") + "|" + r.URL.Query().Get("lang")
		} else {
			_ = r.ParseForm()
			form = r.PostForm.Get("email") + "|" + r.PostForm.Get("note")
		}
	}))
	defer server.Close()

	script := `GET ` + server.URL + `/search

email=a+b@x.com&lang=c++

###
POST ` + server.URL + `/signup
Content-Type: application/x-www-form-urlencoded

email=a+b@x.com&note=100%41
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Passed)

	assert.Equal(t, "a+b@x.com|c++", query)
	assert.Equal(t, "a+b@x.com|100%41", form)
}

func TestRunner_VariableRenderErrorContinues(t *testing.T) {
	script := `@bad = {% if %}
@good = fine
`
	r, hook := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, "", result.Content["bad"])
	assert.Equal(t, "fine", result.Content["good"])

	var entry *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, "bad", entry.Data["variable"])
}

func TestRunner_RequestRenderErrorAbandonsBlock(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	script := `GET ` + server.URL + `/
X-Broken: {% if %}

###
GET ` + server.URL + `/ok
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.ErrorContains(t, result.Results[0].Error, "rendering header X-Broken")
	assert.True(t, result.Results[1].Passed)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRunner_InvalidJSONBodyDropped(t *testing.T) {
	var gotBody string
	var gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotType = r.Header.Get("Content-Type")
	}))
	defer server.Close()

	script := `POST ` + server.URL + `
Content-Type: application/json

{not json
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	assert.True(t, result.Results[0].Passed)
	assert.Empty(t, gotBody)
	assert.Empty(t, gotType)
}

func TestRunner_Environment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Key")))
	}))
	defer server.Close()

	dir := t.TempDir()
	envFile := `{"dev": {"host": "` + server.URL + `", "key": "dev-key"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "http-client.env.json"), []byte(envFile), 0644))
	t.Setenv("HTTPIPE_VAR_greeting", "hi")

	script := `@env = {{context.Environment}}
@run = {{context.RunId}}
@block = {{context.Block}}
GET {{host}}/
X-Key: {{key}}
`
	r, _ := newTestRunner(t, &Config{
		Environment: "dev",
		Variables:   map[string]string{"extra": "1"},
	})
	result, err := r.RunFile(context.Background(), writeScript(t, dir, script))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, "dev", result.Content["env"])
	assert.Equal(t, result.RunID, result.Content["run"])
	assert.Equal(t, "1", result.Content["block"])
	assert.Equal(t, "hi", result.Content["greeting"])
	assert.Equal(t, "1", result.Content["extra"])
}

func TestRunner_UnknownEnvironment(t *testing.T) {
	r, _ := newTestRunner(t, &Config{Environment: "prod"})
	_, err := r.RunFile(context.Background(), writeScript(t, t.TempDir(), "@a = 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading environment")
}

func TestRunner_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
	}))
	defer server.Close()

	script := `GET ` + server.URL + `

###
GET ` + server.URL + `
`
	r, _ := newTestRunner(t, nil)
	result, err := r.Run(ctx, parser.Split(script))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Len(t, result.Results, 1)
}

func TestRunner_NameFilter(t *testing.T) {
	script := `### create user
@a = 1

### delete user
@b = 2

### health
@c = 3
`
	r, _ := newTestRunner(t, &Config{NameFilter: "*user"})
	result, err := r.Run(context.Background(), parser.Split(script))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "filtered out", result.Results[2].SkipReason)
	assert.NotContains(t, result.Content, "c")
}

func TestRunner_BlockTimingLogged(t *testing.T) {
	r, hook := newTestRunner(t, nil)
	_, err := r.Run(context.Background(), parser.Split("@a = 1\n"))
	require.NoError(t, err)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel && e.Data["block"] == 1 {
			found = true
			assert.Regexp(t, `^Block#1 completed within \d+ ms$`, e.Message)
		}
	}
	assert.True(t, found)
}

func TestBlockResult_Name(t *testing.T) {
	assert.Equal(t, "Login", (&BlockResult{Title: "Login", Method: "GET"}).Name())
	assert.Equal(t, "GET http://h/x", (&BlockResult{Method: "GET", URL: "http://h/x"}).Name())
	assert.Equal(t, "Block#3", (&BlockResult{Index: 3}).Name())
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"anything", "", true},
		{"anything", "*", true},
		{"createUser", "createUser", true},
		{"createUser", "create*", true},
		{"createUser", "*User", true},
		{"createUser", "*eateU*", true},
		{"createUser", "delete*", false},
		{"createUser", "*Post", false},
		{"createUser", "*Post*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesPattern(tt.name, tt.pattern))
		})
	}
}
