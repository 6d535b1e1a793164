package http

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(contentType, body string) *Response {
	return &Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": contentType},
		Body:       []byte(body),
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		want        env.ContextKey
	}{
		{"text/plain", env.KeyText},
		{"TEXT/PLAIN; charset=utf-8", env.KeyText},
		{"application/json", env.KeyJson},
		{"application/json; charset=utf-8", env.KeyJson},
		{"application/xml", env.KeyXml},
		{"application/x-www-form-urlencoded", env.KeyForm},
		{"text/html; charset=utf-8", env.KeyHtml},
		{"text/csv", env.KeyCsv},
		{"application/problem+json", env.KeyBase64},
		{"image/png", env.KeyBase64},
		{"", env.KeyBase64},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.contentType))
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantKey     env.ContextKey
		wantValue   any
	}{
		{"text", "text/plain", "hello", env.KeyText, "hello"},
		{"json object", "application/json", `{"id":7,"tags":["a"]}`, env.KeyJson, map[string]any{"id": float64(7), "tags": []any{"a"}}},
		{"json array", "application/json", `[1,2]`, env.KeyJson, []any{float64(1), float64(2)}},
		{"xml", "application/xml", "<a>1</a>", env.KeyXml, "<a>1</a>"},
		{"form", "application/x-www-form-urlencoded", "a=1&b=x+y&c=%26", env.KeyForm, "a=1&b=x y&c=&"},
		{"html", "text/html", "<p>hi</p>", env.KeyHtml, "<p>hi</p>"},
		{"binary", "application/octet-stream", "\x00\x01", env.KeyBase64, base64.StdEncoding.EncodeToString([]byte("\x00\x01"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Decode(response(tt.contentType, tt.body))
			require.NoError(t, err)
			require.NotNil(t, body)
			assert.Equal(t, tt.wantKey, body.Key)
			assert.Equal(t, tt.wantValue, body.Value)
		})
	}
}

func TestDecode_EmptyBody(t *testing.T) {
	body, err := Decode(response("application/json", ""))
	assert.NoError(t, err)
	assert.Nil(t, body)
}

func TestDecode_InvalidJSON(t *testing.T) {
	body, err := Decode(response("application/json", "not json"))
	require.Error(t, err)
	require.NotNil(t, body)
	assert.Equal(t, env.KeyJson, body.Key)
	assert.Equal(t, "not json", body.Value)
}

func TestDecode_CSV(t *testing.T) {
	body, err := Decode(response("text/csv", "id,name\n1,alice\n"))
	require.NoError(t, err)
	assert.Equal(t, env.KeyCsv, body.Key)
	assert.Equal(t, []map[string]any{{"id": "1", "name": "alice"}}, body.Value)
}

func TestDecode_CSVRaggedRows(t *testing.T) {
	body, err := Decode(response("text/csv", "a,b,c\n1,2\n3,4,5\n"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"a": "1", "b": "2", "c": ""},
		{"a": "3", "b": "4", "c": "5"},
	}, body.Value)
}

func TestDecode_CSVHeaderOnly(t *testing.T) {
	body, err := Decode(response("text/csv", "a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{}, body.Value)
}

func TestFormRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		_, _ = w.Write(data)
	}))
	defer server.Close()

	s := spec("POST", server.URL, "a=1&b=2", "Content-Type: application/x-www-form-urlencoded")
	req, err := BuildRequest(s, vars(nil))
	require.NoError(t, err)

	resp, err := NewClient().Do(context.Background(), req)
	require.NoError(t, err)

	body, err := Decode(resp)
	require.NoError(t, err)
	assert.Equal(t, env.KeyForm, body.Key)
	assert.ElementsMatch(t, []Pair{{"a", "1"}, {"b", "2"}}, ParsePairs(body.Value.(string)))
}
