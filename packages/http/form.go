package http

import (
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Pair is one key/value entry of a form or query body.
type Pair struct {
	Key   string
	Value string
}

// ParsePairs reads body either as a flat JSON object or as "&"-joined
// key=value pairs. Entries keep their first-seen order; a repeated key
// overwrites the earlier value. Entries without '=' or without a key are
// ignored.
func ParsePairs(body string) []Pair {
	var pairs []Pair
	index := make(map[string]int)
	add := func(key, value string) {
		if i, ok := index[key]; ok {
			pairs[i].Value = value
			return
		}
		index[key] = len(pairs)
		pairs = append(pairs, Pair{Key: key, Value: value})
	}

	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") && gjson.Valid(trimmed) {
		gjson.Parse(trimmed).ForEach(func(key, value gjson.Result) bool {
			add(key.String(), value.String())
			return true
		})
		return pairs
	}

	for _, item := range strings.Split(trimmed, "&") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		add(key, strings.TrimSpace(value))
	}
	return pairs
}

// EncodePairs URL-encodes every key and value as written in the script: a
// literal "+" or "%" is sent as "%2B" or "%25". Keys are encoded like values
// so a key holding "&" or "=" cannot split the pair.
func EncodePairs(pairs []Pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

// DecodePairs decodes a received form body into display form: "k=v&k2=v2"
// with every escape resolved once. Invalid escapes are kept as they are.
func DecodePairs(body string) string {
	pairs := ParsePairs(body)
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, unescape(p.Key)+"="+unescape(p.Value))
	}
	return strings.Join(parts, "&")
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
