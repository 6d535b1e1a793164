package http

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/tidwall/gjson"
)

type responseDecoder struct {
	prefix string
	key    env.ContextKey
	decode func(body []byte) (any, error)
}

// responseDecoders are matched in order as a case-insensitive prefix of the
// response Content-Type. Anything unmatched is base64 encoded.
var responseDecoders = []responseDecoder{
	{MIMETextPlain, env.KeyText, decodeText},
	{MIMEApplicationJSON, env.KeyJson, decodeJSON},
	{MIMEApplicationXML, env.KeyXml, decodeText},
	{MIMEApplicationFormURLEncoded, env.KeyForm, decodeForm},
	{MIMETextHTML, env.KeyHtml, decodeText},
	{MIMETextCSV, env.KeyCsv, decodeCSV},
}

// Classify returns the context key a body of the given content type is
// stored under.
func Classify(contentType string) env.ContextKey {
	if dec := findDecoder(contentType); dec != nil {
		return dec.key
	}
	return env.KeyBase64
}

func findDecoder(contentType string) *responseDecoder {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for i := range responseDecoders {
		if strings.HasPrefix(ct, responseDecoders[i].prefix) {
			return &responseDecoders[i]
		}
	}
	return nil
}

// Decode classifies and decodes the response body. It returns nil when the
// response has no body. A non-nil error is a warning: the returned body is
// still usable and holds the best available value.
func Decode(resp *Response) (*env.Body, error) {
	if len(resp.Body) == 0 {
		return nil, nil
	}

	dec := findDecoder(resp.ContentType())
	if dec == nil {
		return &env.Body{Key: env.KeyBase64, Value: base64.StdEncoding.EncodeToString(resp.Body)}, nil
	}

	value, err := dec.decode(resp.Body)
	return &env.Body{Key: dec.key, Value: value}, err
}

func decodeText(body []byte) (any, error) {
	return string(body), nil
}

func decodeJSON(body []byte) (any, error) {
	if !gjson.ValidBytes(body) {
		return string(body), fmt.Errorf("response declared %s but is not valid JSON", MIMEApplicationJSON)
	}
	value := gjson.ParseBytes(body).Value()
	if value == nil {
		return "", nil
	}
	return value, nil
}

func decodeForm(body []byte) (any, error) {
	return DecodePairs(string(body)), nil
}

// decodeCSV turns a CSV body into row objects keyed by the header row.
func decodeCSV(body []byte) (any, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return []map[string]any{}, nil
	}
	if err != nil {
		return []map[string]any{}, fmt.Errorf("reading csv header: %w", err)
	}

	rows := []map[string]any{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("reading csv row %d: %w", len(rows)+1, err)
		}
		row := make(map[string]any, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			} else {
				row[column] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
