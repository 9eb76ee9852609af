// Package jsonutil decodes JSON payloads that may arrive double-encoded or
// with unicode-escaped string values, which extraction pipelines produce when
// a model returns a document as a quoted string.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalNoEscape encodes v without escaping <, > and & into < forms.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalFlex decodes raw into v. When a direct decode fails it unwraps
// quoted-string layers and unescapes unicode sequences inside string values,
// then retries.
func UnmarshalFlex(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	norm, err := Normalize(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

// Normalize unwraps up to two levels of string-encoded JSON and unescapes
// unicode sequences left inside string values, returning canonical bytes.
func Normalize(raw []byte) ([]byte, error) {
	node, err := decodeUnwrapping(raw)
	if err != nil {
		return nil, err
	}
	return MarshalNoEscape(unescapeValues(node))
}

func decodeUnwrapping(raw []byte) (any, error) {
	payload := raw
	for attempt := 0; attempt < 3; attempt++ {
		var node any
		if err := json.Unmarshal(payload, &node); err != nil {
			return nil, fmt.Errorf("jsonutil: parse payload: %w", err)
		}
		s, ok := node.(string)
		if !ok || !looksLikeJSON(s) {
			return node, nil
		}
		payload = []byte(s)
	}
	return nil, fmt.Errorf("jsonutil: payload nested too deep")
}

func looksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

// unescapeValues walks the decoded tree and resolves residual escape
// sequences such as "\\u003e" inside string values.
func unescapeValues(v any) any {
	switch x := v.(type) {
	case string:
		if !strings.Contains(x, `\u`) {
			return x
		}
		esc := strings.ReplaceAll(x, `"`, `\"`)
		var out string
		if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
			return x
		}
		return out
	case []any:
		for i := range x {
			x[i] = unescapeValues(x[i])
		}
		return x
	case map[string]any:
		for k, vv := range x {
			x[k] = unescapeValues(vv)
		}
		return x
	default:
		return v
	}
}
