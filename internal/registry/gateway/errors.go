package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// HTTPError describes a non-2xx response from the registry.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Error HTTP %d: %s", e.Status, e.StatusText)
}

// errorMessage builds the user-facing message for a failed response: the values of
// the JSON error object in document order, joined by a single space. Bodies that are
// not JSON (or are JSON null) fall back to the status line.
func errorMessage(body []byte, httpErr *HTTPError) string {
	values, ok := errorValues(body)
	if !ok {
		return httpErr.Error()
	}
	return strings.Join(values, " ")
}

func errorValues(body []byte) ([]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var top json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	top = bytes.TrimSpace(top)
	if len(top) == 0 {
		return nil, false
	}

	switch top[0] {
	case 'n':
		return nil, false
	case '{':
		return objectValues(top)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(top, &items); err != nil {
			return nil, false
		}
		values := make([]string, len(items))
		for i, item := range items {
			values[i] = jsString(item)
		}
		return values, true
	default:
		return []string{jsString(top)}, true
	}
}

// objectValues walks the object token by token so values keep document order.
// A repeated key keeps its first position and takes the last value.
func objectValues(raw json.RawMessage) ([]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, false
	}

	var values []string
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		if i, seen := index[key]; seen {
			values[i] = jsString(value)
			continue
		}
		index[key] = len(values)
		values = append(values, jsString(value))
	}
	return values, true
}

// jsString converts a JSON value to text the way a browser stringifies it:
// arrays are comma-joined, null is empty and nested objects are opaque.
func jsString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		return s
	case 'n':
		return ""
	case 't', 'f':
		return string(raw)
	case '{':
		return "[object Object]"
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return string(raw)
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = jsString(item)
		}
		return strings.Join(parts, ",")
	default:
		return jsNumber(string(raw))
	}
}

func jsNumber(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
