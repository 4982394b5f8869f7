package jsonutil

import (
	"bytes"
	"encoding/json"
)

// ScalarString renders a JSON string, number or boolean as a string.
// Numbers keep their literal form, so 5432 and "5432" yield the same value.
// ok is false for null, objects, arrays and empty input.
func ScalarString(raw json.RawMessage) (value string, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return string(raw), true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}
