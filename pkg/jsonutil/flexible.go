// Package jsonutil holds lenient JSON helpers for hand-assembled dataset files.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexibleString decodes a JSON scalar as text. Dataset exports disagree on
// whether ids are strings or numbers, so numbers keep their literal digits
// and booleans become "true"/"false". Null or a missing value yields "".
// Objects and arrays are an error.
func FlexibleString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return fmt.Sprintf("%t", b), nil
	case '{', '[':
		return "", fmt.Errorf("expected a scalar, got %s", kindOf(raw[0]))
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func kindOf(b byte) string {
	if b == '{' {
		return "an object"
	}
	return "an array"
}
