// Package jsonutil holds JSON helpers shared by the model interpreter and the
// stores.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// MarshalNoEscape encodes v without escaping <, > and & and without a
// trailing newline.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "", "")
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	return encode(v, prefix, indent)
}

func encode(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if prefix != "" || indent != "" {
		enc.SetIndent(prefix, indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalFlex decodes raw into v. When the direct decode fails it retries
// once after unwrapping a JSON document that was itself encoded as a string,
// which some models emit.
func UnmarshalFlex(raw []byte, v any) error {
	raw = bytes.TrimSpace(raw)
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var inner string
	if json.Unmarshal(raw, &inner) != nil {
		return err
	}
	inner = strings.TrimSpace(inner)
	if inner == "" || (inner[0] != '{' && inner[0] != '[') {
		return err
	}
	if err2 := json.Unmarshal([]byte(inner), v); err2 != nil {
		return errors.Join(err, err2)
	}
	return nil
}
