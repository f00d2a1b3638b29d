// Package xjson is the single JSON import site for the module. Payload
// encoding, event decoding and definition round trips all go through it so
// the codec can be swapped without touching callers.
package xjson

import (
	"bytes"
	stdjson "encoding/json"

	gjson "github.com/goccy/go-json"
)

// RawMessage stays compatible with encoding/json so domain types can embed
// undecoded backend results.
type RawMessage = stdjson.RawMessage

func Marshal(v any) ([]byte, error) {
	return gjson.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return gjson.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return gjson.Unmarshal(data, v)
}

// UnmarshalStrict rejects fields the target type does not declare.
func UnmarshalStrict(data []byte, v any) error {
	dec := gjson.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func Valid(data []byte) bool {
	return gjson.Valid(data)
}
