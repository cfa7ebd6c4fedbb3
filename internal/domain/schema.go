package domain

import (
	"encoding/json"
	"fmt"
)

// Schema is the open record of every semantic attribute inferred for a
// transaction. The documented minimum keys are "date", "amount", "merchant",
// "category" and "description"; arbitrary extra keys are allowed. Values are
// whatever encoding/json produced (string, float64, bool, nested maps).
type Schema map[string]interface{}

// GetString returns the value for key when it is a non-empty string.
func (s Schema) GetString(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}

// GetFloat returns the value for key coerced to float64 when it is numeric.
func (s Schema) GetFloat(key string) (float64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Set stores a value, allocating the map for callers holding a nil Schema.
func (s *Schema) Set(key string, value interface{}) {
	if *s == nil {
		*s = make(Schema)
	}
	(*s)[key] = value
}

// EncodeJSON serializes the schema for storage. The result is always a
// well-formed JSON object: a nil schema encodes as "{}" and a marshal
// failure is wrapped instead of leaked.
func (s Schema) EncodeJSON() string {
	if s == nil {
		return "{}"
	}
	data, err := json.Marshal(map[string]interface{}(s))
	if err != nil {
		wrapped, _ := json.Marshal(map[string]string{
			"error": fmt.Sprintf("schema not serializable: %v", err),
		})
		return string(wrapped)
	}
	return string(data)
}

// DecodeSchema parses a stored schema blob back into a Schema. Malformed
// blobs come back as a single-key error schema rather than failing the read.
func DecodeSchema(blob string) Schema {
	if blob == "" {
		return Schema{}
	}
	var s Schema
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return Schema{"error": "stored schema unreadable", "raw": blob}
	}
	if s == nil {
		return Schema{}
	}
	return s
}
