package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// CleanJSON strips the junk models wrap around JSON when they ignore the
// "raw JSON only" instruction: Markdown fences, leading prose, trailing
// notes. The result is the outermost JSON value found in the text.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost array or object if there is still text around it.
	arrStart := strings.Index(s, "[")
	objStart := strings.Index(s, "{")
	start, closer := arrStart, "]"
	if start == -1 || (objStart != -1 && objStart < start) {
		start, closer = objStart, "}"
	}
	if start != -1 {
		if end := strings.LastIndex(s, closer); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// ParseObjectList parses a model response expected to be a JSON array of
// objects. Anything else — invalid JSON, a bare value, an array with
// non-object elements — is an error the caller degrades on.
func ParseObjectList(raw string) ([]map[string]interface{}, error) {
	clean := CleanJSON(raw)
	if !gjson.Valid(clean) {
		return nil, fmt.Errorf("llm.ParseObjectList: response is not valid JSON")
	}
	if !gjson.Parse(clean).IsArray() {
		return nil, fmt.Errorf("llm.ParseObjectList: response is not a JSON array")
	}

	var items []interface{}
	if err := json.Unmarshal([]byte(clean), &items); err != nil {
		return nil, fmt.Errorf("llm.ParseObjectList: unmarshal: %w", err)
	}

	result := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("llm.ParseObjectList: element %d is %T, want object", i, item)
		}
		result = append(result, obj)
	}
	return result, nil
}

// ParseObject parses a model response expected to be a single JSON object.
func ParseObject(raw string) (map[string]interface{}, error) {
	clean := CleanJSON(raw)
	if !gjson.Valid(clean) {
		return nil, fmt.Errorf("llm.ParseObject: response is not valid JSON")
	}
	if !gjson.Parse(clean).IsObject() {
		return nil, fmt.Errorf("llm.ParseObject: response is not a JSON object")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("llm.ParseObject: unmarshal: %w", err)
	}
	return obj, nil
}
