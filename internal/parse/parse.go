// Package parse reads workbook documents written as JSON or YAML.
package parse

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents supported input formats
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath returns the format implied by a file extension, or "" when
// the extension says nothing.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return ""
}

// DetectFormat determines the format of a document from its content.
// Returns an error if the content is neither a JSON nor a YAML mapping.
func DetectFormat(data []byte) (Format, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", fmt.Errorf("empty document")
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var js json.RawMessage
		if err := json.Unmarshal(data, &js); err == nil {
			return FormatJSON, nil
		}
		// If it starts with { but isn't valid JSON, that's an error
		return "", fmt.Errorf("input appears to be JSON but is invalid")
	}

	// YAML parser is very permissive - plain text is valid YAML.
	// Only treat it as YAML if it is a mapping.
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		if _, ok := doc.(map[string]interface{}); ok {
			return FormatYAML, nil
		}
	}
	return "", fmt.Errorf("input is neither JSON nor a YAML mapping")
}

// ToJSON returns data as JSON. An empty format is detected from the content.
func ToJSON(data []byte, format Format) ([]byte, error) {
	if format == "" {
		detected, err := DetectFormat(data)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML, "yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		converted, err := jsonValue(doc)
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(converted)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML to JSON: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// jsonValue rewrites decoded YAML so encoding/json accepts it.
func jsonValue(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, item := range v {
			converted, err := jsonValue(item)
			if err != nil {
				return nil, err
			}
			v[k] = converted
		}
		return v, nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, item := range v {
			var key string
			switch k := k.(type) {
			case string:
				key = k
			case int, int64, uint64, float64, bool:
				key = fmt.Sprint(k)
			default:
				return nil, fmt.Errorf("unsupported YAML key %v: keys must be scalars", k)
			}
			converted, err := jsonValue(item)
			if err != nil {
				return nil, err
			}
			m[key] = converted
		}
		return m, nil
	case []interface{}:
		for i, item := range v {
			converted, err := jsonValue(item)
			if err != nil {
				return nil, err
			}
			v[i] = converted
		}
		return v, nil
	default:
		return v, nil
	}
}
