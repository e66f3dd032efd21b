package parse

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "empty input", input: "", wantErr: true},
		{name: "whitespace only", input: "   \n\n  ", wantErr: true},
		{name: "valid JSON object", input: `{"id": "wb"}`, want: FormatJSON},
		{name: "indented JSON", input: "\n  {\"id\": \"wb\"}\n", want: FormatJSON},
		{name: "invalid JSON returns error", input: `{not valid json}`, wantErr: true},
		{
			name: "YAML mapping",
			input: `id: wb
sheets: []`,
			want: FormatYAML,
		},
		{name: "plain text", input: "Just some plain text", wantErr: true},
		{name: "YAML list", input: "- a\n- b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("DetectFormat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("DetectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"plan.json":     FormatJSON,
		"plan.JSON":     FormatJSON,
		"dir/plan.yaml": FormatYAML,
		"plan.yml":      FormatYAML,
		"plan":          "",
		"plan.xmind":    "",
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestToJSON(t *testing.T) {
	yamlDoc := `id: wb
sheets:
  - id: s1
    modified_time: 42
    title: Sheet 1
styles: {}
`
	tests := []struct {
		name    string
		input   string
		format  Format
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name:  "detected YAML",
			input: yamlDoc,
			want: map[string]interface{}{
				"id": "wb",
				"sheets": []interface{}{
					map[string]interface{}{"id": "s1", "modified_time": float64(42), "title": "Sheet 1"},
				},
				"styles": map[string]interface{}{},
			},
		},
		{
			name:   "JSON passes through",
			input:  `{"id":"wb"}`,
			format: FormatJSON,
			want:   map[string]interface{}{"id": "wb"},
		},
		{
			name:   "nested non-string key",
			input:  "id: wb\nnested:\n  1: one\n",
			format: FormatYAML,
			want: map[string]interface{}{
				"id":     "wb",
				"nested": map[string]interface{}{"1": "one"},
			},
		},
		{name: "invalid YAML", input: "id: [", format: FormatYAML, wantErr: true},
		{name: "unsupported format", input: "id: wb", format: "toml", wantErr: true},
		{name: "undetectable", input: "plain text", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ToJSON([]byte(tt.input), tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var got map[string]interface{}
			if err := json.Unmarshal(out, &got); err != nil {
				t.Fatalf("ToJSON() produced invalid JSON: %v\n%s", err, out)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ToJSON() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
