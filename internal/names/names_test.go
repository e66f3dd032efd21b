package names

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "plan", want: "plan"},
		{name: "uppercase to lowercase", input: "Plan", want: "plan"},
		{name: "spaces to hyphens", input: "q3 plan", want: "q3-plan"},
		{name: "underscores to hyphens", input: "q3_plan", want: "q3-plan"},
		{name: "keeps dots", input: "plan.v2", want: "plan.v2"},
		{name: "removes invalid characters", input: "plan@home!", want: "planhome"},
		{name: "trims separators", input: "-.plan.-", want: "plan"},
		{name: "empty", input: "", wantErr: true},
		{name: "only invalid characters", input: "@@@", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 256), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "plan"},
		{input: "0-plan.v2"},
		{input: "", wantErr: true},
		{input: "Plan", wantErr: true},
		{input: "-plan", wantErr: true},
		{input: "my plan", wantErr: true},
		{input: "a/b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if err := Validate(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizedNamesAreValidAndStable(t *testing.T) {
	for _, input := range []string{"Hello World", "test_case", "MIX123-abc", "plan.JSON"} {
		once, err := Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", input, err)
		}
		if err := Validate(once); err != nil {
			t.Errorf("normalized name %q is invalid: %v", once, err)
		}
		twice, err := Normalize(once)
		if err != nil || twice != once {
			t.Errorf("normalization not idempotent: %q -> %q -> %q (%v)", input, once, twice, err)
		}
	}
}

func TestIsPattern(t *testing.T) {
	for s, want := range map[string]bool{
		"plan":    false,
		"plan-*":  true,
		"plan?":   true,
		"[ab]*":   true,
		"plan.v2": false,
	} {
		if got := IsPattern(s); got != want {
			t.Errorf("IsPattern(%q) = %v, want %v", s, got, want)
		}
	}
}
